package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/quota"
	"github.com/abhisek/studypal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const material = "The mitochondrion is the powerhouse of the cell and produces ATP through respiration."

type fakeGateway struct {
	calls int
	err   error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.Order, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", g.calls),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
		Notes:    notes,
	}, nil
}

type fixture struct {
	svc     *Service
	store   *store.Store
	mock    *llm.MockProvider
	gateway *fakeGateway
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tutor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := llm.NewMockProvider()
	gw := &fakeGateway{}
	svc := New(Deps{
		Runner:   flow.NewRunner(mock, nil, flow.DefaultConfig()),
		Limiter:  quota.New(s.UsageRepo(), s.ProfileRepo(), limit),
		Profiles: s.ProfileRepo(),
		History:  s.HistoryRepo(),
		Orders:   s.OrderRepo(),
		Gateway:  gw,
		KeyID:    "rzp_test",
		Secret:   "secret",
		Premium:  PremiumConfig{Amount: 49900},
	})
	return &fixture{svc: svc, store: s, mock: mock, gateway: gw}
}

func cards(n int) llm.MockResponse {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"front":"F%d","back":"B%d"}`, i, i)
	}
	return llm.MockResponse{Content: json.RawMessage(`{"flashcards":[` + strings.Join(parts, ",") + `]}`)}
}

func TestFlashcards_RecordsHistory(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.mock.AddResponse(cards(2))

	out, err := f.svc.Flashcards(ctx, "u1", flow.FlashcardsInput{Text: material, Count: 2})
	require.NoError(t, err)
	assert.Len(t, out.Flashcards, 2)

	items, err := f.svc.ListHistory(ctx, "u1", "", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "generate-flashcards", items[0].Flow)
	assert.True(t, strings.HasPrefix(items[0].Title, "The mitochondrion"))
	assert.JSONEq(t, `{"flashcards":[{"front":"F0","back":"B0"},{"front":"F1","back":"B1"}]}`, string(items[0].Output))

	got, err := f.svc.GetHistoryItem(ctx, "u1", items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, items[0].ID, got.ID)

	_, err = f.svc.GetHistoryItem(ctx, "u2", items[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.svc.DeleteHistoryItem(ctx, "u1", items[0].ID))
	items, err = f.svc.ListHistory(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestQuotaExceededIsRateLimited(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.mock.AddResponse(cards(1))
	f.mock.AddResponse(cards(1))

	_, err := f.svc.Flashcards(ctx, "u1", flow.FlashcardsInput{Text: material, Count: 1})
	require.NoError(t, err)

	_, err = f.svc.Flashcards(ctx, "u1", flow.FlashcardsInput{Text: material, Count: 1})
	assert.Equal(t, flow.KindRateLimited, flow.KindOf(err))
	assert.Equal(t, 1, f.mock.CallCount(), "no model call once the quota is spent")
}

func TestInvalidInputDoesNotChargeQuota(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Flashcards(ctx, "u1", flow.FlashcardsInput{Text: "short", Count: 1})
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))

	acct, err := f.svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.Remaining)
}

func TestGradeIsNotRecorded(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	out, err := f.svc.Grade(ctx, "u1", flow.GradeInput{Question: "Q", ModelAnswer: "A", UserAnswer: ""})
	require.NoError(t, err)
	assert.False(t, out.IsCorrect)

	items, err := f.svc.ListHistory(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGrade_BlankAnswerIsFree(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	for range 3 {
		out, err := f.svc.Grade(ctx, "u1", flow.GradeInput{Question: "Q", ModelAnswer: "A", UserAnswer: "  "})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Score)
	}
	assert.Equal(t, 0, f.mock.CallCount())

	acct, err := f.svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.Remaining)

	_, err = f.svc.Grade(ctx, "u1", flow.GradeInput{Question: "", ModelAnswer: "A"})
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))
}

func TestExamPlan_OverLimitIsNotCharged(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.ExamPlan(ctx, "u1", flow.ExamPlanInput{
		Subject: "Biology", ExamDate: "2026-12-31", CurrentDate: "2026-05-01",
		Topics: []string{"cells"}, HoursPerDay: 2,
	})
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))
	assert.Equal(t, 0, f.mock.CallCount())

	acct, err := f.svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, acct.Remaining)
}

func TestExplain_UsesStoredProfile(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	_, err := f.svc.UpdateProfile(ctx, "u1", ProfileUpdate{DisplayName: "Asha", GradeLevel: "9", LearningStyle: "visual"})
	require.NoError(t, err)

	f.mock.AddResponse(llm.MockResponse{Content: json.RawMessage(`{"explanation":"E","keyPoints":["k"],"followUpQuestions":["q"]}`)})
	_, err = f.svc.Explain(ctx, "u1", flow.ExplainInput{Topic: "osmosis"})
	require.NoError(t, err)

	prompt := f.mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Asha")
	assert.Contains(t, prompt, "visual")
}

func TestDispatch(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.mock.AddResponse(cards(1))

	out, err := f.svc.Dispatch(ctx, "u1", "generate-flashcards", json.RawMessage(`{"text":"`+material+`","count":1}`))
	require.NoError(t, err)
	set, ok := out.(*flow.FlashcardSet)
	require.True(t, ok)
	assert.Len(t, set.Flashcards, 1)

	_, err = f.svc.Dispatch(ctx, "u1", "generate-flashcards", json.RawMessage(`{"text":`))
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))

	_, err = f.svc.Dispatch(ctx, "u1", "write-essay", json.RawMessage(`{}`))
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))
	assert.Contains(t, err.Error(), "explain-topic")
}

func TestProfile_DefaultsToFree(t *testing.T) {
	f := newFixture(t, 5)
	acct, err := f.svc.Profile(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, store.PlanFree, acct.Plan)
	assert.Equal(t, 5, acct.DailyLimit)
	assert.Equal(t, 5, acct.Remaining)
}

func TestUpdateProfile_Validates(t *testing.T) {
	f := newFixture(t, 5)
	_, err := f.svc.UpdateProfile(context.Background(), "u1", ProfileUpdate{LearningStyle: "telepathic"})
	assert.Equal(t, flow.KindInvalidInput, flow.KindOf(err))
}

func TestUpgradeFlow(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	checkout, err := f.svc.CreateOrder(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "rzp_test", checkout.KeyID)
	assert.Equal(t, int64(49900), checkout.Order.Amount)
	assert.Equal(t, "INR", checkout.Order.Currency)
	assert.Equal(t, store.OrderCreated, checkout.Order.Status)

	orderID := checkout.Order.OrderID

	_, err = f.svc.VerifyOrder(ctx, "u1", VerifyRequest{OrderID: orderID, PaymentID: "pay_1", Signature: "deadbeef"})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	sig := payment.Sign(orderID, "pay_1", "secret")
	_, err = f.svc.VerifyOrder(ctx, "intruder", VerifyRequest{OrderID: orderID, PaymentID: "pay_1", Signature: sig})
	assert.ErrorIs(t, err, store.ErrNotFound)

	order, err := f.svc.VerifyOrder(ctx, "u1", VerifyRequest{OrderID: orderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	assert.Equal(t, store.OrderPaid, order.Status)
	assert.Equal(t, "pay_1", order.PaymentID)

	acct, err := f.svc.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.PlanPremium, acct.Plan)
	assert.Equal(t, -1, acct.Remaining)

	// Verifying again is harmless.
	_, err = f.svc.VerifyOrder(ctx, "u1", VerifyRequest{OrderID: orderID, PaymentID: "pay_1", Signature: sig})
	assert.NoError(t, err)
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.gateway.err = &payment.HTTPError{StatusCode: 500}

	_, err := f.svc.CreateOrder(context.Background(), "u1")
	var perr *PaymentError
	require.ErrorAs(t, err, &perr)
}

func TestPaymentsDisabled(t *testing.T) {
	f := newFixture(t, 1)
	f.svc.Gateway = nil
	_, err := f.svc.CreateOrder(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b", excerpt("  a \n b "))
	long := strings.Repeat("x", 100)
	assert.Equal(t, 60, len([]rune(excerpt(long))))
}
