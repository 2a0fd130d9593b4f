package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/quota"
	"github.com/abhisek/studypal/internal/store"
	"github.com/abhisek/studypal/internal/tutor"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const material = "Plate tectonics describes how the lithosphere moves over the asthenosphere."

type stubGateway struct{}

func (stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (*payment.Order, error) {
	return &payment.Order{ID: "order_1", Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return fmt.Errorf("disk on fire") }

type harness struct {
	srv   *Server
	mock  *llm.MockProvider
	store *store.Store
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := llm.NewMockProvider()
	svc := tutor.New(tutor.Deps{
		Runner:   flow.NewRunner(mock, nil, flow.DefaultConfig()),
		Limiter:  quota.New(s.UsageRepo(), s.ProfileRepo(), limit),
		Profiles: s.ProfileRepo(),
		History:  s.HistoryRepo(),
		Orders:   s.OrderRepo(),
		Gateway:  stubGateway{},
		KeyID:    "rzp_test",
		Secret:   "secret",
		Premium:  tutor.PremiumConfig{Amount: 100},
	})
	return &harness{
		srv:   New(svc, s, Config{CORSOrigins: []string{"http://localhost:3000"}}, nil),
		mock:  mock,
		store: s,
	}
}

func (h *harness) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func flashcards(n int) llm.MockResponse {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"front":"F%d","back":"B%d"}`, i, i)
	}
	return llm.MockResponse{Content: json.RawMessage(`{"flashcards":[` + strings.Join(parts, ",") + `]}`)}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, 5)
	rec := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	h.srv.health = downPinger{}
	rec = h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequiresUser(t *testing.T) {
	h := newHarness(t, 5)
	rec := h.do(t, http.MethodPost, "/api/flashcards", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_user", decodeError(t, rec).Code)
}

func TestFlashcards_OK(t *testing.T) {
	h := newHarness(t, 5)
	h.mock.AddResponse(flashcards(3))

	rec := h.do(t, http.MethodPost, "/api/flashcards", "u1", fmt.Sprintf(`{"text":%q,"count":3}`, material))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out flow.FlashcardSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Flashcards, 3)

	rec = h.do(t, http.MethodGet, "/api/history?flow=generate-flashcards", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []store.HistoryItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	id := list.Items[0].ID
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/history/"+id, "u1", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/history/"+id, "u2", "").Code)
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/history/"+id, "u1", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/history/"+id, "u1", "").Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		body   string
		status int
		code   string
	}{
		{
			name:   "malformed json",
			body:   `{"text":`,
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		{
			name:   "invalid input",
			body:   `{"text":"short","count":3}`,
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		{
			name: "count mismatch",
			setup: func(h *harness) {
				h.mock.AddResponse(flashcards(2))
				h.mock.AddResponse(flashcards(2))
				h.mock.AddResponse(flashcards(2))
			},
			status: http.StatusBadGateway,
			code:   "generation_failed",
		},
		{
			name:   "overloaded",
			setup:  func(h *harness) { h.mock.AddResponse(llm.MockResponse{Err: &llm.ErrOverloaded{}}) },
			status: http.StatusServiceUnavailable,
			code:   "overloaded",
		},
		{
			name:   "provider rate limit",
			setup:  func(h *harness) { h.mock.AddResponse(llm.MockResponse{Err: &llm.ErrRateLimit{}}) },
			status: http.StatusTooManyRequests,
			code:   "rate_limited",
		},
		{
			name:   "timeout",
			setup:  func(h *harness) { h.mock.AddResponse(llm.MockResponse{Err: &llm.ErrTimeout{}}) },
			status: http.StatusGatewayTimeout,
			code:   "timeout",
		},
		{
			name:   "unknown",
			status: http.StatusInternalServerError,
			code:   "internal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 10)
			if tt.setup != nil {
				tt.setup(h)
			}
			body := tt.body
			if body == "" {
				body = fmt.Sprintf(`{"text":%q,"count":3}`, material)
			}
			rec := h.do(t, http.MethodPost, "/api/flashcards", "u1", body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestQuotaExceeded(t *testing.T) {
	h := newHarness(t, 1)
	h.mock.AddResponse(flashcards(1))
	body := fmt.Sprintf(`{"text":%q,"count":1}`, material)

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/flashcards", "u1", body).Code)

	rec := h.do(t, http.MethodPost, "/api/flashcards", "u1", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, APIError{Message: "slow down", Code: "rate_limited"}, decodeError(t, rec))
}

func TestGrade_EmptyAnswer(t *testing.T) {
	h := newHarness(t, 5)
	rec := h.do(t, http.MethodPost, "/api/grade", "u1", `{"question":"Capital of France?","modelAnswer":"Paris","userAnswer":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var g flow.Grade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.False(t, g.IsCorrect)
	assert.NotEmpty(t, g.Feedback)
	assert.Equal(t, 0, h.mock.CallCount())
}

func TestProfile(t *testing.T) {
	h := newHarness(t, 5)

	rec := h.do(t, http.MethodGet, "/api/profile", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":"free"`)
	assert.Contains(t, rec.Body.String(), `"remaining":5`)

	rec = h.do(t, http.MethodPut, "/api/profile", "u1", `{"displayName":"Kai","gradeLevel":"8","learningStyle":"visual"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Kai"`)

	rec = h.do(t, http.MethodPut, "/api/profile", "u1", `{"learningStyle":"osmosis"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders(t *testing.T) {
	h := newHarness(t, 5)

	rec := h.do(t, http.MethodPost, "/api/orders", "u1", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var checkout tutor.Checkout
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkout))
	assert.Equal(t, "rzp_test", checkout.KeyID)
	assert.Equal(t, "order_1", checkout.Order.OrderID)

	rec = h.do(t, http.MethodPost, "/api/orders/verify", "u1", `{"orderId":"order_1","paymentId":"pay_1","signature":"00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signature", decodeError(t, rec).Code)

	sig := payment.Sign("order_1", "pay_1", "secret")
	rec = h.do(t, http.MethodPost, "/api/orders/verify", "u1", fmt.Sprintf(`{"orderId":"order_1","paymentId":"pay_1","signature":%q}`, sig))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/profile", "u1", "")
	assert.Contains(t, rec.Body.String(), `"plan":"premium"`)
}

func TestStatusFor_Storage(t *testing.T) {
	status, code, _ := statusFor(&store.Error{Op: "add history", Err: fmt.Errorf("disk full")})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "storage_failed", code)

	status, code, _ = statusFor(&tutor.PaymentError{Err: fmt.Errorf("502")})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "payment_failed", code)
}

func TestCORS(t *testing.T) {
	h := newHarness(t, 5)
	req := httptest.NewRequest(http.MethodOptions, "/api/quiz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
