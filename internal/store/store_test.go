package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock makes timestamps deterministic and lets tests step time.
func fixedClock(s *Store, start time.Time) func(time.Duration) {
	now := start
	s.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"profiles", "history_items", "llm_request_events", "payment_orders", "usage_counters"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		require.NoError(t, err)
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestProfileUpsertKeepsPlan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ProfileRepo()
	step := fixedClock(s, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	_, err := repo.Get(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	p, err := repo.Upsert(ctx, &Profile{UserID: "u1", DisplayName: "Asha", GradeLevel: "8"})
	require.NoError(t, err)
	assert.Equal(t, PlanFree, p.Plan)
	assert.Equal(t, "Asha", p.DisplayName)

	require.NoError(t, repo.SetPlan(ctx, "u1", PlanPremium))

	step(time.Hour)
	p, err = repo.Upsert(ctx, &Profile{UserID: "u1", DisplayName: "Asha R", LearningStyle: "visual"})
	require.NoError(t, err)
	assert.Equal(t, PlanPremium, p.Plan)
	assert.Equal(t, "Asha R", p.DisplayName)
	assert.Equal(t, "visual", p.LearningStyle)
	assert.True(t, p.UpdatedAt.After(p.CreatedAt))
}

func TestSetPlanCreatesProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ProfileRepo().SetPlan(ctx, "new-user", PlanPremium))
	p, err := s.ProfileRepo().Get(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, PlanPremium, p.Plan)
}

func TestHistoryLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.HistoryRepo()
	step := fixedClock(s, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	for _, flow := range []string{"explain-topic", "generate-quiz", "explain-topic"} {
		require.NoError(t, repo.Add(ctx, &HistoryItem{
			UserID: "u1",
			Flow:   flow,
			Title:  flow,
			Input:  json.RawMessage(`{"topic":"cells"}`),
			Output: json.RawMessage(`{"ok":true}`),
		}))
		step(time.Minute)
	}
	require.NoError(t, repo.Add(ctx, &HistoryItem{UserID: "u2", Flow: "explain-topic", Input: json.RawMessage(`{}`), Output: json.RawMessage(`{}`)}))

	all, err := repo.List(ctx, "u1", HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")
	assert.JSONEq(t, `{"topic":"cells"}`, string(all[0].Input))

	explains, err := repo.List(ctx, "u1", HistoryFilter{Flow: "explain-topic", Limit: 1})
	require.NoError(t, err)
	require.Len(t, explains, 1)

	item, err := repo.Get(ctx, "u1", all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "generate-quiz", item.Flow)

	// Other users cannot see or delete it.
	_, err = repo.Get(ctx, "u2", all[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "u2", all[1].ID), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "u1", all[1].ID))
	_, err = repo.Get(ctx, "u1", all[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.OrderRepo()

	require.NoError(t, repo.Create(ctx, &PaymentOrder{
		OrderID: "order_1", UserID: "u1", Receipt: "rcpt_1", Amount: 49900, Currency: "INR",
	}))

	o, err := repo.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, OrderCreated, o.Status)
	assert.Equal(t, int64(49900), o.Amount)

	require.NoError(t, repo.MarkPaid(ctx, "order_1", "pay_1"))
	o, err = repo.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, OrderPaid, o.Status)
	assert.Equal(t, "pay_1", o.PaymentID)

	assert.ErrorIs(t, repo.MarkPaid(ctx, "missing", "pay_2"), ErrNotFound)
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsageCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.UsageRepo()

	n, err := repo.Count(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 1; i <= 3; i++ {
		n, err = repo.Increment(ctx, "u1", "2026-03-01")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err = repo.Increment(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Count(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.EventRepo()

	events := []LLMRequestEventData{
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "explain-topic", Tier: "primary", Attempt: 1, InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "[user]\nhi", ResponseBody: `{"a":1}`},
		{Provider: "gemini", Model: "gemini-2.5-flash", Purpose: "generate-quiz", Tier: "primary", Attempt: 1, InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: false, ErrorMessage: "overloaded"},
		{Provider: "gemini", Model: "gemini-2.5-flash-lite", Purpose: "generate-quiz", Tier: "fallback", Attempt: 1, InputTokens: 20, OutputTokens: 30, LatencyMs: 300, Success: true},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "fallback", got[0].Tier, "newest first")
	assert.Equal(t, int64(3), got[0].Sequence)

	quiz, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "generate-quiz", Limit: 1})
	require.NoError(t, err)
	require.Len(t, quiz, 1)

	after, err := repo.QueryLLMEvents(ctx, QueryOpts{After: 1})
	require.NoError(t, err)
	assert.Len(t, after, 2)

	failed, err := repo.QueryLLMEvents(ctx, QueryOpts{Failed: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "overloaded", failed[0].ErrorMessage)

	first := got[2]
	e, err := repo.GetLLMEvent(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "[user]\nhi", e.RequestBody)
	assert.Equal(t, `{"a":1}`, e.ResponseBody)

	_, err = repo.GetLLMEvent(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "explain-topic", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[1].Calls)
	assert.Equal(t, 30, byPurpose[1].InputTokens)
	assert.Equal(t, int64(200), byPurpose[1].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "gemini-2.5-flash", byModel[0].Model)
	assert.Equal(t, 2, byModel[0].Calls)
}

func TestErrorWrapping(t *testing.T) {
	s := openTestStore(t)
	_, err := s.HistoryRepo().Get(context.Background(), "u", "nope")

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get history", se.Op)
	assert.ErrorIs(t, err, ErrNotFound)
}
