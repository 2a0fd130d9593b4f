package store

import (
	"context"
	"encoding/json"
	"time"
)

// Plans.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Payment order states.
const (
	OrderCreated = "created"
	OrderPaid    = "paid"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match
	Failed  bool      // only unsuccessful calls
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	Tier         string
	Attempt      int
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a stored LLM request event.
type LLMEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates LLM usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to the LLM audit trail.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event by ID, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Profile is a learner's profile document.
type Profile struct {
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	GradeLevel    string    `json:"gradeLevel"`
	LearningStyle string    `json:"learningStyle"`
	Plan          string    `json:"plan"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfileRepo stores learner profiles.
type ProfileRepo interface {
	// Get returns the profile for userID, or ErrNotFound.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Upsert creates or updates the editable profile fields. The plan
	// is left untouched on update.
	Upsert(ctx context.Context, p *Profile) (*Profile, error)

	// SetPlan changes the user's plan, creating the profile if needed.
	SetPlan(ctx context.Context, userID, plan string) error
}

// HistoryItem is one saved generation result.
type HistoryItem struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Flow      string          `json:"flow"`
	Title     string          `json:"title"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryFilter narrows a history listing.
type HistoryFilter struct {
	Flow  string
	Limit int
}

// HistoryRepo stores generation history per user.
type HistoryRepo interface {
	Add(ctx context.Context, item *HistoryItem) error

	// List returns the user's items newest first.
	List(ctx context.Context, userID string, f HistoryFilter) ([]HistoryItem, error)

	// Get returns one item owned by userID, or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*HistoryItem, error)

	// Delete removes one item owned by userID, or returns ErrNotFound.
	Delete(ctx context.Context, userID, id string) error
}

// PaymentOrder is a premium-upgrade order created with the gateway.
type PaymentOrder struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	Receipt   string    `json:"receipt"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	PaymentID string    `json:"paymentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderRepo stores payment orders.
type OrderRepo interface {
	Create(ctx context.Context, o *PaymentOrder) error

	// Get returns the order, or ErrNotFound.
	Get(ctx context.Context, orderID string) (*PaymentOrder, error)

	// MarkPaid records the payment against the order.
	MarkPaid(ctx context.Context, orderID, paymentID string) error
}

// UsageRepo counts generations per user per day.
type UsageRepo interface {
	// Increment adds one to the (user, day) counter and returns the new value.
	Increment(ctx context.Context, userID, day string) (int, error)

	// Count returns the current (user, day) value, zero if absent.
	Count(ctx context.Context, userID, day string) (int, error)
}
