package tutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrPaymentsDisabled is returned when no gateway is configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")

	// ErrInvalidSignature is returned when a checkout signature does not
	// match the order.
	ErrInvalidSignature = errors.New("payment signature mismatch")
)

// PaymentError is a gateway failure.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string { return "payment gateway: " + e.Err.Error() }

func (e *PaymentError) Unwrap() error { return e.Err }

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	DisplayName   string `json:"displayName" validate:"max=100"`
	GradeLevel    string `json:"gradeLevel" validate:"max=40"`
	LearningStyle string `json:"learningStyle" validate:"omitempty,oneof=visual auditory reading kinesthetic"`
}

// Account is a profile plus today's quota.
type Account struct {
	store.Profile
	DailyLimit int `json:"dailyLimit"`
	Remaining  int `json:"remaining"`
}

// Profile returns the user's profile. Users without a stored profile get
// an empty free one.
func (s *Service) Profile(ctx context.Context, userID string) (*Account, error) {
	p, err := s.Profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		p, err = &store.Profile{UserID: userID, Plan: store.PlanFree}, nil
	}
	if err != nil {
		return nil, err
	}

	acct := &Account{Profile: *p, Remaining: -1}
	if s.Limiter != nil {
		acct.DailyLimit = s.Limiter.Limit()
		if acct.Remaining, err = s.Limiter.Remaining(ctx, userID); err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// UpdateProfile saves the editable fields and returns the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, u ProfileUpdate) (*store.Profile, error) {
	if err := flow.ValidateInput("profile", u); err != nil {
		return nil, err
	}
	return s.Profiles.Upsert(ctx, &store.Profile{
		UserID:        userID,
		DisplayName:   u.DisplayName,
		GradeLevel:    u.GradeLevel,
		LearningStyle: u.LearningStyle,
	})
}

// ListHistory lists saved results newest first, optionally for one flow.
func (s *Service) ListHistory(ctx context.Context, userID, flowName string, limit int) ([]store.HistoryItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.History.List(ctx, userID, store.HistoryFilter{Flow: flowName, Limit: limit})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.HistoryItem{}
	}
	return items, nil
}

func (s *Service) GetHistoryItem(ctx context.Context, userID, id string) (*store.HistoryItem, error) {
	return s.History.Get(ctx, userID, id)
}

func (s *Service) DeleteHistoryItem(ctx context.Context, userID, id string) error {
	return s.History.Delete(ctx, userID, id)
}

// Checkout is what a client needs to open the payment widget.
type Checkout struct {
	KeyID string              `json:"keyId"`
	Order *store.PaymentOrder `json:"order"`
}

// CreateOrder opens a premium upgrade order for userID.
func (s *Service) CreateOrder(ctx context.Context, userID string) (*Checkout, error) {
	if s.Gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	receipt := "sp_" + uuid.NewString()[:18]
	order, err := s.Gateway.CreateOrder(ctx, s.Premium.Amount, s.Premium.Currency, receipt, map[string]string{
		"user_id": userID,
		"plan":    store.PlanPremium,
	})
	if err != nil {
		return nil, &PaymentError{Err: err}
	}

	rec := &store.PaymentOrder{
		OrderID:  order.ID,
		UserID:   userID,
		Receipt:  receipt,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   store.OrderCreated,
	}
	if err := s.Orders.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.Log.Info("premium order created", "user_id", userID, "order_id", order.ID)
	return &Checkout{KeyID: s.KeyID, Order: rec}, nil
}

// VerifyRequest carries the checkout callback fields.
type VerifyRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyOrder checks the payment signature, marks the order paid and
// upgrades the user to premium. Verifying a paid order again succeeds.
func (s *Service) VerifyOrder(ctx context.Context, userID string, req VerifyRequest) (*store.PaymentOrder, error) {
	if s.Gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if err := flow.ValidateInput("verify-order", req); err != nil {
		return nil, err
	}

	order, err := s.Orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", req.OrderID, store.ErrNotFound)
	}
	if !payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.Secret) {
		s.Log.Warn("payment signature mismatch", "user_id", userID, "order_id", req.OrderID)
		return nil, ErrInvalidSignature
	}

	if order.Status != store.OrderPaid {
		if err := s.Orders.MarkPaid(ctx, req.OrderID, req.PaymentID); err != nil {
			return nil, err
		}
	}
	if err := s.Profiles.SetPlan(ctx, userID, store.PlanPremium); err != nil {
		return nil, err
	}
	s.Log.Info("premium activated", "user_id", userID, "order_id", req.OrderID)

	return s.Orders.Get(ctx, req.OrderID)
}
