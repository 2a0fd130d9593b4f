// Package payment talks to the Razorpay orders API for premium upgrades.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/studypal/internal/logger"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
}

// Config holds Razorpay credentials.
type Config struct {
	KeyID     string        `yaml:"key_id"`
	KeySecret string        `yaml:"key_secret"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// Order is a gateway order. Amount is in the currency's minor unit.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Razorpay is a Gateway backed by the Razorpay REST API.
type Razorpay struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

// NewRazorpay creates a client. Both keys are required.
func NewRazorpay(cfg Config, log *logger.Logger) (*Razorpay, error) {
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.KeySecret = strings.TrimSpace(cfg.KeySecret)
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Razorpay{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("client", "razorpay"),
	}, nil
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder registers a new order. It is not retried: a repeated call
// would create a second order.
func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("razorpay: amount must be positive")
	}
	if currency == "" {
		currency = "INR"
	}

	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt, Notes: notes})
	if err != nil {
		return nil, fmt.Errorf("razorpay: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("razorpay: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var env struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil {
			herr.APIError = env.Error
		}
		r.log.Warn("razorpay order failed", "status", resp.StatusCode, "receipt", receipt)
		return nil, herr
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	r.log.Info("razorpay order created", "order_id", order.ID, "receipt", receipt, "amount", amount)
	return &order, nil
}

// APIError is the error object in a Razorpay error response.
type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Field       string `json:"field,omitempty"`
}

// HTTPError is a non-2xx response from the gateway.
type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *APIError
}

func (e *HTTPError) Error() string {
	if e.APIError != nil && e.APIError.Description != "" {
		return fmt.Sprintf("razorpay http %d: %s (%s)", e.StatusCode, e.APIError.Description, e.APIError.Code)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 1000 {
		msg = msg[:1000] + "..."
	}
	return fmt.Sprintf("razorpay http %d: %s", e.StatusCode, msg)
}

// VerifySignature checks the checkout signature: hex HMAC-SHA256 of
// "orderID|paymentID" keyed with the key secret.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	want := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}

// Sign computes the signature VerifySignature accepts.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
