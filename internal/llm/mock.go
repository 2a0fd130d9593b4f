package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrMockExhausted is returned by MockProvider when no responses remain.
var ErrMockExhausted = errors.New("mock provider: no responses queued")

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
// Canned content is validated against the request schema like a real
// provider would.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	model     string
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses, model: "mock"}
}

// NewNamedMockProvider is NewMockProvider with a custom model ID, for
// telling tiers apart.
func NewNamedMockProvider(model string, responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses, model: model}
}

// Generate returns the next canned response, or ErrMockExhausted if the
// queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, ErrMockExhausted
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	content, err := ValidateJSON(req.Schema, resp.Content)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content:    content,
		Usage:      resp.Usage,
		Model:      m.model,
		StopReason: "end",
	}, nil
}

// ModelID returns the configured model name ("mock" by default).
func (m *MockProvider) ModelID() string {
	return m.model
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
