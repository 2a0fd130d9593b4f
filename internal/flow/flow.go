// Package flow defines the tutoring capabilities as typed request/response
// contracts over a model provider.
package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// DefaultMaxRepairs bounds the total generations an exact-count flow makes.
const DefaultMaxRepairs = 3

// Flow is one capability: an input contract, a prompt, an output schema
// and the checks that decide whether a generation is acceptable.
type Flow[In, Out any] struct {
	Name        string
	System      string
	Template    *prompt.Template
	Schema      *llm.Schema
	MaxTokens   int
	Temperature float64

	// MaxRepairs bounds total generations when the count check fails.
	MaxRepairs int

	// Prepare derives the template data from the input. Nil renders the
	// input itself.
	Prepare func(in In) (any, error)

	// History returns prior chat turns sent ahead of the rendered prompt.
	History func(in In) []llm.Message

	// Configure adjusts the request before it is sent.
	Configure func(in In, req *llm.Request)

	// Shortcut answers without a model call when it returns true.
	Shortcut func(in In) (*Out, bool)

	// Check applies semantic rules the schema cannot express. A failure is
	// a ValidationFailed result and is not retried.
	Check func(in In, out *Out) error

	// Expect and Count enforce an exact item count. A mismatch triggers a
	// fresh generation; the result is never truncated or padded.
	Expect func(in In) int
	Count  func(out *Out) int
}

// Run executes the flow. It returns a schema-valid result or an *Error.
func (f *Flow[In, Out]) Run(ctx context.Context, p llm.Provider, in In) (*Out, error) {
	if err := ValidateInput(f.Name, in); err != nil {
		return nil, err
	}

	if f.Shortcut != nil {
		if out, ok := f.Shortcut(in); ok {
			return out, nil
		}
	}

	req, err := f.request(in)
	if err != nil {
		return nil, err
	}

	ctx = llm.WithPurpose(ctx, f.Name)

	attempts := f.MaxRepairs
	if attempts < 1 {
		attempts = DefaultMaxRepairs
	}
	if f.Expect == nil || f.Count == nil {
		attempts = 1
	}

	var want, got int
	for n := 1; n <= attempts; n++ {
		resp, err := p.Generate(ctx, req)
		if err != nil {
			return nil, fromModel(f.Name, err, n)
		}

		var out Out
		if err := json.Unmarshal(resp.Content, &out); err != nil {
			return nil, &Error{Kind: KindValidationFailed, Flow: f.Name, Message: "decode response: " + err.Error(), Attempts: n, Err: err}
		}

		if f.Check != nil {
			if err := f.Check(in, &out); err != nil {
				return nil, &Error{Kind: KindValidationFailed, Flow: f.Name, Message: err.Error(), Attempts: n, Err: err}
			}
		}

		if f.Expect == nil || f.Count == nil {
			return &out, nil
		}
		want, got = f.Expect(in), f.Count(&out)
		if got == want {
			return &out, nil
		}
	}

	return nil, &Error{
		Kind:     KindCountMismatch,
		Flow:     f.Name,
		Message:  fmt.Sprintf("expected %d items, got %d after %d attempts", want, got, attempts),
		Attempts: attempts,
	}
}

func (f *Flow[In, Out]) request(in In) (llm.Request, error) {
	var data any = in
	if f.Prepare != nil {
		d, err := f.Prepare(in)
		if err != nil {
			return llm.Request{}, &Error{Kind: KindInvalidInput, Flow: f.Name, Message: err.Error(), Err: err}
		}
		data = d
	}

	text, err := f.Template.Render(data)
	if err != nil {
		return llm.Request{}, &Error{Kind: KindUnknown, Flow: f.Name, Message: err.Error(), Err: err}
	}

	var msgs []llm.Message
	if f.History != nil {
		msgs = append(msgs, f.History(in)...)
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	req := llm.Request{
		System:      f.System,
		Messages:    msgs,
		Schema:      f.Schema,
		MaxTokens:   f.MaxTokens,
		Temperature: f.Temperature,
	}
	if f.Configure != nil {
		f.Configure(in, &req)
	}
	return req, nil
}
