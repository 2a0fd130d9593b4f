// Package tutor is the caller-facing surface: it charges the quota, runs a
// flow and saves the result to the user's history.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/logger"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/quota"
	"github.com/abhisek/studypal/internal/store"
)

// PremiumConfig prices the premium upgrade.
type PremiumConfig struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Deps are the collaborators of a Service. Limiter and Gateway are
// optional; Profiles, History and Orders come from the document store.
type Deps struct {
	Runner   *flow.Runner
	Limiter  *quota.Limiter
	Profiles store.ProfileRepo
	History  store.HistoryRepo
	Orders   store.OrderRepo
	Gateway  payment.Gateway
	KeyID    string
	Secret   string
	Premium  PremiumConfig
	Log      *logger.Logger
}

// Service runs capabilities on behalf of a user.
type Service struct {
	Deps
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Premium.Currency == "" {
		d.Premium.Currency = "INR"
	}
	return &Service{Deps: d}
}

// generate validates in, charges the quota, runs the flow and records the
// result. History is best effort: a failed save is logged, not returned.
func generate[In, Out any](ctx context.Context, s *Service, userID, name, title string, in In, run func(context.Context, In) (*Out, error), keep bool) (*Out, error) {
	if err := flow.ValidateInput(name, in); err != nil {
		return nil, err
	}
	if err := s.charge(ctx, userID, name); err != nil {
		return nil, err
	}

	out, err := run(ctx, in)
	if err != nil {
		s.Log.Warn("flow failed", "flow", name, "user_id", userID, "kind", string(flow.KindOf(err)), "error", err)
		return nil, err
	}

	if keep && s.History != nil && userID != "" {
		s.record(ctx, userID, name, title, in, out)
	}
	return out, nil
}

func (s *Service) charge(ctx context.Context, userID, name string) error {
	if s.Limiter == nil || userID == "" {
		return nil
	}
	err := s.Limiter.Allow(ctx, userID)
	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		return &flow.Error{Kind: flow.KindRateLimited, Flow: name, Message: exceeded.Error(), Err: err}
	}
	return err
}

func (s *Service) record(ctx context.Context, userID, name, title string, in, out any) {
	input, err := json.Marshal(in)
	if err != nil {
		s.Log.Warn("encoding history input", "flow", name, "error", err)
		return
	}
	output, err := json.Marshal(out)
	if err != nil {
		s.Log.Warn("encoding history output", "flow", name, "error", err)
		return
	}
	item := &store.HistoryItem{UserID: userID, Flow: name, Title: title, Input: input, Output: output}
	if err := s.History.Add(ctx, item); err != nil {
		s.Log.Warn("saving history", "flow", name, "user_id", userID, "error", err)
	}
}

func (s *Service) Explain(ctx context.Context, userID string, in flow.ExplainInput) (*flow.Explanation, error) {
	if in.Profile == nil {
		in.Profile = s.studentProfile(ctx, userID)
	}
	return generate(ctx, s, userID, flow.ExplainTopic.Name, in.Topic, in, s.Runner.Explain, true)
}

func (s *Service) Quiz(ctx context.Context, userID string, in flow.QuizInput) (*flow.Quiz, error) {
	return generate(ctx, s, userID, flow.GenerateQuiz.Name, in.Topic, in, s.Runner.Quiz, true)
}

func (s *Service) Flashcards(ctx context.Context, userID string, in flow.FlashcardsInput) (*flow.FlashcardSet, error) {
	return generate(ctx, s, userID, flow.GenerateFlashcards.Name, excerpt(in.Text), in, s.Runner.Flashcards, true)
}

func (s *Service) ExamPlan(ctx context.Context, userID string, in flow.ExamPlanInput) (*flow.ExamPlan, error) {
	title := fmt.Sprintf("%s exam on %s", in.Subject, in.ExamDate)
	return generate(ctx, s, userID, flow.PlanExam.Name, title, in, s.Runner.ExamPlan, true)
}

// Grade is not recorded; drills grade many answers per session. A blank
// answer is graded without a model call and is not charged.
func (s *Service) Grade(ctx context.Context, userID string, in flow.GradeInput) (*flow.Grade, error) {
	if err := flow.ValidateInput(flow.GradeAnswer.Name, in); err != nil {
		return nil, err
	}
	if out, ok := flow.GradeAnswer.Shortcut(in); ok {
		return out, nil
	}
	return generate(ctx, s, userID, flow.GradeAnswer.Name, excerpt(in.Question), in, s.Runner.Grade, false)
}

func (s *Service) Progress(ctx context.Context, userID string, in flow.ProgressInput) (*flow.ProgressReport, error) {
	return generate(ctx, s, userID, flow.AnalyzeProgress.Name, in.StudentName, in, s.Runner.Progress, true)
}

// Speech is not recorded; the audio is too large to keep.
func (s *Service) Speech(ctx context.Context, userID string, in flow.SpeechInput) (*flow.Speech, error) {
	return generate(ctx, s, userID, flow.TextToSpeech.Name, excerpt(in.Text), in, s.Runner.Speech, false)
}

func (s *Service) Companion(ctx context.Context, userID string, in flow.CompanionInput) (*flow.CompanionReply, error) {
	return generate(ctx, s, userID, flow.TeacherCompanion.Name, excerpt(in.Message), in, s.Runner.Companion, true)
}

func (s *Service) Topics(ctx context.Context, userID string, in flow.TopicsInput) (*flow.TopicList, error) {
	return generate(ctx, s, userID, flow.ListTopics.Name, in.Subject, in, s.Runner.Topics, true)
}

// Dispatch decodes raw as the input of the named capability and runs it.
func (s *Service) Dispatch(ctx context.Context, userID, name string, raw json.RawMessage) (any, error) {
	switch name {
	case flow.ExplainTopic.Name:
		return dispatch(ctx, name, raw, userID, s.Explain)
	case flow.GenerateQuiz.Name:
		return dispatch(ctx, name, raw, userID, s.Quiz)
	case flow.GenerateFlashcards.Name:
		return dispatch(ctx, name, raw, userID, s.Flashcards)
	case flow.PlanExam.Name:
		return dispatch(ctx, name, raw, userID, s.ExamPlan)
	case flow.GradeAnswer.Name:
		return dispatch(ctx, name, raw, userID, s.Grade)
	case flow.AnalyzeProgress.Name:
		return dispatch(ctx, name, raw, userID, s.Progress)
	case flow.TextToSpeech.Name:
		return dispatch(ctx, name, raw, userID, s.Speech)
	case flow.TeacherCompanion.Name:
		return dispatch(ctx, name, raw, userID, s.Companion)
	case flow.ListTopics.Name:
		return dispatch(ctx, name, raw, userID, s.Topics)
	}
	return nil, &flow.Error{
		Kind:    flow.KindInvalidInput,
		Flow:    name,
		Message: fmt.Sprintf("unknown capability %q (want one of %s)", name, strings.Join(flow.Names(), ", ")),
	}
}

func dispatch[In, Out any](ctx context.Context, name string, raw json.RawMessage, userID string, run func(context.Context, string, In) (*Out, error)) (any, error) {
	var in In
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &flow.Error{Kind: flow.KindInvalidInput, Flow: name, Message: "malformed input: " + err.Error(), Err: err}
	}
	out, err := run(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) studentProfile(ctx context.Context, userID string) *flow.StudentProfile {
	if s.Profiles == nil || userID == "" {
		return nil
	}
	p, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.Log.Warn("loading profile for explanation", "user_id", userID, "error", err)
		}
		return nil
	}
	return &flow.StudentProfile{Name: p.DisplayName, GradeLevel: p.GradeLevel, LearningStyle: p.LearningStyle}
}

// excerpt shortens free text to a history title.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 60
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
