package flow

import (
	"context"

	"github.com/abhisek/studypal/internal/llm"
)

// Config holds flow execution settings.
type Config struct {
	// MaxRepairs overrides each flow's exact-count attempt bound when > 0.
	MaxRepairs int `yaml:"max_repairs"`
}

// DefaultConfig returns sensible defaults for flow execution.
func DefaultConfig() Config {
	return Config{MaxRepairs: DefaultMaxRepairs}
}

// Names lists every capability in a stable order.
func Names() []string {
	return []string{
		ExplainTopic.Name,
		GenerateQuiz.Name,
		GenerateFlashcards.Name,
		PlanExam.Name,
		GradeAnswer.Name,
		AnalyzeProgress.Name,
		TextToSpeech.Name,
		TeacherCompanion.Name,
		ListTopics.Name,
	}
}

// Runner executes every capability against injected providers. Text flows
// use the text provider; text-to-speech uses the speech provider.
type Runner struct {
	text   llm.Provider
	speech llm.Provider
	cfg    Config
}

// NewRunner creates a Runner. speech may be nil when text-to-speech is not
// configured.
func NewRunner(text, speech llm.Provider, cfg Config) *Runner {
	return &Runner{text: text, speech: speech, cfg: cfg}
}

func run[In, Out any](ctx context.Context, r *Runner, f *Flow[In, Out], p llm.Provider, in In) (*Out, error) {
	if p == nil {
		return nil, &Error{Kind: KindUnknown, Flow: f.Name, Message: "no provider configured"}
	}
	fc := *f
	if r.cfg.MaxRepairs > 0 {
		fc.MaxRepairs = r.cfg.MaxRepairs
	}
	return fc.Run(ctx, p, in)
}

// Explain runs explain-topic.
func (r *Runner) Explain(ctx context.Context, in ExplainInput) (*Explanation, error) {
	return run(ctx, r, ExplainTopic, r.text, in)
}

// Quiz runs generate-quiz.
func (r *Runner) Quiz(ctx context.Context, in QuizInput) (*Quiz, error) {
	return run(ctx, r, GenerateQuiz, r.text, in)
}

// Flashcards runs generate-flashcards.
func (r *Runner) Flashcards(ctx context.Context, in FlashcardsInput) (*FlashcardSet, error) {
	return run(ctx, r, GenerateFlashcards, r.text, in)
}

// ExamPlan runs exam-plan.
func (r *Runner) ExamPlan(ctx context.Context, in ExamPlanInput) (*ExamPlan, error) {
	return run(ctx, r, PlanExam, r.text, in)
}

// Grade runs grade-answer.
func (r *Runner) Grade(ctx context.Context, in GradeInput) (*Grade, error) {
	return run(ctx, r, GradeAnswer, r.text, in)
}

// Progress runs analyze-progress.
func (r *Runner) Progress(ctx context.Context, in ProgressInput) (*ProgressReport, error) {
	return run(ctx, r, AnalyzeProgress, r.text, in)
}

// Speech runs text-to-speech on the speech provider.
func (r *Runner) Speech(ctx context.Context, in SpeechInput) (*Speech, error) {
	return run(ctx, r, TextToSpeech, r.speech, in)
}

// Companion runs teacher-companion.
func (r *Runner) Companion(ctx context.Context, in CompanionInput) (*CompanionReply, error) {
	return run(ctx, r, TeacherCompanion, r.text, in)
}

// Topics runs list-topics.
func (r *Runner) Topics(ctx context.Context, in TopicsInput) (*TopicList, error) {
	return run(ctx, r, ListTopics, r.text, in)
}
