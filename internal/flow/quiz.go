package flow

import (
	"fmt"
	"slices"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// QuizInput requests a multiple-choice quiz.
type QuizInput struct {
	Topic      string `json:"topic" validate:"required,max=300"`
	Count      int    `json:"count" validate:"min=1,max=20"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	SourceText string `json:"sourceText,omitempty" validate:"max=20000"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is the generate-quiz result.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// QuizSchema defines the JSON schema for quizzes.
var QuizSchema = &llm.Schema{
	Name:        "quiz",
	Description: "A multiple-choice quiz",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question":      nonEmpty("The question text"),
						"options":       stringArray("Exactly four answer options", 4, 4),
						"correctAnswer": nonEmpty("The correct option, copied verbatim from options"),
						"explanation":   nonEmpty("Why the correct answer is right"),
					},
					"required":             []any{"question", "options", "correctAnswer", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

var quizTemplate = prompt.Must(prompt.Parse("generate-quiz", `Create a quiz of exactly {{count}} {{difficulty}} multiple-choice questions about "{{topic}}".
{{#if sourceText}}
Base every question on this material:
"""
{{sourceText}}
"""
{{/if}}
Rules:
- Return exactly {{count}} questions.
- Each question has exactly 4 distinct options.
- correctAnswer must be copied verbatim from options.
- Vary which option position is correct.
- Give a one or two sentence explanation for each answer.`))

// GenerateQuiz creates a multiple-choice quiz with exactly Count questions.
var GenerateQuiz = &Flow[QuizInput, Quiz]{
	Name:        "generate-quiz",
	System:      `You are an experienced teacher who writes fair, unambiguous quiz questions.`,
	Template:    quizTemplate,
	Schema:      QuizSchema,
	MaxTokens:   4096,
	Temperature: 0.7,
	Check: func(_ QuizInput, out *Quiz) error {
		for i, q := range out.Questions {
			if !slices.Contains(q.Options, q.CorrectAnswer) {
				return fmt.Errorf("question %d: correct answer %q is not one of the options", i+1, q.CorrectAnswer)
			}
		}
		return nil
	},
	Expect: func(in QuizInput) int { return in.Count },
	Count:  func(out *Quiz) int { return len(out.Questions) },
}
