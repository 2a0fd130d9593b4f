package flow

import (
	"strings"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// GradeInput asks for a student's answer to be graded.
type GradeInput struct {
	Question    string `json:"question" validate:"required,max=4000"`
	ModelAnswer string `json:"modelAnswer" validate:"required,max=8000"`
	UserAnswer  string `json:"userAnswer" validate:"max=8000"`
}

// Grade is the grade-answer result.
type Grade struct {
	IsCorrect    bool     `json:"isCorrect"`
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Improvements []string `json:"improvements"`
}

// GradeSchema defines the JSON schema for grading results.
var GradeSchema = &llm.Schema{
	Name:        "answer-grade",
	Description: "A grade and feedback for a student's answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isCorrect": map[string]any{"type": "boolean"},
			"score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"feedback":  nonEmpty("Encouraging, specific feedback for the student"),
			"improvements": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    5,
				"description": "What would make the answer complete",
				"default":     []any{},
			},
		},
		"required":             []any{"isCorrect", "score", "feedback"},
		"additionalProperties": false,
	},
}

var gradeTemplate = prompt.Must(prompt.Parse("grade-answer", `Grade the student's answer against the model answer.

Question:
{{question}}

Model answer:
{{modelAnswer}}

Student answer:
{{userAnswer}}

Judge meaning, not wording. Score 0-100. isCorrect is true when the answer captures the essential idea. Feedback must be specific and kind.`))

const blankAnswerFeedback = "No answer was given. Try writing down what you remember, even a partial answer earns credit."

// GradeAnswer grades a free-text answer. A blank answer is marked incorrect
// without a model call.
var GradeAnswer = &Flow[GradeInput, Grade]{
	Name:        "grade-answer",
	System:      `You are a fair, encouraging examiner.`,
	Template:    gradeTemplate,
	Schema:      GradeSchema,
	MaxTokens:   1024,
	Temperature: 0.2,
	Shortcut: func(in GradeInput) (*Grade, bool) {
		if strings.TrimSpace(in.UserAnswer) != "" {
			return nil, false
		}
		return &Grade{
			IsCorrect:    false,
			Score:        0,
			Feedback:     blankAnswerFeedback,
			Improvements: []string{"Compare your recall with the model answer: " + in.ModelAnswer},
		}, true
	},
}
