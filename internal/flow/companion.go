package flow

import (
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// ClassContext describes the teacher's class.
type ClassContext struct {
	GradeLevel string `json:"gradeLevel,omitempty" validate:"max=50"`
	Subject    string `json:"subject,omitempty" validate:"max=200"`
	Size       int    `json:"size,omitempty" validate:"min=0,max=500"`
	Notes      string `json:"notes,omitempty" validate:"max=2000"`
}

// CompanionInput is a teacher's message to the classroom assistant.
type CompanionInput struct {
	Message      string        `json:"message" validate:"required,max=8000"`
	Mode         string        `json:"mode" validate:"required,oneof=lesson-plan activity-ideas differentiation assessment general"`
	ClassContext *ClassContext `json:"classContext,omitempty"`
	History      []ChatTurn    `json:"history,omitempty" validate:"max=40,dive"`
}

// CompanionReply is the teacher-companion result.
type CompanionReply struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
}

// CompanionSchema defines the JSON schema for companion replies.
var CompanionSchema = &llm.Schema{
	Name:        "companion-reply",
	Description: "A classroom assistant reply for a teacher",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply":       nonEmpty("The answer, in markdown"),
			"suggestions": stringArray("Short follow-up prompts the teacher might send next", 0, 5),
		},
		"required":             []any{"reply", "suggestions"},
		"additionalProperties": false,
	},
}

var companionTemplate = prompt.Must(prompt.Parse("teacher-companion", `Mode: {{mode}}
{{#if classContext}}
Class:
{{#if classContext.gradeLevel}}- Grade: {{classContext.gradeLevel}}
{{/if}}{{#if classContext.subject}}- Subject: {{classContext.subject}}
{{/if}}{{#if classContext.size}}- Students: {{classContext.size}}
{{/if}}{{#if classContext.notes}}- Notes: {{classContext.notes}}
{{/if}}{{/if}}
Teacher's message:
{{message}}`))

const companionSystemPrompt = `You are a teaching assistant for school teachers. Depending on the mode you:
- lesson-plan: draft structured lesson plans with objectives, timing and materials;
- activity-ideas: propose engaging classroom activities;
- differentiation: adapt material for different learner needs;
- assessment: design questions, rubrics and checks for understanding;
- general: answer teaching questions.
Be practical and concise.`

// TeacherCompanion answers a teacher in the selected assistance mode.
var TeacherCompanion = &Flow[CompanionInput, CompanionReply]{
	Name:        "teacher-companion",
	System:      companionSystemPrompt,
	Template:    companionTemplate,
	Schema:      CompanionSchema,
	MaxTokens:   3072,
	Temperature: 0.7,
	History:     func(in CompanionInput) []llm.Message { return chatMessages(in.History) },
}
