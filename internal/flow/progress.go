package flow

import (
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// Activity is one scored study activity.
type Activity struct {
	Activity string `json:"activity" validate:"required,max=100"`
	Topic    string `json:"topic" validate:"required,max=300"`
	Score    int    `json:"score" validate:"min=0,max=100"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ProgressInput asks for an analysis of a student's recent activity.
type ProgressInput struct {
	StudentName string     `json:"studentName" validate:"required,max=100"`
	History     []Activity `json:"history" validate:"min=1,max=200,dive"`
}

// ProgressReport is the analyze-progress result.
type ProgressReport struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
	Trend           string   `json:"trend"`
}

// ProgressSchema defines the JSON schema for progress reports.
var ProgressSchema = &llm.Schema{
	Name:        "progress-report",
	Description: "Analysis of a student's study performance",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":         nonEmpty("Three to five sentence overview"),
			"strengths":       stringArray("Topics or skills the student does well", 0, 5),
			"weaknesses":      stringArray("Topics or skills that need work", 0, 5),
			"recommendations": stringArray("Specific next steps", 1, 5),
			"trend": map[string]any{
				"type": "string",
				"enum": []any{"improving", "stable", "declining"},
			},
		},
		"required":             []any{"summary", "strengths", "weaknesses", "recommendations", "trend"},
		"additionalProperties": false,
	},
}

var progressTemplate = prompt.Must(prompt.Parse("analyze-progress", `Analyze {{studentName}}'s recent study activity.

Activity log (oldest first):
{{#each history}}{{@number}}. {{date}} {{activity}} on "{{topic}}": {{score}}/100
{{/each}}
Identify strengths and weaknesses by topic, recommend 1-5 concrete next steps, and classify the score trend as improving, stable or declining.`))

// AnalyzeProgress summarizes a student's performance history.
var AnalyzeProgress = &Flow[ProgressInput, ProgressReport]{
	Name:        "analyze-progress",
	System:      `You are a learning analyst who gives students honest, motivating feedback.`,
	Template:    progressTemplate,
	Schema:      ProgressSchema,
	MaxTokens:   2048,
	Temperature: 0.4,
}
