package flow

import (
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// ExplainInput asks for an explanation of a topic, optionally continuing
// a conversation.
type ExplainInput struct {
	Topic   string          `json:"topic" validate:"required,max=300"`
	Level   string          `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	History []ChatTurn      `json:"history,omitempty" validate:"max=40,dive"`
	Profile *StudentProfile `json:"profile,omitempty"`
}

// Explanation is the explain-topic result.
type Explanation struct {
	Explanation       string   `json:"explanation"`
	KeyPoints         []string `json:"keyPoints"`
	Analogy           string   `json:"analogy"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// ExplanationSchema defines the JSON schema for topic explanations.
var ExplanationSchema = &llm.Schema{
	Name:        "topic-explanation",
	Description: "A clear explanation of a study topic with key points",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": nonEmpty("Explanation pitched at the requested level, in markdown"),
			"keyPoints":   stringArray("The most important takeaways", 1, 8),
			"analogy": map[string]any{
				"type":        "string",
				"description": "An everyday analogy, or empty",
				"default":     "",
			},
			"followUpQuestions": stringArray("Questions the student could ask next", 0, 3),
		},
		"required":             []any{"explanation", "keyPoints", "followUpQuestions"},
		"additionalProperties": false,
	},
}

const explainSystemPrompt = `You are StudyPal, a patient and encouraging tutor. Explain ideas accurately, build from what the student already knows, and avoid jargon unless you define it.`

var explainTemplate = prompt.Must(prompt.Parse("explain-topic", `Explain the topic "{{topic}}" at {{level}} level.
{{#if profile}}
About the student:
{{#if profile.name}}- Name: {{profile.name}}
{{/if}}{{#if profile.gradeLevel}}- Grade: {{profile.gradeLevel}}
{{/if}}{{#if profile.learningStyle}}- Learning style: {{profile.learningStyle}}
{{/if}}{{/if}}
Instructions:
1. Write a clear explanation in markdown (short paragraphs, examples where useful).
2. List 1-8 key points.
3. Give one everyday analogy if it helps; otherwise leave it empty.
4. Suggest up to 3 follow-up questions the student might ask.
{{#if history}}Continue the conversation above: answer the latest question in context.{{/if}}`))

// ExplainTopic explains a topic for a student.
var ExplainTopic = &Flow[ExplainInput, Explanation]{
	Name:        "explain-topic",
	System:      explainSystemPrompt,
	Template:    explainTemplate,
	Schema:      ExplanationSchema,
	MaxTokens:   2048,
	Temperature: 0.6,
	Prepare: func(in ExplainInput) (any, error) {
		if in.Level == "" {
			in.Level = "intermediate"
		}
		return in, nil
	},
	History: func(in ExplainInput) []llm.Message { return chatMessages(in.History) },
}
