package flow

import (
	"fmt"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// DefaultTopicCount is used when TopicsInput.Count is zero.
const DefaultTopicCount = 8

// TopicsInput asks for study topics in a subject.
type TopicsInput struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	GradeLevel string `json:"gradeLevel,omitempty" validate:"max=50"`
	Count      int    `json:"count,omitempty" validate:"omitempty,min=1,max=20"`
}

// Topic is one suggested topic.
type Topic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TopicList is the list-topics result.
type TopicList struct {
	Topics []Topic `json:"topics"`
}

// TopicListSchema defines the JSON schema for topic lists.
var TopicListSchema = &llm.Schema{
	Name:        "topic-list",
	Description: "Study topics for a subject",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 20,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       nonEmpty("Topic name"),
						"description": nonEmpty("One sentence on what it covers"),
					},
					"required":             []any{"title", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"topics"},
		"additionalProperties": false,
	},
}

var topicsTemplate = prompt.Must(prompt.Parse("list-topics", `List up to {{count}} core study topics for {{subject}}{{#if gradeLevel}} at grade {{gradeLevel}}{{/if}}, in a sensible learning order.`))

func topicCount(in TopicsInput) int {
	if in.Count == 0 {
		return DefaultTopicCount
	}
	return in.Count
}

// ListTopics suggests study topics.
var ListTopics = &Flow[TopicsInput, TopicList]{
	Name:        "list-topics",
	System:      `You are a curriculum designer.`,
	Template:    topicsTemplate,
	Schema:      TopicListSchema,
	MaxTokens:   1536,
	Temperature: 0.5,
	Prepare: func(in TopicsInput) (any, error) {
		in.Count = topicCount(in)
		return in, nil
	},
	Check: func(in TopicsInput, out *TopicList) error {
		if n := topicCount(in); len(out.Topics) > n {
			return fmt.Errorf("expected at most %d topics, got %d", n, len(out.Topics))
		}
		return nil
	},
}
