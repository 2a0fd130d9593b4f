package flow

import "github.com/abhisek/studypal/internal/llm"

// ChatTurn is one prior message in a conversation.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user model"`
	Content string `json:"content" validate:"required,max=8000"`
}

// StudentProfile personalizes explanations.
type StudentProfile struct {
	Name          string `json:"name,omitempty"`
	GradeLevel    string `json:"gradeLevel,omitempty"`
	LearningStyle string `json:"learningStyle,omitempty"`
}

func chatMessages(turns []ChatTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == "model" {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}

func stringArray(desc string, minItems, maxItems int) map[string]any {
	s := map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string", "minLength": 1},
		"description": desc,
	}
	if minItems > 0 {
		s["minItems"] = minItems
	}
	if maxItems > 0 {
		s["maxItems"] = maxItems
	}
	return s
}

func nonEmpty(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}
