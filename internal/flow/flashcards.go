package flow

import (
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// FlashcardsInput requests flashcards from study material.
type FlashcardsInput struct {
	Text  string `json:"text" validate:"min=20,max=20000"`
	Count int    `json:"count" validate:"min=1,max=30"`
}

// Flashcard is one front/back pair.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is the generate-flashcards result.
type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// FlashcardSchema defines the JSON schema for flashcard sets.
var FlashcardSchema = &llm.Schema{
	Name:        "flashcard-set",
	Description: "Flashcards drawn from study material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flashcards": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"front": nonEmpty("A question, term or prompt"),
						"back":  nonEmpty("The answer or definition"),
					},
					"required":             []any{"front", "back"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"flashcards"},
		"additionalProperties": false,
	},
}

var flashcardsTemplate = prompt.Must(prompt.Parse("generate-flashcards", `Create exactly {{count}} flashcards from the material below.

Material:
"""
{{text}}
"""

Rules:
- Return exactly {{count}} flashcards, no more and no fewer.
- Each front is a short question or term; each back is a concise answer.
- Cover the most important facts first and do not repeat cards.`))

// GenerateFlashcards creates exactly Count flashcards.
var GenerateFlashcards = &Flow[FlashcardsInput, FlashcardSet]{
	Name:        "generate-flashcards",
	System:      `You turn study material into effective recall flashcards.`,
	Template:    flashcardsTemplate,
	Schema:      FlashcardSchema,
	MaxTokens:   4096,
	Temperature: 0.5,
	Expect:      func(in FlashcardsInput) int { return in.Count },
	Count:       func(out *FlashcardSet) int { return len(out.Flashcards) },
}
