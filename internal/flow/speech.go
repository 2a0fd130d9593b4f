package flow

import (
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// SpeechInput asks for text to be read aloud.
type SpeechInput struct {
	Text  string `json:"text" validate:"min=1,max=5000"`
	Voice string `json:"voice,omitempty" validate:"max=50"`
}

// Speech is the text-to-speech result.
type Speech struct {
	AudioDataURI string `json:"audioDataUri"`
}

// SpeechSchema defines the JSON schema for synthesized audio.
var SpeechSchema = &llm.Schema{
	Name:        "speech-audio",
	Description: "Synthesized speech as a WAV data URI",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"audioDataUri": map[string]any{
				"type":    "string",
				"pattern": "^data:audio/wav;base64,",
			},
		},
		"required":             []any{"audioDataUri"},
		"additionalProperties": false,
	},
}

// TextToSpeech synthesizes speech. It must run on the speech provider,
// which has no fallback tier.
var TextToSpeech = &Flow[SpeechInput, Speech]{
	Name:     "text-to-speech",
	Template: prompt.Must(prompt.Parse("text-to-speech", "{{text}}")),
	Schema:   SpeechSchema,
	Configure: func(in SpeechInput, req *llm.Request) {
		req.Voice = in.Voice
	},
}
