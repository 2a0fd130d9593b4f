package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultSpeechVoice = "Algenib"
	defaultPCMRate     = 24000
)

// GeminiSpeechProvider turns text into speech with a Gemini TTS model.
// Generate reads the text of the final message and returns
// {"audioDataUri": "data:audio/wav;base64,..."} as Content.
type GeminiSpeechProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiSpeechProvider creates a speech provider. The model defaults to
// the flash TTS preview model.
func NewGeminiSpeechProvider(ctx context.Context, cfg ProviderConfig) (*GeminiSpeechProvider, error) {
	client, err := newGeminiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-tts"
	}
	return &GeminiSpeechProvider{
		client: client,
		model:  resolveModel(model, geminiModels),
	}, nil
}

func (p *GeminiSpeechProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("speech request has no text")
	}
	text := req.Messages[len(req.Messages)-1].Content

	voice := req.Voice
	if voice == "" {
		voice = defaultSpeechVoice
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	blob := firstInlineData(result)
	if blob == nil || len(blob.Data) == 0 {
		return nil, &ErrInvalidResponse{
			Violations: []Violation{{Path: "/", Message: "no audio data"}},
			Err:        fmt.Errorf("no audio in Gemini speech response"),
		}
	}

	wav, err := EncodeWAV(blob.Data, pcmRate(blob.MIMEType), 1, 16)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(map[string]string{
		"audioDataUri": "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech response: %w", err)
	}

	content, err := ValidateJSON(req.Schema, raw)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content:    content,
		Usage:      mapGeminiUsage(result),
		Model:      p.model,
		StopReason: "end",
	}, nil
}

func (p *GeminiSpeechProvider) ModelID() string {
	return p.model
}

func firstInlineData(result *genai.GenerateContentResponse) *genai.Blob {
	for _, c := range result.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part != nil && part.InlineData != nil {
				return part.InlineData
			}
		}
	}
	return nil
}

// pcmRate extracts the sample rate from a MIME type such as
// "audio/L16;codec=pcm;rate=24000".
func pcmRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return defaultPCMRate
}

// EncodeWAV wraps little-endian PCM samples in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 || bitsPerSample <= 0 || bitsPerSample%8 != 0 {
		return nil, fmt.Errorf("invalid PCM format: rate=%d channels=%d bits=%d", sampleRate, channels, bitsPerSample)
	}

	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + len(pcm)),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(len(pcm)),
	}
	for _, field := range header {
		if err := binary.Write(&buf, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("write WAV header: %w", err)
		}
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}
