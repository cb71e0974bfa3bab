// Package transcribe turns voice messages into text.
package transcribe

import (
	"context"
	"errors"
	"strings"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/llm"
	"github.com/drewdunne/agenda/internal/llm/gemini"
)

// ErrEmptyTranscript is returned when the audio produced no words.
var ErrEmptyTranscript = errors.New("empty transcript")

// Transcriber converts audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// New creates the configured transcriber. Transcripts are trimmed, and a
// transcript with no text is reported as ErrEmptyTranscript.
func New(cfg config.TranscriptionConfig, llmCfg config.LLMConfig) Transcriber {
	opts := []gemini.Option{
		gemini.WithRetries(llmCfg.MaxRetries),
		gemini.WithTimeout(llmCfg.Timeout()),
	}
	if llmCfg.Provider == string(llm.ProviderGemini) && llmCfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(llmCfg.BaseURL))
	}
	return Checked(gemini.New(cfg.APIKey, cfg.Model, opts...))
}

// Checked wraps t so that blank transcripts become errors.
func Checked(t Transcriber) Transcriber {
	return checked{next: t}
}

type checked struct {
	next Transcriber
}

func (c checked) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	text, err := c.next.Transcribe(ctx, audio, mimeType)
	if err != nil {
		if errors.Is(err, gemini.ErrEmptyReply) {
			return "", ErrEmptyTranscript
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
