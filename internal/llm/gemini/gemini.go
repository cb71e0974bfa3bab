// Package gemini implements llm.Completer and voice transcription over the
// Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const transcribeInstruction = "Transcribe el siguiente audio al español. Solo devuelve el texto transcrito, sin explicaciones adicionales."

// ErrEmptyReply is returned when the model produced no text.
var ErrEmptyReply = errors.New("empty response from API")

// Ensure Client implements llm.Completer.
var _ llm.Completer = (*Client)(nil)

func init() {
	llm.Register(llm.ProviderGemini, func(cfg config.LLMConfig) llm.Completer {
		opts := []Option{WithRetries(cfg.MaxRetries)}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.TimeoutSeconds > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout()))
		}
		return New(cfg.APIKey, cfg.Model, opts...)
	})
}

// Client talks to a single Gemini model.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	maxRetries  int
	temperature float64
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithRetries sets the number of attempts.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// New creates a Gemini client.
func New(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a text prompt and returns the model's reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []Part{{Text: prompt}})
}

// Transcribe converts recorded speech into text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("no audio to transcribe")
	}
	text, err := c.generate(ctx, []Part{
		{Text: transcribeInstruction},
		{InlineData: &InlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(audio)}},
	})
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, parts []Part) (string, error) {
	reqJSON, err := json.Marshal(generateRequest{
		Contents:         []Content{{Role: "user", Parts: parts}},
		GenerationConfig: GenerationConfig{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	body, err := llm.Do(ctx, c.client, c.maxRetries, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqJSON))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
