// Package llm defines the text-completion boundary used to interpret
// messages and phrase replies, plus a registry of provider implementations.
package llm

import (
	"context"
	"fmt"

	"github.com/drewdunne/agenda/internal/config"
)

// Completer sends a prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names a registered Completer implementation.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// Factory is a function that creates a Completer.
type Factory func(cfg config.LLMConfig) Completer

// registry holds registered completer factories by provider.
var registry = make(map[Provider]Factory)

// Register registers a completer factory for a provider.
func Register(provider Provider, factory Factory) {
	registry[provider] = factory
}

// New creates a completer for the configured provider.
func New(cfg config.LLMConfig) (Completer, error) {
	factory, ok := registry[Provider(cfg.Provider)]
	if !ok {
		return nil, fmt.Errorf("llm provider %q not registered (import _ \"github.com/drewdunne/agenda/internal/llm/%s\")", cfg.Provider, cfg.Provider)
	}
	return factory(cfg), nil
}
