// Package respond turns turn outcomes into the Spanish replies sent to the
// user.
package respond

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/agenda/internal/dispatch"
	"github.com/drewdunne/agenda/internal/llm"
)

const defaultPhraseTimeout = 10 * time.Second

// phrased lists the outcome kinds the model may rephrase. Lists,
// confirmations and questions keep their exact wording.
var phrased = map[dispatch.OutcomeKind]bool{
	dispatch.OutcomeCreated:     true,
	dispatch.OutcomeDeleted:     true,
	dispatch.OutcomeEdited:      true,
	dispatch.OutcomeAvailable:   true,
	dispatch.OutcomeUnavailable: true,
	dispatch.OutcomeError:       true,
	dispatch.OutcomeOutOfScope:  true,
}

// Formatter renders outcomes, optionally rephrased by a language model.
type Formatter struct {
	completer llm.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithCompleter enables rephrasing with the given model. Templates are used
// whenever the model fails.
func WithCompleter(c llm.Completer) Option {
	return func(f *Formatter) {
		f.completer = c
	}
}

// WithTimeout bounds each rephrasing call.
func WithTimeout(d time.Duration) Option {
	return func(f *Formatter) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Formatter) {
		f.logger = logger
	}
}

// New creates a Formatter. Without WithCompleter it only uses templates.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		timeout: defaultPhraseTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "respond")
	return f
}

// Format returns the reply for out.
func (f *Formatter) Format(ctx context.Context, out dispatch.Outcome) string {
	base := Template(out)
	if f.completer == nil || !phrased[out.Kind] {
		return base
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	text, err := f.completer.Complete(ctx, buildPrompt(out, base))
	if err != nil {
		f.logger.Warn("rephrasing failed, using template", "outcome", out.Kind, "error", err)
		return base
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return base
	}
	return text
}
