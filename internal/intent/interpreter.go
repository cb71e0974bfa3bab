package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/agenda/internal/dates"
	"github.com/drewdunne/agenda/internal/llm"
)

// Interpreter extracts intent from user input.
type Interpreter interface {
	// Interpret classifies utterance and extracts its entities. Relative
	// dates are resolved against ref.
	Interpret(ctx context.Context, utterance string, ref time.Time) (*ParsedIntent, error)
}

// InterpretationError reports that the NLU call failed or returned output
// that could not be parsed. Raw holds the reply for diagnostics.
type InterpretationError struct {
	Raw string
	Err error
}

func (e *InterpretationError) Error() string {
	return fmt.Sprintf("interpreting message: %v", e.Err)
}

func (e *InterpretationError) Unwrap() error {
	return e.Err
}

// Ensure LLMInterpreter implements Interpreter.
var _ Interpreter = (*LLMInterpreter)(nil)

// LLMInterpreter implements Interpreter on top of a language model.
type LLMInterpreter struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewInterpreter creates an interpreter that asks completer for a JSON
// classification of each utterance.
func NewInterpreter(completer llm.Completer, logger *slog.Logger) *LLMInterpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMInterpreter{
		completer: completer,
		logger:    logger.With("component", "interpreter"),
	}
}

// Interpret implements Interpreter. Every failure is an *InterpretationError.
func (p *LLMInterpreter) Interpret(ctx context.Context, utterance string, ref time.Time) (*ParsedIntent, error) {
	reply, err := p.completer.Complete(ctx, buildPrompt(utterance, ref))
	if err != nil {
		return nil, &InterpretationError{Err: err}
	}

	wire, fallback, err := decodeReply(reply)
	if err != nil {
		p.logger.Warn("unparsable NLU reply", "error", err, "raw", reply)
		return nil, &InterpretationError{Raw: reply, Err: err}
	}
	if fallback {
		p.logger.Debug("NLU reply recovered from surrounding text", "raw", reply)
	}

	parsed := normalize(wire, utterance)
	if parsed.Entities.Date != "" {
		parsed.Entities.ResolvedDate = dates.Resolve(parsed.Entities.Date, ref)
	}
	return parsed, nil
}

// normalize converts the wire shape into a ParsedIntent. Destructive kinds
// always require confirmation, whatever the NLU said.
func normalize(w *wireIntent, utterance string) *ParsedIntent {
	kind := ParseKind(strings.TrimSpace(w.Intencion))

	confidence := float64(w.Confianza)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	var attendees []string
	for _, a := range w.Entidades.Participantes {
		if a = strings.TrimSpace(a); a != "" {
			attendees = append(attendees, a)
		}
	}

	duration := int(w.Entidades.DuracionMinutos)
	if duration < 0 {
		duration = 0
	}

	return &ParsedIntent{
		Kind:       kind,
		Confidence: confidence,
		Entities: Entities{
			Title:           strings.TrimSpace(w.Entidades.Titulo),
			Date:            strings.TrimSpace(w.Entidades.Fecha),
			Time:            strings.TrimSpace(w.Entidades.Hora),
			DurationMinutes: duration,
			Attendees:       attendees,
			Location:        strings.TrimSpace(w.Entidades.Ubicacion),
			EventReference:  strings.TrimSpace(w.Entidades.EventoReferencia),
		},
		RequiresConfirmation: w.RequiereConfirmacion || kind.Destructive(),
		ClarificationPrompt:  strings.TrimSpace(w.MensajeAclaracion),
		Raw:                  utterance,
	}
}
