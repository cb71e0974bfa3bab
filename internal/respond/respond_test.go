package respond

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/drewdunne/agenda/internal/calendar"
	"github.com/drewdunne/agenda/internal/dispatch"
	"github.com/drewdunne/agenda/internal/intent"
)

var bogota = time.FixedZone("America/Bogota", -5*60*60)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, bogota)
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name string
		out  dispatch.Outcome
		want string
	}{
		{
			name: "created",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeCreated, Event: &calendar.Event{Title: "reunión", Start: at(10, 15, 0)}},
			want: "✅ ¡Listo! Agendé 'reunión' para el 10/03/2026 a las 15:00.",
		},
		{
			name: "deleted",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeDeleted, Event: &calendar.Event{Title: "Dentista"}},
			want: "🗑️ Eliminé el evento 'Dentista' de tu calendario.",
		},
		{
			name: "edited",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeEdited, Intent: intent.EditEvent, Event: &calendar.Event{Title: "Dentista"}, Updated: &calendar.Event{Start: at(12, 9, 0)}},
			want: "✏️ Actualicé el evento 'Dentista'.",
		},
		{
			name: "moved",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeEdited, Intent: intent.MoveEvent, Event: &calendar.Event{Title: "Dentista"}, Updated: &calendar.Event{Start: at(12, 9, 0)}},
			want: "✏️ Actualicé el evento 'Dentista'. Ahora es el 12/03/2026 a las 09:00.",
		},
		{
			name: "created without event",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeCreated},
			want: "Operación completada.",
		},
		{
			name: "deleted without event",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeDeleted},
			want: "Operación completada.",
		},
		{
			name: "listed",
			out: dispatch.Outcome{Kind: dispatch.OutcomeListed, Date: at(10, 0, 0), Events: []calendar.Event{
				{Title: "Team Sync", Start: at(10, 9, 0)},
				{Title: "Feriado", AllDay: true, Start: at(10, 0, 0)},
			}},
			want: "📅 Eventos del 10/03/2026:\n\n• 09:00 - Team Sync\n• todo el día - Feriado",
		},
		{
			name: "available",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeAvailable, Date: at(11, 9, 0)},
			want: "✅ Estás libre el 11/03/2026 a las 09:00.",
		},
		{
			name: "unavailable",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeUnavailable, Events: []calendar.Event{{Title: "A"}, {Title: "B"}}},
			want: "⚠️ Tienes conflicto: A, B",
		},
		{
			name: "confirmation with subject",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeConfirmationRequired, Intent: intent.DeleteEvent, Subject: "reunión con Juan"},
			want: "❓ ¿Confirmas que quieres eliminar 'reunión con Juan'?\nResponde 'sí' para confirmar.",
		},
		{
			name: "confirmation placeholder",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeConfirmationRequired, Intent: intent.MoveEvent},
			want: "❓ ¿Confirmas que quieres mover 'este evento'?\nResponde 'sí' para confirmar.",
		},
		{
			name: "cancelled",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeCancelled},
			want: "❌ Operación cancelada.",
		},
		{
			name: "clarification",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeClarification, Question: "¿A qué hora?"},
			want: "🤔 ¿A qué hora?",
		},
		{
			name: "out of scope",
			out:  dispatch.Outcome{Kind: dispatch.OutcomeOutOfScope},
			want: "📅 Solo puedo ayudarte con tu calendario. ¿Necesitas agendar algo?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Template(tt.out); got != tt.want {
				t.Errorf("Template() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvents_Empty(t *testing.T) {
	if got := Events(nil); got != "📭 No tienes eventos programados." {
		t.Errorf("Events(nil) = %q", got)
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"state", &dispatch.StateError{UserID: "u1"}, "nada pendiente"},
		{"interpretation", &intent.InterpretationError{Err: errors.New("x")}, "no pude entender"},
		{"validation", &dispatch.ValidationError{Field: "hora", Message: "missing"}, "necesito la hora"},
		{"not found", &dispatch.NotFoundError{Reference: "xyz"}, `"xyz"`},
		{"backend verbatim", &dispatch.BackendError{Op: "delete", Err: errors.New("quota exceeded")}, "quota exceeded"},
		{"not authorized", &dispatch.BackendError{Op: "list", Err: fmt.Errorf("wrapped: %w", calendar.ErrNotAuthorized)}, "/autorizar"},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Error(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormat_Generative(t *testing.T) {
	created := dispatch.Outcome{Kind: dispatch.OutcomeCreated, Event: &calendar.Event{Title: "reunión", Start: at(10, 15, 0)}}

	tests := []struct {
		name      string
		completer *fakeCompleter
		out       dispatch.Outcome
		want      string
		wantCalls int
	}{
		{
			name:      "phrased",
			completer: &fakeCompleter{reply: "  ✅ Agendé tu reunión para mañana 10/03 a las 15:00 \n"},
			out:       created,
			want:      "✅ Agendé tu reunión para mañana 10/03 a las 15:00",
			wantCalls: 1,
		},
		{
			name:      "falls back on error",
			completer: &fakeCompleter{err: errors.New("503")},
			out:       created,
			want:      Template(created),
			wantCalls: 1,
		},
		{
			name:      "falls back on empty",
			completer: &fakeCompleter{reply: "  "},
			out:       created,
			want:      Template(created),
			wantCalls: 1,
		},
		{
			name:      "confirmation keeps template",
			completer: &fakeCompleter{reply: "otra cosa"},
			out:       dispatch.Outcome{Kind: dispatch.OutcomeConfirmationRequired, Intent: intent.DeleteEvent, Subject: "x"},
			want:      Confirmation(intent.DeleteEvent, "x"),
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithCompleter(tt.completer), WithLogger(quiet()))

			if got := f.Format(context.Background(), tt.out); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
			if tt.completer.calls != tt.wantCalls {
				t.Errorf("completer calls = %d, want %d", tt.completer.calls, tt.wantCalls)
			}
		})
	}
}

func TestFormat_PromptCarriesTemplate(t *testing.T) {
	c := &fakeCompleter{reply: "ok"}
	f := New(WithCompleter(c), WithLogger(quiet()))
	out := dispatch.Outcome{Kind: dispatch.OutcomeDeleted, Event: &calendar.Event{Title: "Dentista", Start: at(11, 8, 0)}}

	f.Format(context.Background(), out)

	for _, want := range []string{"## Tipo\ndeleted", "- titulo: Dentista", "- inicio: 2026-03-11 08:00", Template(out)} {
		if !strings.Contains(c.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, c.prompt)
		}
	}
}

func TestFormat_TemplatesOnly(t *testing.T) {
	f := New(WithLogger(quiet()))
	out := dispatch.Outcome{Kind: dispatch.OutcomeCancelled}

	if got := f.Format(context.Background(), out); got != "❌ Operación cancelada." {
		t.Errorf("Format() = %q", got)
	}
}
