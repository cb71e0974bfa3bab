package respond

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drewdunne/agenda/internal/calendar"
	"github.com/drewdunne/agenda/internal/dispatch"
	"github.com/drewdunne/agenda/internal/intent"
)

const (
	dayLayout   = "02/01/2006"
	clockLayout = "15:04"

	// placeholder names the event when the user mentioned none.
	placeholder = "este evento"
)

// Welcome returns the greeting sent on /start.
func Welcome() string {
	return `👋 ¡Hola! Soy tu asistente de calendario.

Puedo ayudarte a:
📅 Agendar eventos
🔍 Consultar tu calendario
✏️ Editar o mover citas
🗑️ Cancelar eventos

¿En qué te puedo ayudar?`
}

// Template renders an outcome with the fixed Spanish templates.
func Template(out dispatch.Outcome) string {
	switch out.Kind {
	case dispatch.OutcomeCreated, dispatch.OutcomeDeleted, dispatch.OutcomeEdited:
		if out.Event == nil {
			return "Operación completada."
		}
	}

	switch out.Kind {
	case dispatch.OutcomeCreated:
		ev := out.Event
		return fmt.Sprintf("✅ ¡Listo! Agendé '%s' para el %s a las %s.",
			ev.Title, ev.Start.Format(dayLayout), ev.Start.Format(clockLayout))
	case dispatch.OutcomeDeleted:
		return fmt.Sprintf("🗑️ Eliminé el evento '%s' de tu calendario.", out.Event.Title)
	case dispatch.OutcomeEdited:
		msg := fmt.Sprintf("✏️ Actualicé el evento '%s'.", out.Event.Title)
		if out.Intent == intent.MoveEvent && out.Updated != nil && !out.Updated.Start.IsZero() {
			msg += fmt.Sprintf(" Ahora es el %s a las %s.",
				out.Updated.Start.Format(dayLayout), out.Updated.Start.Format(clockLayout))
		}
		return msg
	case dispatch.OutcomeListed:
		return fmt.Sprintf("📅 Eventos del %s:\n\n%s", out.Date.Format(dayLayout), Events(out.Events))
	case dispatch.OutcomeAvailable:
		return fmt.Sprintf("✅ Estás libre el %s a las %s.", out.Date.Format(dayLayout), out.Date.Format(clockLayout))
	case dispatch.OutcomeUnavailable:
		titles := make([]string, 0, len(out.Events))
		for _, ev := range out.Events {
			titles = append(titles, ev.Title)
		}
		return "⚠️ Tienes conflicto: " + strings.Join(titles, ", ")
	case dispatch.OutcomeConfirmationRequired:
		return Confirmation(out.Intent, out.Subject)
	case dispatch.OutcomeCancelled:
		return "❌ Operación cancelada."
	case dispatch.OutcomeClarification:
		return "🤔 " + out.Question
	case dispatch.OutcomeError:
		return Error(out.Err)
	case dispatch.OutcomeOutOfScope:
		return "📅 Solo puedo ayudarte con tu calendario. ¿Necesitas agendar algo?"
	default:
		return "Operación completada."
	}
}

// Confirmation asks the user to confirm a held action.
func Confirmation(kind intent.Kind, subject string) string {
	if subject == "" {
		subject = placeholder
	}
	var question string
	switch kind {
	case intent.DeleteEvent:
		question = fmt.Sprintf("❓ ¿Confirmas que quieres eliminar '%s'?", subject)
	case intent.MoveEvent:
		question = fmt.Sprintf("❓ ¿Confirmas que quieres mover '%s'?", subject)
	case intent.EditEvent:
		question = fmt.Sprintf("❓ ¿Confirmas los cambios a '%s'?", subject)
	default:
		question = fmt.Sprintf("❓ ¿Confirmas esta acción sobre '%s'?", subject)
	}
	return question + "\nResponde 'sí' para confirmar."
}

// Events renders one line per event, or a notice when there are none.
func Events(events []calendar.Event) string {
	if len(events) == 0 {
		return "📭 No tienes eventos programados."
	}
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		clock := "todo el día"
		if !ev.AllDay {
			clock = ev.Start.Format(clockLayout)
		}
		lines = append(lines, fmt.Sprintf("• %s - %s", clock, ev.Title))
	}
	return strings.Join(lines, "\n")
}

// Error explains a failed turn.
func Error(err error) string {
	var (
		ie *dispatch.InterpretationError
		ve *dispatch.ValidationError
		nf *dispatch.NotFoundError
		be *dispatch.BackendError
		se *dispatch.StateError
	)
	switch {
	case errors.As(err, &se):
		return "🤷 No hay nada pendiente por confirmar."
	case errors.Is(err, calendar.ErrNotAuthorized):
		return "🔒 Aún no tengo acceso a tu calendario. Usa /autorizar para conectarlo."
	case errors.As(err, &ie):
		return "😅 Hubo un problema: no pude entender tu mensaje. ¿Puedes decirlo de otra forma?"
	case errors.As(err, &ve):
		return "😅 Hubo un problema: " + missing(ve.Field)
	case errors.As(err, &nf):
		return fmt.Sprintf("😅 Hubo un problema: no encontré un evento que coincida con \"%s\".", nf.Reference)
	case errors.As(err, &be):
		return "😅 Hubo un problema con el calendario: " + be.Err.Error()
	case err != nil:
		return "😅 Hubo un problema: " + err.Error()
	default:
		return "😅 Hubo un problema inesperado."
	}
}

func missing(field string) string {
	switch field {
	case "fecha":
		return "necesito la fecha del evento."
	case "hora":
		return "necesito la hora del evento."
	case "fecha/hora":
		return "no entendí la fecha u hora. Usa por ejemplo \"mañana a las 15:00\"."
	case "evento_referencia":
		return "no sé a qué evento te refieres."
	case "cambios":
		return "no me dijiste qué quieres cambiar."
	default:
		return "faltan datos: " + field + "."
	}
}
