package respond

import (
	"fmt"
	"strings"

	"github.com/drewdunne/agenda/internal/dispatch"
)

const persona = `Eres una asistente de calendario amigable y profesional.
Tu estilo:
- Amable y cálida, usa emojis con moderación (📅, ✅, 🕐)
- Profesional pero no robótica
- Breve y directa`

// buildPrompt asks the model to rephrase the template reply for out.
func buildPrompt(out dispatch.Outcome, base string) string {
	var parts []string

	parts = append(parts, persona)
	parts = append(parts, fmt.Sprintf("## Tipo\n%s", out.Kind))

	if facts := buildFacts(out); len(facts) > 0 {
		parts = append(parts, "## Datos\n"+strings.Join(facts, "\n"))
	}

	parts = append(parts, fmt.Sprintf("## Respuesta base\n%s", base))
	parts = append(parts, `## Instrucciones
- Reescribe la respuesta base en 1-2 oraciones.
- Conserva todos los datos (títulos, fechas, horas) sin cambiarlos.
- Solo texto plano con emojis, sin markdown.`)

	return strings.Join(parts, "\n\n")
}

func buildFacts(out dispatch.Outcome) []string {
	var facts []string
	if out.Event != nil {
		facts = append(facts, "- titulo: "+out.Event.Title)
		if !out.Event.Start.IsZero() {
			facts = append(facts, "- inicio: "+out.Event.Start.Format("2006-01-02 15:04"))
		}
	}
	if out.Updated != nil && !out.Updated.Start.IsZero() {
		facts = append(facts, "- nuevo inicio: "+out.Updated.Start.Format("2006-01-02 15:04"))
	}
	if !out.Date.IsZero() {
		facts = append(facts, "- fecha: "+out.Date.Format("2006-01-02 15:04"))
	}
	for _, ev := range out.Events {
		facts = append(facts, "- conflicto: "+ev.Title)
	}
	if out.Err != nil {
		facts = append(facts, "- error: "+Error(out.Err))
	}
	return facts
}
