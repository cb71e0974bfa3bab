package intent

import (
	"fmt"
	"time"
)

const systemPrompt = `Eres un asistente que analiza mensajes para detectar intenciones de calendario.

Tu trabajo es:
1. Detectar si el mensaje tiene una intención relacionada con calendario
2. Extraer las entidades relevantes (fecha, hora, título, participantes, etc.)
3. Responder SOLO en formato JSON válido

Intenciones posibles:
- crear_evento: Usuario quiere agendar algo nuevo
- editar_evento: Usuario quiere cambiar un evento existente
- mover_evento: Usuario quiere cambiar fecha/hora de un evento
- eliminar_evento: Usuario quiere cancelar/borrar un evento
- consultar_eventos: Usuario pregunta qué tiene agendado
- disponibilidad: Usuario pregunta si está libre
- otro: No es sobre calendario

Formato de respuesta JSON:
{
    "intencion": "crear_evento|editar_evento|mover_evento|eliminar_evento|consultar_eventos|disponibilidad|otro",
    "confianza": 0.0-1.0,
    "entidades": {
        "titulo": "nombre del evento si aplica",
        "fecha": "YYYY-MM-DD si se menciona",
        "hora": "HH:MM si se menciona",
        "duracion_minutos": numero si se menciona,
        "participantes": ["email1", "email2"] si se mencionan,
        "ubicacion": "lugar si se menciona",
        "evento_referencia": "descripción del evento que se quiere modificar/eliminar"
    },
    "requiere_confirmacion": true/false,
    "mensaje_aclaracion": "pregunta si falta información crítica"
}

Reglas:
- Si no se especifica año, asume %d
- Si dice "mañana", "pasado mañana", "el viernes", calcula la fecha
- Si la hora es ambigua (ej: "a las 3"), pide aclaración AM/PM
- Para eliminar/mover/editar eventos, requiere_confirmacion = true
- Si el mensaje no tiene que ver con calendario, intencion = "otro"`

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

func buildPrompt(utterance string, ref time.Time) string {
	return fmt.Sprintf(systemPrompt, ref.Year()) + fmt.Sprintf(`

Fecha actual: %s
Día de la semana: %s
Hora actual: %s

Mensaje del usuario: %s`,
		ref.Format("2006-01-02"),
		weekdays[ref.Weekday()],
		ref.Format("15:04"),
		utterance)
}
