package intent

// Kind is the classified purpose of an utterance.
type Kind int

const (
	Other Kind = iota
	CreateEvent
	EditEvent
	MoveEvent
	DeleteEvent
	ListEvents
	CheckAvailability
)

var wireNames = map[Kind]string{
	Other:             "otro",
	CreateEvent:       "crear_evento",
	EditEvent:         "editar_evento",
	MoveEvent:         "mover_evento",
	DeleteEvent:       "eliminar_evento",
	ListEvents:        "consultar_eventos",
	CheckAvailability: "disponibilidad",
}

// ParseKind maps an NLU intent name to a Kind. Unknown names are Other.
func ParseKind(name string) Kind {
	for k, n := range wireNames {
		if n == name {
			return k
		}
	}
	return Other
}

// String returns the NLU wire name of the kind.
func (k Kind) String() string {
	if n, ok := wireNames[k]; ok {
		return n
	}
	return wireNames[Other]
}

// IsCalendar reports whether the kind maps to a calendar action.
func (k Kind) IsCalendar() bool {
	return k >= CreateEvent && k <= CheckAvailability
}

// Destructive reports whether the kind changes or removes an existing event.
func (k Kind) Destructive() bool {
	switch k {
	case DeleteEvent, EditEvent, MoveEvent:
		return true
	default:
		return false
	}
}

// Entities holds the fields extracted from an utterance. Zero values mean
// "not mentioned".
type Entities struct {
	Title           string   `json:"titulo,omitempty"`
	Date            string   `json:"fecha,omitempty"`
	ResolvedDate    string   `json:"fecha_resuelta,omitempty"`
	Time            string   `json:"hora,omitempty"`
	DurationMinutes int      `json:"duracion_minutos,omitempty"`
	Attendees       []string `json:"participantes,omitempty"`
	Location        string   `json:"ubicacion,omitempty"`
	EventReference  string   `json:"evento_referencia,omitempty"`
}

// DateOrResolved returns the resolved date when present, else the raw date.
func (e Entities) DateOrResolved() string {
	if e.ResolvedDate != "" {
		return e.ResolvedDate
	}
	return e.Date
}

// ParsedIntent represents the interpreted request.
type ParsedIntent struct {
	Kind Kind

	// Confidence is how confident the NLU is (0.0 to 1.0). Informational.
	Confidence float64

	Entities Entities

	// RequiresConfirmation holds the action until the user says yes.
	RequiresConfirmation bool

	// ClarificationPrompt is the NLU's question when critical data is missing.
	ClarificationPrompt string

	// Raw is the original utterance.
	Raw string
}
