package dispatch

import (
	"time"

	"github.com/drewdunne/agenda/internal/calendar"
	"github.com/drewdunne/agenda/internal/intent"
)

// OutcomeKind classifies the result of a turn.
type OutcomeKind string

const (
	OutcomeCreated              OutcomeKind = "created"
	OutcomeDeleted              OutcomeKind = "deleted"
	OutcomeEdited               OutcomeKind = "edited"
	OutcomeListed               OutcomeKind = "listed"
	OutcomeAvailable            OutcomeKind = "available"
	OutcomeUnavailable          OutcomeKind = "unavailable"
	OutcomeConfirmationRequired OutcomeKind = "confirmationRequired"
	OutcomeCancelled            OutcomeKind = "cancelled"
	OutcomeClarification        OutcomeKind = "clarification"
	OutcomeError                OutcomeKind = "error"
	OutcomeOutOfScope           OutcomeKind = "outOfScope"
)

// Outcome is the result of one turn. Only the fields relevant to Kind are
// set.
type Outcome struct {
	Kind OutcomeKind

	// Intent is the action the outcome refers to.
	Intent intent.Kind

	// Event is the created event, or the matched event for deletes and
	// edits.
	Event *calendar.Event

	// Updated is the event after an edit or move.
	Updated *calendar.Event

	// Events holds the listed events, or the conflicts when unavailable.
	Events []calendar.Event

	// Date is the listed day or the start of the checked slot.
	Date time.Time

	// Subject names the event a confirmation is about. Empty when the
	// user mentioned neither a reference nor a title.
	Subject string

	// Question is the NLU's clarification question.
	Question string

	// Utterance is the text the turn started from.
	Utterance string

	Err error
}

// Failed reports whether the turn ended in an error.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeError
}

func failure(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}
