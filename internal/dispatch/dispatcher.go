// Package dispatch runs the conversational state machine: it interprets an
// utterance, holds risky actions until the user confirms them, and executes
// calendar actions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/drewdunne/agenda/internal/calendar"
	"github.com/drewdunne/agenda/internal/conversation"
	"github.com/drewdunne/agenda/internal/intent"
	"github.com/drewdunne/agenda/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultTitle names events created without a title.
	DefaultTitle = "Evento sin título"

	// DefaultDurationMinutes is used when no duration was mentioned.
	DefaultDurationMinutes = 60

	// DefaultCheckTime is the clock time checked when only a date is given.
	DefaultCheckTime = "09:00"

	defaultLookupMax = 10
	defaultListMax   = 5

	dateTimeLayout = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
)

var affirmatives = map[string]bool{
	"sí":       true,
	"si":       true,
	"yes":      true,
	"confirmo": true,
	"ok":       true,
}

// IsAffirmative reports whether reply confirms a pending action. Anything
// else cancels it.
func IsAffirmative(reply string) bool {
	return affirmatives[strings.ToLower(strings.TrimSpace(norm.NFC.String(reply)))]
}

// Dispatcher handles turns for all users.
type Dispatcher struct {
	interpreter intent.Interpreter
	calendar    calendar.Calendar
	store       conversation.Store
	sequencer   *conversation.Sequencer
	logger      *slog.Logger
	lookupMax   int
	listMax     int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLookupMax sets how many upcoming events are searched when resolving an
// event reference.
func WithLookupMax(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.lookupMax = n
		}
	}
}

// WithListMax sets how many events are returned when listing or checking
// availability.
func WithListMax(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.listMax = n
		}
	}
}

// New creates a Dispatcher.
func New(interpreter intent.Interpreter, cal calendar.Calendar, store conversation.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		interpreter: interpreter,
		calendar:    cal,
		store:       store,
		sequencer:   conversation.NewSequencer(),
		logger:      slog.Default(),
		lookupMax:   defaultLookupMax,
		listMax:     defaultListMax,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d
}

// HandleUtterance runs one turn for userID. A pending confirmation turns the
// utterance into its answer; otherwise the utterance is interpreted and
// either executed, held for confirmation, or answered with a question.
// Turns of the same user run one at a time.
func (d *Dispatcher) HandleUtterance(ctx context.Context, userID, text string, now time.Time) (out Outcome) {
	release := d.sequencer.Acquire(userID)
	defer release()

	logger := d.logger.With("user_id", userID, "turn_id", uuid.NewString())
	defer d.finish(logger, &out)

	if _, ok := d.store.Get(userID); ok {
		return d.resolve(ctx, logger, userID, text, now)
	}

	parsed, err := d.interpreter.Interpret(ctx, text, now)
	if err != nil {
		metrics.InterpretationFailed()
		var ie *InterpretationError
		if !errors.As(err, &ie) {
			err = &InterpretationError{Err: err}
		}
		return failure(err)
	}
	metrics.IntentParsed(parsed.Kind.String())
	logger = logger.With("intent", parsed.Kind.String())

	if !parsed.Kind.IsCalendar() {
		return Outcome{Kind: OutcomeOutOfScope, Intent: parsed.Kind, Utterance: text}
	}

	if parsed.RequiresConfirmation {
		pending := conversation.PendingConfirmation{
			ID:        uuid.NewString(),
			Kind:      parsed.Kind,
			Entities:  parsed.Entities,
			CreatedAt: now,
		}
		d.store.Set(userID, pending)
		logger.Info("holding action for confirmation", "pending_id", pending.ID)
		return Outcome{
			Kind:      OutcomeConfirmationRequired,
			Intent:    parsed.Kind,
			Subject:   subject(parsed.Entities),
			Utterance: text,
		}
	}

	if parsed.ClarificationPrompt != "" {
		return Outcome{
			Kind:      OutcomeClarification,
			Intent:    parsed.Kind,
			Question:  parsed.ClarificationPrompt,
			Utterance: text,
		}
	}

	return d.execute(ctx, logger, parsed.Kind, parsed.Entities, now)
}

// ResolveConfirmation answers the pending confirmation of userID. An
// affirmative reply executes the held action; any other reply cancels it.
// Either way the pending entry is gone afterwards.
func (d *Dispatcher) ResolveConfirmation(ctx context.Context, userID, reply string, now time.Time) (out Outcome) {
	release := d.sequencer.Acquire(userID)
	defer release()

	logger := d.logger.With("user_id", userID, "turn_id", uuid.NewString())
	defer d.finish(logger, &out)

	return d.resolve(ctx, logger, userID, reply, now)
}

// Execute performs a calendar action immediately.
func (d *Dispatcher) Execute(ctx context.Context, kind intent.Kind, entities intent.Entities, now time.Time) (out Outcome) {
	defer recoverInto(&out)
	return d.execute(ctx, d.logger, kind, entities, now)
}

func (d *Dispatcher) resolve(ctx context.Context, logger *slog.Logger, userID, reply string, now time.Time) Outcome {
	pending, ok := d.store.Take(userID)
	if !ok {
		return failure(&StateError{UserID: userID})
	}
	logger = logger.With("intent", pending.Kind.String(), "pending_id", pending.ID)

	confirmed := IsAffirmative(reply)
	metrics.ConfirmationAnswered(confirmed)
	if !confirmed {
		return Outcome{Kind: OutcomeCancelled, Intent: pending.Kind, Subject: subject(pending.Entities)}
	}
	return d.execute(ctx, logger, pending.Kind, pending.Entities, now)
}

func (d *Dispatcher) finish(logger *slog.Logger, out *Outcome) {
	if r := recover(); r != nil {
		*out = failure(&BackendError{Op: "dispatch", Err: fmt.Errorf("panic: %v", r)})
	}
	metrics.OutcomeEmitted(string(out.Kind))
	if out.Err != nil {
		logger.Warn("turn failed", "outcome", out.Kind, "error", out.Err)
		return
	}
	logger.Info("turn handled", "outcome", out.Kind)
}

// recoverInto turns a panic from a collaborator into an error outcome so
// that a single faulty turn never takes the process down.
func recoverInto(out *Outcome) {
	if r := recover(); r != nil {
		*out = failure(&BackendError{Op: "dispatch", Err: fmt.Errorf("panic: %v", r)})
	}
}

func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, kind intent.Kind, e intent.Entities, now time.Time) Outcome {
	switch kind {
	case intent.CreateEvent:
		return d.createEvent(ctx, e, now)
	case intent.ListEvents:
		return d.listEvents(ctx, e, now)
	case intent.CheckAvailability:
		return d.checkAvailability(ctx, e, now)
	case intent.DeleteEvent:
		return d.deleteEvent(ctx, logger, e, now)
	case intent.EditEvent, intent.MoveEvent:
		return d.editEvent(ctx, logger, kind, e, now)
	case intent.Other:
		return Outcome{Kind: OutcomeOutOfScope, Intent: kind}
	default:
		return Outcome{Kind: OutcomeOutOfScope, Intent: kind}
	}
}

func (d *Dispatcher) createEvent(ctx context.Context, e intent.Entities, now time.Time) Outcome {
	date := e.DateOrResolved()
	if date == "" {
		return failure(&ValidationError{Field: "fecha", Message: "missing"})
	}
	if e.Time == "" {
		return failure(&ValidationError{Field: "hora", Message: "missing"})
	}
	start, err := at(date, e.Time, now.Location())
	if err != nil {
		return failure(err)
	}

	title := e.Title
	if title == "" {
		title = DefaultTitle
	}
	duration := e.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	ev := calendar.NewEvent{
		Title:           title,
		Start:           start,
		DurationMinutes: duration,
		Location:        e.Location,
		Attendees:       e.Attendees,
	}
	created, err := d.calendar.Create(ctx, ev)
	if err != nil {
		return backendFailure("create", err)
	}
	if created == nil {
		created = &calendar.Event{Title: ev.Title, Start: ev.Start, End: ev.End(), Location: ev.Location}
	}
	return Outcome{Kind: OutcomeCreated, Intent: intent.CreateEvent, Event: created}
}

func (d *Dispatcher) listEvents(ctx context.Context, e intent.Entities, now time.Time) Outcome {
	start := now
	if date := e.DateOrResolved(); date != "" {
		day, err := time.ParseInLocation(dateLayout, date, now.Location())
		if err != nil {
			return failure(&ValidationError{Field: "fecha", Message: fmt.Sprintf("%q is not YYYY-MM-DD", date)})
		}
		start = day
	}

	events, err := d.calendar.List(ctx, start, time.Time{}, d.listMax)
	if err != nil {
		return backendFailure("list", err)
	}
	return Outcome{Kind: OutcomeListed, Intent: intent.ListEvents, Events: events, Date: start}
}

func (d *Dispatcher) checkAvailability(ctx context.Context, e intent.Entities, now time.Time) Outcome {
	start := now
	date := e.DateOrResolved()
	switch {
	case date != "":
		clock := e.Time
		if clock == "" {
			clock = DefaultCheckTime
		}
		t, err := at(date, clock, now.Location())
		if err != nil {
			return failure(err)
		}
		start = t
	case e.Time != "":
		t, err := at(now.Format(dateLayout), e.Time, now.Location())
		if err != nil {
			return failure(err)
		}
		start = t
	}

	duration := e.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	conflicts, err := d.calendar.List(ctx, start, end, d.listMax)
	if err != nil {
		return backendFailure("list", err)
	}
	if len(conflicts) == 0 {
		return Outcome{Kind: OutcomeAvailable, Intent: intent.CheckAvailability, Date: start}
	}
	return Outcome{Kind: OutcomeUnavailable, Intent: intent.CheckAvailability, Date: start, Events: conflicts}
}

func (d *Dispatcher) deleteEvent(ctx context.Context, logger *slog.Logger, e intent.Entities, now time.Time) Outcome {
	match, failed := d.findEvent(ctx, e.EventReference, now)
	if failed != nil {
		return *failed
	}

	if _, err := d.calendar.Delete(ctx, match.ID); err != nil {
		return backendFailure("delete", err)
	}
	logger.Info("event deleted", "event_id", match.ID)
	return Outcome{Kind: OutcomeDeleted, Intent: intent.DeleteEvent, Event: &match}
}

func (d *Dispatcher) editEvent(ctx context.Context, logger *slog.Logger, kind intent.Kind, e intent.Entities, now time.Time) Outcome {
	match, failed := d.findEvent(ctx, e.EventReference, now)
	if failed != nil {
		return *failed
	}

	patch, err := buildPatch(e, match, now.Location())
	if err != nil {
		return failure(err)
	}
	if patch.Empty() {
		return failure(&ValidationError{Field: "cambios", Message: "nothing to change"})
	}

	updated, err := d.calendar.Update(ctx, match.ID, patch)
	if err != nil {
		return backendFailure("update", err)
	}
	logger.Info("event updated", "event_id", match.ID)
	return Outcome{Kind: OutcomeEdited, Intent: kind, Event: &match, Updated: updated}
}

// findEvent resolves a free-text reference against the upcoming events. On
// failure the returned outcome is non-nil.
func (d *Dispatcher) findEvent(ctx context.Context, reference string, now time.Time) (calendar.Event, *Outcome) {
	if strings.TrimSpace(reference) == "" {
		out := failure(&ValidationError{Field: "evento_referencia", Message: "missing"})
		return calendar.Event{}, &out
	}

	events, err := d.calendar.List(ctx, now, time.Time{}, d.lookupMax)
	if err != nil {
		out := backendFailure("list", err)
		return calendar.Event{}, &out
	}

	match, ok := calendar.Match(events, reference)
	if !ok {
		out := failure(&NotFoundError{Reference: reference})
		return calendar.Event{}, &out
	}
	return match, nil
}

// buildPatch turns the mentioned entities into an update. A date with a
// time moves the event to that instant, a date alone keeps its clock time,
// and a time alone keeps its day.
func buildPatch(e intent.Entities, current calendar.Event, loc *time.Location) (calendar.EventPatch, error) {
	var patch calendar.EventPatch

	if e.Title != "" && e.Title != current.Title {
		title := e.Title
		patch.Title = &title
	}
	if e.Location != "" {
		location := e.Location
		patch.Location = &location
	}
	if e.DurationMinutes > 0 {
		duration := e.DurationMinutes
		patch.DurationMinutes = &duration
	}

	date := e.DateOrResolved()
	switch {
	case date != "" && e.Time != "":
		start, err := at(date, e.Time, loc)
		if err != nil {
			return patch, err
		}
		patch.Start = &start
	case date != "":
		day, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			return patch, &ValidationError{Field: "fecha", Message: fmt.Sprintf("%q is not YYYY-MM-DD", date)}
		}
		patch.Start = &day
		patch.KeepTimeOfDay = true
	case e.Time != "":
		start, err := at(current.Start.In(loc).Format(dateLayout), e.Time, loc)
		if err != nil {
			return patch, err
		}
		patch.Start = &start
	}
	return patch, nil
}

// at combines a YYYY-MM-DD date and an HH:MM clock time in loc.
func at(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "fecha/hora",
			Message: fmt.Sprintf("%q %q is not YYYY-MM-DD HH:MM", date, clock),
		}
	}
	return t, nil
}

func backendFailure(op string, err error) Outcome {
	metrics.BackendFailed(op)
	return failure(&BackendError{Op: op, Err: err})
}

// subject names the event a confirmation is about.
func subject(e intent.Entities) string {
	if e.EventReference != "" {
		return e.EventReference
	}
	return e.Title
}
