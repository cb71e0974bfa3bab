// Package calendar defines the calendar backend boundary and the matcher
// that resolves free-text event references.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotAuthorized is returned when no OAuth token is available yet.
var ErrNotAuthorized = errors.New("calendar not authorized")

// Event is an entry in the calendar.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Location string
	Status   string
	Link     string
}

// NewEvent describes an event to create.
type NewEvent struct {
	Title           string
	Start           time.Time
	DurationMinutes int
	Description     string
	Location        string
	// Attendees are invited by email. A non-empty list notifies every
	// attendee; an empty list notifies nobody.
	Attendees []string
}

// End returns the end instant of the event.
func (n NewEvent) End() time.Time {
	return n.Start.Add(time.Duration(n.DurationMinutes) * time.Minute)
}

// EventPatch lists the fields of an update. Nil fields keep their current
// value.
type EventPatch struct {
	Title    *string
	Location *string
	// Start moves the event. The current duration is kept unless
	// DurationMinutes is set.
	Start *time.Time
	// KeepTimeOfDay moves the event to Start's date but keeps its current
	// clock time.
	KeepTimeOfDay   bool
	DurationMinutes *int
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Location == nil && p.Start == nil && p.DurationMinutes == nil
}

// Calendar is the calendar backend. Implementations return events in
// chronological order.
type Calendar interface {
	Create(ctx context.Context, ev NewEvent) (*Event, error)
	// List returns up to max events overlapping [start, end). A zero end
	// uses the backend's default range.
	List(ctx context.Context, start, end time.Time, max int) ([]Event, error)
	Update(ctx context.Context, id string, patch EventPatch) (*Event, error)
	Delete(ctx context.Context, id string) (*Event, error)
}
