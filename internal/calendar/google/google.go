// Package google implements the calendar backend over the Google Calendar
// v3 API.
package google

import (
	"context"
	"fmt"
	"time"

	"github.com/drewdunne/agenda/internal/calendar"
	"github.com/drewdunne/agenda/internal/config"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// Authorizer supplies the OAuth token source for calendar calls. It returns
// calendar.ErrNotAuthorized until the operator has completed the flow.
type Authorizer interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// Ensure Client implements calendar.Calendar.
var _ calendar.Calendar = (*Client)(nil)

// Client talks to one Google calendar.
type Client struct {
	calendarID string
	loc        *time.Location
	rangeDays  int
	auth       Authorizer
	clientOpts []option.ClientOption
}

// Option configures a Client.
type Option func(*Client)

// WithClientOptions appends options used when building the API service.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// New creates a Client. The API service is built on every call so that a
// token stored after start-up is picked up without a restart.
func New(cfg config.CalendarConfig, loc *time.Location, auth Authorizer, opts ...Option) *Client {
	c := &Client{
		calendarID: cfg.CalendarID,
		loc:        loc,
		rangeDays:  cfg.ListRangeDays,
		auth:       auth,
	}
	if c.calendarID == "" {
		c.calendarID = "primary"
	}
	if c.rangeDays <= 0 {
		c.rangeDays = 7
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) service(ctx context.Context) (*gcal.Service, error) {
	opts := c.clientOpts
	if c.auth != nil {
		ts, err := c.auth.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

// Create inserts an event. Attendees are notified only when there are any.
func (c *Client) Create(ctx context.Context, ev calendar.NewEvent) (*calendar.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	body := &gcal.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       c.dateTime(ev.Start),
		End:         c.dateTime(ev.End()),
	}
	for _, email := range ev.Attendees {
		body.Attendees = append(body.Attendees, &gcal.EventAttendee{Email: email})
	}

	sendUpdates := "none"
	if len(ev.Attendees) > 0 {
		sendUpdates = "all"
	}

	created, err := svc.Events.Insert(c.calendarID, body).SendUpdates(sendUpdates).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	out := c.toEvent(created)
	return &out, nil
}

// List returns expanded single events starting at start in chronological
// order. A zero end lists the configured number of days.
func (c *Client) List(ctx context.Context, start, end time.Time, max int) ([]calendar.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	if end.IsZero() {
		end = start.AddDate(0, 0, c.rangeDays)
	}

	call := svc.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if max > 0 {
		call = call.MaxResults(int64(max))
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]calendar.Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, c.toEvent(item))
	}
	return events, nil
}

// Update fetches the event, applies the patch and writes it back. Fields the
// patch leaves nil keep their current value, and a moved event keeps its
// duration unless the patch sets one.
func (c *Client) Update(ctx context.Context, id string, patch calendar.EventPatch) (*calendar.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting event %s: %w", id, err)
	}

	if patch.Title != nil {
		existing.Summary = *patch.Title
	}
	if patch.Location != nil {
		existing.Location = *patch.Location
	}
	if patch.Start != nil || patch.DurationMinutes != nil {
		c.reschedule(existing, patch)
	}

	updated, err := svc.Events.Update(c.calendarID, id, existing).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("updating event %s: %w", id, err)
	}
	out := c.toEvent(updated)
	return &out, nil
}

func (c *Client) reschedule(ev *gcal.Event, patch calendar.EventPatch) {
	cur := c.toEvent(ev)
	duration := cur.End.Sub(cur.Start)
	if patch.DurationMinutes != nil {
		duration = time.Duration(*patch.DurationMinutes) * time.Minute
	}

	start := cur.Start
	keepAllDay := cur.AllDay
	if patch.Start != nil {
		target := patch.Start.In(c.loc)
		if patch.KeepTimeOfDay {
			y, m, d := target.Date()
			start = time.Date(y, m, d, cur.Start.Hour(), cur.Start.Minute(), cur.Start.Second(), 0, c.loc)
		} else {
			start = target
			keepAllDay = false
		}
	}

	if keepAllDay {
		days := int(duration.Hours() / 24)
		if days < 1 {
			days = 1
		}
		ev.Start = &gcal.EventDateTime{Date: start.Format(dateLayout)}
		ev.End = &gcal.EventDateTime{Date: start.AddDate(0, 0, days).Format(dateLayout)}
		return
	}
	ev.Start = c.dateTime(start)
	ev.End = c.dateTime(start.Add(duration))
}

// Delete removes the event and returns it as it was before deletion.
func (c *Client) Delete(ctx context.Context, id string) (*calendar.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting event %s: %w", id, err)
	}
	if err := svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("deleting event %s: %w", id, err)
	}
	out := c.toEvent(existing)
	return &out, nil
}

func (c *Client) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.In(c.loc).Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
}

func (c *Client) toEvent(ev *gcal.Event) calendar.Event {
	out := calendar.Event{
		ID:       ev.Id,
		Title:    ev.Summary,
		Location: ev.Location,
		Status:   ev.Status,
		Link:     ev.HtmlLink,
	}
	out.Start, out.AllDay = c.parseTime(ev.Start)
	out.End, _ = c.parseTime(ev.End)
	return out
}

// parseTime reads a timed or all-day boundary. The bool reports all-day.
func (c *Client) parseTime(dt *gcal.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(c.loc), false
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation(dateLayout, dt.Date, c.loc)
		if err != nil {
			return time.Time{}, true
		}
		return t, true
	}
	return time.Time{}, false
}
