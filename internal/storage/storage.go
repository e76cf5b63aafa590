package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Status is the iCalendar STATUS of an event.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusTentative Status = "TENTATIVE"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus maps an iCalendar STATUS value onto Status. Unknown or empty
// values become CONFIRMED.
func ParseStatus(s string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusTentative:
		return StatusTentative
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusConfirmed
	}
}

// CalendarEvent is the calendar view of one appointment.
type CalendarEvent struct {
	ID           string // appointment id, also the resource name
	UID          string
	Summary      string
	Description  string
	Start        time.Time
	End          time.Time
	Location     string
	Organizer    string
	Status       Status
	Created      time.Time
	LastModified time.Time
}

// ETag is the unquoted entity tag, derived from LastModified.
func (e *CalendarEvent) ETag() string {
	return strconv.FormatInt(e.LastModified.UnixMicro(), 10)
}

// NextModified returns the LastModified value for a write at now that
// follows prev. The result is strictly after prev at microsecond precision.
func NextModified(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Microsecond)
	if !prev.IsZero() && !next.After(prev) {
		next = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return next
}

// UIDFor derives the stable iCalendar UID of an appointment.
func UIDFor(id, domain string) string {
	if domain == "" {
		domain = "appointment-dav"
	}
	return "appointment-" + id + "@" + domain
}

// EventStore is the persistence boundary for appointments seen as events.
// Bounds passed to ListEvents are inclusive and optional.
type EventStore interface {
	ListEvents(ctx context.Context, accountID string, start, end *time.Time) ([]*CalendarEvent, error)
	GetEvent(ctx context.Context, accountID, eventID string) (*CalendarEvent, error)
	UpsertEvent(ctx context.Context, accountID string, ev *CalendarEvent) error
	DeleteEvent(ctx context.Context, accountID, eventID string) error
	Ping(ctx context.Context) error
	Close()
}

// Options controls how stored appointments are mapped to events.
type Options struct {
	Location  *time.Location
	UIDDomain string
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}
