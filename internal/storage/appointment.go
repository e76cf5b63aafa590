package storage

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
	// LocalLayout is the naive practice-local timestamp used for range filters.
	LocalLayout = DateLayout + " " + TimeLayout
)

// Appointment is the stored row. Date and Time are naive values in the
// practice timezone.
type Appointment struct {
	ID              string
	AccountID       string
	Date            string
	Time            string
	DurationMinutes int
	Title           string
	Notes           string
	Location        string
	Organizer       string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// appointment status vocabulary
const (
	apptConfirmed = "confirmed"
	apptPending   = "pending"
	apptCancelled = "cancelled"
)

func appointmentStatus(s Status) string {
	switch s {
	case StatusTentative:
		return apptPending
	case StatusCancelled:
		return apptCancelled
	default:
		return apptConfirmed
	}
}

func eventStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "tentative":
		return StatusTentative
	case "cancelled", "canceled", "no_show":
		return StatusCancelled
	default:
		return StatusConfirmed
	}
}

// AppointmentFromEvent converts an event into a row for accountID.
func (o Options) AppointmentFromEvent(accountID string, ev *CalendarEvent) Appointment {
	loc := o.location()
	start := ev.Start.In(loc)
	// whole minutes, rounded up so a positive span never stores as zero
	dur := 0
	if d := ev.End.Sub(ev.Start); d > 0 {
		dur = int((d + time.Minute - 1) / time.Minute)
	}
	return Appointment{
		ID:              ev.ID,
		AccountID:       accountID,
		Date:            start.Format(DateLayout),
		Time:            start.Format(TimeLayout),
		DurationMinutes: dur,
		Title:           ev.Summary,
		Notes:           ev.Description,
		Location:        ev.Location,
		Organizer:       ev.Organizer,
		Status:          appointmentStatus(ev.Status),
		CreatedAt:       ev.Created.UTC(),
		UpdatedAt:       ev.LastModified.UTC(),
	}
}

// Event converts a stored row back into its calendar view.
func (o Options) Event(a Appointment) (*CalendarEvent, error) {
	loc := o.location()
	start, err := time.ParseInLocation(LocalLayout, a.Date+" "+normalizeClock(a.Time), loc)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	return &CalendarEvent{
		ID:           a.ID,
		UID:          UIDFor(a.ID, o.UIDDomain),
		Summary:      a.Title,
		Description:  a.Notes,
		Start:        start,
		End:          start.Add(time.Duration(a.DurationMinutes) * time.Minute),
		Location:     a.Location,
		Organizer:    a.Organizer,
		Status:       eventStatus(a.Status),
		Created:      a.CreatedAt,
		LastModified: a.UpdatedAt,
	}, nil
}

// LowerBound renders an inclusive range start as a naive practice-local
// timestamp comparable with Date + " " + Time. Stored starts have whole
// seconds, so a fractional bound rounds up.
func (o Options) LowerBound(t time.Time) string {
	if frac := t.Sub(t.Truncate(time.Second)); frac > 0 {
		t = t.Add(time.Second - frac)
	}
	return t.In(o.location()).Format(LocalLayout)
}

// UpperBound renders an inclusive range end; fractions are dropped.
func (o Options) UpperBound(t time.Time) string {
	return t.In(o.location()).Format(LocalLayout)
}

// normalizeClock accepts HH:MM and HH:MM:SS[.fff].
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 5 {
		return s + ":00"
	}
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
