package storage

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentRoundTrip(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	opts := Options{Location: berlin, UIDDomain: "clinic.test"}

	start := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	ev := &CalendarEvent{
		ID:           "42",
		Summary:      "Cleaning",
		Description:  "bring x-rays",
		Start:        start,
		End:          start.Add(45 * time.Minute),
		Location:     "Room 2",
		Status:       StatusTentative,
		Created:      start,
		LastModified: start.Add(time.Second),
	}

	row := opts.AppointmentFromEvent("acct1", ev)
	assert.Equal(t, "2024-03-15", row.Date)
	assert.Equal(t, "14:00:00", row.Time)
	assert.Equal(t, 45, row.DurationMinutes)
	assert.Equal(t, "pending", row.Status)

	back, err := opts.Event(row)
	require.NoError(t, err)
	assert.True(t, back.Start.Equal(ev.Start))
	assert.True(t, back.End.Equal(ev.End))
	assert.Equal(t, "appointment-42@clinic.test", back.UID)
	assert.Equal(t, StatusTentative, back.Status)
	assert.Equal(t, "Room 2", back.Location)
}

func TestDurationRoundsUpToWholeMinutes(t *testing.T) {
	start := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	cases := map[time.Duration]int{
		30 * time.Second:                1,
		time.Minute:                     1,
		90 * time.Second:                2,
		time.Hour:                       60,
		0:                               0,
		-time.Minute:                    0,
		45*time.Minute + time.Nanosecond: 46,
	}
	for d, want := range cases {
		row := Options{}.AppointmentFromEvent("a", &CalendarEvent{ID: "1", Start: start, End: start.Add(d)})
		assert.Equal(t, want, row.DurationMinutes, d.String())
	}
}

func TestEventStatusMapping(t *testing.T) {
	cases := map[string]Status{
		"confirmed": StatusConfirmed,
		"scheduled": StatusConfirmed,
		"completed": StatusConfirmed,
		"pending":   StatusTentative,
		"tentative": StatusTentative,
		"cancelled": StatusCancelled,
		"no_show":   StatusCancelled,
		"":          StatusConfirmed,
	}
	for in, want := range cases {
		assert.Equal(t, want, eventStatus(in), in)
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusCancelled, ParseStatus("cancelled"))
	assert.Equal(t, StatusTentative, ParseStatus(" TENTATIVE "))
	assert.Equal(t, StatusConfirmed, ParseStatus("whatever"))
}

func TestNextModifiedIsStrictlyIncreasing(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := NextModified(time.Time{}, now)
	second := NextModified(first, now)
	third := NextModified(second, now.Add(-time.Hour))

	assert.True(t, second.After(first))
	assert.True(t, third.After(second))
	assert.NotEqual(t, (&CalendarEvent{LastModified: first}).ETag(), (&CalendarEvent{LastModified: second}).ETag())
}

func TestEventAcceptsShortClock(t *testing.T) {
	ev, err := Options{}.Event(Appointment{ID: "1", Date: "2024-05-01", Time: "09:30", DurationMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ev.End)
}

func TestRangeBoundsRespectSecondPrecision(t *testing.T) {
	o := Options{}
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-15 09:00:00", o.LowerBound(at))
	assert.Equal(t, "2024-03-15 09:00:01", o.LowerBound(at.Add(500*time.Millisecond)))
	assert.Equal(t, "2024-03-15 09:00:00", o.UpperBound(at.Add(500*time.Millisecond)))
}
