package ical

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testCodec(t *testing.T, tz string) *Codec {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	return &Codec{
		ProdID:    "-//Clinic//Appointments//EN",
		UIDDomain: "clinic.test",
		Location:  loc,
		Now:       func() time.Time { return fixedNow },
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := testCodec(t, "UTC")
	start := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	in := &storage.CalendarEvent{
		ID:           "5",
		UID:          storage.UIDFor("5", "clinic.test"),
		Summary:      "Check-up, annual",
		Description:  "line one\nline two; more",
		Start:        start,
		End:          start.Add(time.Hour),
		Location:     "Room 3",
		Organizer:    "mailto:desk@clinic.test",
		Status:       storage.StatusCancelled,
		Created:      start.Add(-24 * time.Hour),
		LastModified: start.Add(-time.Hour),
	}

	data, err := c.Encode(in)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "BEGIN:VCALENDAR")
	assert.Contains(t, text, "BEGIN:VEVENT")
	assert.Contains(t, text, "UID:appointment-5@clinic.test")
	assert.Contains(t, text, "DTSTART:20240315T140000Z")
	assert.Contains(t, text, "DTEND:20240315T150000Z")
	assert.Contains(t, text, "STATUS:CANCELLED")
	assert.Contains(t, text, "PRODID:-//Clinic//Appointments//EN")

	out, fields := c.Decode(data, "5")
	assert.True(t, fields.Has(FieldEvent|FieldStart|FieldEnd|FieldSummary|FieldDescription|FieldLocation|FieldStatus))
	assert.Equal(t, in.UID, out.UID)
	assert.Equal(t, in.Summary, out.Summary)
	assert.Equal(t, in.Description, out.Description)
	assert.Equal(t, in.Location, out.Location)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, out.Start.Equal(in.Start))
	assert.True(t, out.End.Equal(in.End))
}

func TestEncodeEmptyOptionalFields(t *testing.T) {
	c := testCodec(t, "UTC")
	start := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	data, err := c.Encode(&storage.CalendarEvent{ID: "1", Start: start, End: start})
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "UID:appointment-1@clinic.test")
	assert.Contains(t, text, "STATUS:CONFIRMED")
	assert.Contains(t, text, "DTSTAMP:20240601T120000Z")
	assert.Contains(t, text, "ORGANIZER:\r\n")
	assert.Contains(t, text, "DESCRIPTION:\r\n")
	assert.Contains(t, text, "LOCATION:\r\n")
}

func TestDecodeUIDComesFromEventID(t *testing.T) {
	c := testCodec(t, "UTC")
	body := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:x\r\nBEGIN:VEVENT\r\nUID:client-chosen\r\nDTSTAMP:20240101T000000Z\r\nDTSTART:20240315T140000Z\r\nDTEND:20240315T150000Z\r\nSUMMARY:Cleaning\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")

	a, _ := c.Decode(body, "77")
	b, _ := c.Decode(body, "77")
	assert.Equal(t, "appointment-77@clinic.test", a.UID)
	assert.Equal(t, a.UID, b.UID)
	assert.Equal(t, "77", a.ID)
	assert.Equal(t, "Cleaning", a.Summary)
}

func TestDecodeFallsBackToLineScan(t *testing.T) {
	c := testCodec(t, "UTC")
	// no VCALENDAR wrapper, bare LF endings and a folded summary
	body := []byte("BEGIN:VEVENT\nDTSTART:20240315T140000Z\nDTEND:20240315T143000Z\nSUMMARY:Root\n  canal\nLOCATION:Room 1\\, east\nSTATUS:tentative\nX-CUSTOM:ignored\nEND:VEVENT\n")

	ev, fields := c.Decode(body, "3")
	assert.True(t, fields.Has(FieldEvent|FieldStart|FieldEnd|FieldSummary|FieldLocation|FieldStatus))
	assert.False(t, fields.Has(FieldDescription))
	assert.Equal(t, "Root canal", ev.Summary)
	assert.Equal(t, "Room 1, east", ev.Location)
	assert.Equal(t, storage.StatusTentative, ev.Status)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC), ev.End.UTC())
}

func TestDecodeDefaults(t *testing.T) {
	c := testCodec(t, "UTC")
	ev, fields := c.Decode([]byte("BEGIN:VEVENT\nSUMMARY:only a title\nDTSTART:not-a-date\nEND:VEVENT\n"), "9")
	assert.True(t, fields.Has(FieldEvent))
	assert.False(t, fields.Has(FieldStart))
	assert.Equal(t, fixedNow, ev.Start)
	assert.Equal(t, fixedNow, ev.End)
	assert.Equal(t, storage.StatusConfirmed, ev.Status)
	assert.Equal(t, "only a title", ev.Summary)

	ev, fields = c.Decode([]byte("BEGIN:VEVENT\nDTSTART:20240101T100000Z\nEND:VEVENT\n"), "9")
	assert.True(t, fields.Has(FieldStart))
	assert.False(t, fields.Has(FieldEnd))
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, fixedNow, ev.End)
}

func TestDecodeGarbage(t *testing.T) {
	c := testCodec(t, "UTC")
	ev, fields := c.Decode([]byte("this is not a calendar"), "1")
	assert.False(t, fields.Has(FieldEvent))
	assert.Equal(t, "appointment-1@clinic.test", ev.UID)
	assert.Equal(t, fixedNow, ev.Start)
}

func TestDecodeIgnoresNonEventComponents(t *testing.T) {
	c := testCodec(t, "UTC")
	body := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:x\r\nBEGIN:VTODO\r\nUID:t\r\nDTSTAMP:20240101T000000Z\r\nSUMMARY:todo\r\nEND:VTODO\r\nEND:VCALENDAR\r\n")
	_, fields := c.Decode(body, "1")
	assert.False(t, fields.Has(FieldEvent))
}

func TestDecodeSkipsAlarmProperties(t *testing.T) {
	c := testCodec(t, "UTC")
	body := []byte("BEGIN:VEVENT\nDTSTART:20240315T140000Z\nBEGIN:VALARM\nDESCRIPTION:reminder\nEND:VALARM\nDESCRIPTION:real notes\nEND:VEVENT\n")
	ev, _ := c.Decode(body, "1")
	assert.Equal(t, "real notes", ev.Description)
}

func TestDecodeFloatingTimeUsesPracticeZone(t *testing.T) {
	c := testCodec(t, "Europe/Berlin")
	body := []byte("BEGIN:VEVENT\nDTSTART:20240315T140000\nDTEND;TZID=America/New_York:20240315T100000\nEND:VEVENT\n")
	ev, fields := c.Decode(body, "1")
	require.True(t, fields.Has(FieldStart|FieldEnd))
	assert.Equal(t, time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC), ev.End.UTC())
}

func TestParseTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, ok := ParseTime("20240101", "", berlin)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, berlin), got)

	got, ok = ParseTime("2024-01-01T10:00:00Z", "", berlin)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got.UTC())

	_, ok = ParseTime("tomorrow", "", berlin)
	assert.False(t, ok)
}

func TestUnescapeText(t *testing.T) {
	assert.Equal(t, "a,b;c\\d\ne", unescapeText(`a\,b\;c\\d\ne`))
	assert.Equal(t, "trailing\\", unescapeText(`trailing\`))
}

func TestTimezoneCalendar(t *testing.T) {
	c := testCodec(t, "Europe/Berlin")
	data, err := c.TimezoneCalendar()
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "BEGIN:VTIMEZONE")
	assert.Contains(t, text, "TZID:Europe/Berlin")
	assert.Contains(t, text, "BEGIN:DAYLIGHT")
	assert.Contains(t, text, "BEGIN:STANDARD")
	assert.Contains(t, text, "TZOFFSETTO:+0200")
	assert.Contains(t, text, "DTSTART:20240331T020000")
	assert.Contains(t, text, "DTSTART:20241027T030000")
}

func TestTimezoneWithoutTransitions(t *testing.T) {
	tz := TimezoneComponent(time.UTC, 2024)
	require.Len(t, tz.Children, 1)
	assert.Equal(t, "STANDARD", tz.Children[0].Name)
	assert.Equal(t, "+0000", tz.Children[0].Props.Get("TZOFFSETFROM").Value)
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+0530", formatOffset(5*3600+30*60))
	assert.Equal(t, "-0800", formatOffset(-8*3600))
	assert.True(t, strings.HasPrefix(formatOffset(0), "+"))
}
