package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(uid, summary string, start time.Time) *ical.Calendar {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, start)
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(45*time.Minute))
	ev.Props.SetText(ical.PropSummary, summary)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//e2e//EN")
	cal.Children = append(cal.Children, ev.Component)
	return cal
}

func TestCalDAVClientRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t, testConfig("basic"), &fakeDir{users: map[string]string{"alice": "pw"}})
	srv := httptest.NewServer(r)
	defer srv.Close()

	hc := webdav.HTTPClientWithBasicAuth(http.DefaultClient, "alice", "pw")
	client, err := caldav.NewClient(hc, srv.URL+"/caldav/")
	require.NoError(t, err)
	ctx := context.Background()

	const calendar = "/caldav/acct1/appointments/"
	day := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	for i, summary := range []string{"Checkup", "Cleaning", "Filling"} {
		path := calendar + "appointment-" + string(rune('1'+i)) + ".ics"
		co, err := client.PutCalendarObject(ctx, path, newEvent("client-uid", summary, day.AddDate(0, 0, i)))
		require.NoError(t, err)
		assert.NotEmpty(t, co.ETag)
	}

	got, err := client.GetCalendarObject(ctx, calendar+"appointment-2.ics")
	require.NoError(t, err)
	events := got.Data.Events()
	require.Len(t, events, 1)
	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Cleaning", summary)
	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "appointment-2@clinic.test", uid)

	objs, err := client.QueryCalendar(ctx, calendar, &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: day.AddDate(0, 0, 1).Add(-time.Hour),
				End:   day.AddDate(0, 0, 2).Add(-time.Hour),
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, calendar+"appointment-2.ics", objs[0].Path)
	assert.Equal(t, got.ETag, objs[0].ETag)
}
