package ical

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

type transition struct {
	at       time.Time
	from, to int
	name     string
	dst      bool
}

// transitions lists the UTC offset changes of loc during year.
func transitions(loc *time.Location, year int) []transition {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(1, 0, 0)

	var out []transition
	_, prev := start.Zone()
	for day := start; day.Before(end); day = day.Add(24 * time.Hour) {
		next := day.Add(24 * time.Hour)
		_, off := next.Zone()
		if off == prev {
			continue
		}
		// narrow down to the second
		lo, hi := day, next
		for hi.Sub(lo) > time.Second {
			mid := lo.Add(hi.Sub(lo) / 2)
			if _, o := mid.Zone(); o == prev {
				lo = mid
			} else {
				hi = mid
			}
		}
		name, _ := hi.Zone()
		out = append(out, transition{at: hi.UTC(), from: prev, to: off, name: name, dst: hi.IsDST()})
		prev = off
	}
	return out
}

func formatOffset(sec int) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	return fmt.Sprintf("%c%02d%02d", sign, sec/3600, (sec%3600)/60)
}

func valueProp(name, value string) *ical.Prop {
	p := ical.NewProp(name)
	p.Value = value
	return p
}

// TimezoneComponent builds a VTIMEZONE describing loc for the given year.
// Recurrence rules are not emitted; each observed transition of that year
// becomes its own STANDARD or DAYLIGHT block.
func TimezoneComponent(loc *time.Location, year int) *ical.Component {
	tz := &ical.Component{
		Name:  ical.CompTimezone,
		Props: ical.Props{},
	}
	tz.Props.Set(valueProp(ical.PropTimezoneID, loc.String()))

	trs := transitions(loc, year)
	if len(trs) == 0 {
		name, off := time.Date(year, 1, 1, 0, 0, 0, 0, loc).Zone()
		trs = []transition{{at: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), from: off, to: off, name: name}}
	}

	for _, tr := range trs {
		kind := ical.CompTimezoneStandard
		if tr.dst {
			kind = ical.CompTimezoneDaylight
		}
		sub := &ical.Component{Name: kind, Props: ical.Props{}}
		// DTSTART is wall-clock time in the offset being left
		local := tr.at.Add(time.Duration(tr.from) * time.Second)
		sub.Props.Set(valueProp(ical.PropDateTimeStart, local.Format(floatingLayout)))
		sub.Props.Set(valueProp(ical.PropTimezoneOffsetFrom, formatOffset(tr.from)))
		sub.Props.Set(valueProp(ical.PropTimezoneOffsetTo, formatOffset(tr.to)))
		if tr.name != "" {
			sub.Props.SetText(ical.PropTimezoneName, tr.name)
		}
		tz.Children = append(tz.Children, sub)
	}
	return tz
}

// TimezoneCalendar wraps the practice timezone in a VCALENDAR, the form
// expected by the CalDAV calendar-timezone property.
func (c *Codec) TimezoneCalendar() ([]byte, error) {
	cal := newCalendar(c.ProdID)
	cal.Children = []*ical.Component{TimezoneComponent(c.location(), c.now().In(c.location()).Year())}
	return encode(cal)
}
