package ical

import (
	"bytes"
	"time"

	"github.com/emersion/go-ical"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

const (
	ContentType = "text/calendar; charset=utf-8"

	utcLayout      = "20060102T150405Z"
	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// Fields records which VEVENT properties a decode found and could read.
type Fields uint8

const (
	FieldEvent Fields = 1 << iota
	FieldStart
	FieldEnd
	FieldSummary
	FieldDescription
	FieldLocation
	FieldStatus
)

func (f Fields) Has(x Fields) bool { return f&x == x }

// Codec converts between CalendarEvent and single-VEVENT iCalendar text.
type Codec struct {
	ProdID    string
	UIDDomain string
	// Location interprets floating and date-only values.
	Location *time.Location
	Now      func() time.Time
}

func (c *Codec) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func newCalendar(prodID string) *ical.Calendar {
	cal := &ical.Calendar{
		Component: &ical.Component{
			Name:  ical.CompCalendar,
			Props: ical.Props{},
		},
	}
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	return cal
}

func setUTC(props ical.Props, name string, t time.Time) {
	props.Set(valueProp(name, t.UTC().Format(utcLayout)))
}

func encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode renders ev as a VCALENDAR holding one VEVENT. All timestamps are
// written in UTC. Empty text fields and ORGANIZER are still emitted with an
// empty value.
func (c *Codec) Encode(ev *storage.CalendarEvent) ([]byte, error) {
	cal := newCalendar(c.ProdID)

	vevent := &ical.Component{
		Name:  ical.CompEvent,
		Props: ical.Props{},
	}
	uid := ev.UID
	if uid == "" {
		uid = storage.UIDFor(ev.ID, c.UIDDomain)
	}
	stamp := ev.LastModified
	if stamp.IsZero() {
		stamp = c.now()
	}
	status := ev.Status
	if status == "" {
		status = storage.StatusConfirmed
	}

	vevent.Props.SetText(ical.PropUID, uid)
	setUTC(vevent.Props, ical.PropDateTimeStamp, stamp)
	setUTC(vevent.Props, ical.PropDateTimeStart, ev.Start)
	setUTC(vevent.Props, ical.PropDateTimeEnd, ev.End)
	vevent.Props.SetText(ical.PropSummary, ev.Summary)
	vevent.Props.SetText(ical.PropDescription, ev.Description)
	vevent.Props.SetText(ical.PropLocation, ev.Location)
	vevent.Props.SetText(ical.PropStatus, string(status))
	if !ev.Created.IsZero() {
		setUTC(vevent.Props, ical.PropCreated, ev.Created)
	}
	if !ev.LastModified.IsZero() {
		setUTC(vevent.Props, ical.PropLastModified, ev.LastModified)
	}
	vevent.Props.Set(valueProp(ical.PropOrganizer, ev.Organizer))

	cal.Children = []*ical.Component{vevent}
	return encode(cal)
}

// Decode reads the first VEVENT of data into an event named eventID. It
// never fails: malformed input falls back to a line scan and anything
// unreadable keeps its default. A missing DTSTART or DTEND becomes now.
// The UID is always derived from eventID.
func (c *Codec) Decode(data []byte, eventID string) (*storage.CalendarEvent, Fields) {
	ev := &storage.CalendarEvent{
		ID:     eventID,
		UID:    storage.UIDFor(eventID, c.UIDDomain),
		Status: storage.StatusConfirmed,
	}

	props, ok := c.parseComponent(data)
	if !ok {
		props = scanEvent(data)
	}

	var f Fields
	if props != nil {
		f |= FieldEvent
		f |= c.apply(ev, props)
	}

	if !f.Has(FieldStart) {
		ev.Start = c.now()
	}
	if !f.Has(FieldEnd) {
		ev.End = c.now()
	}
	return ev, f
}

// parseComponent decodes with go-ical and flattens the first VEVENT.
func (c *Codec) parseComponent(data []byte) (map[string]rawProp, bool) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil || cal == nil {
		return nil, false
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		out := make(map[string]rawProp)
		for _, name := range mutableProps {
			prop := child.Props.Get(name)
			if prop == nil {
				continue
			}
			rp := rawProp{value: prop.Value, tzid: prop.Params.Get(ical.ParamTimezoneID)}
			if isTextProp(name) {
				if text, err := prop.Text(); err == nil {
					rp.value = text
					rp.unescaped = true
				}
			}
			out[name] = rp
		}
		return out, true
	}
	return nil, false
}

func (c *Codec) apply(ev *storage.CalendarEvent, props map[string]rawProp) Fields {
	var f Fields
	loc := c.location()

	if p, ok := props[ical.PropDateTimeStart]; ok {
		if t, ok := ParseTime(p.value, p.tzid, loc); ok {
			ev.Start = t
			f |= FieldStart
		}
	}
	if p, ok := props[ical.PropDateTimeEnd]; ok {
		if t, ok := ParseTime(p.value, p.tzid, loc); ok {
			ev.End = t
			f |= FieldEnd
		}
	}
	if p, ok := props[ical.PropSummary]; ok {
		ev.Summary = p.text()
		f |= FieldSummary
	}
	if p, ok := props[ical.PropDescription]; ok {
		ev.Description = p.text()
		f |= FieldDescription
	}
	if p, ok := props[ical.PropLocation]; ok {
		ev.Location = p.text()
		f |= FieldLocation
	}
	if p, ok := props[ical.PropStatus]; ok {
		ev.Status = storage.ParseStatus(p.text())
		f |= FieldStatus
	}
	return f
}

// ParseTime reads an iCalendar DATE or DATE-TIME value. Floating and
// date-only values are placed in loc, or in tzid when it names a known zone.
// RFC 3339 is accepted as a last resort.
func ParseTime(value, tzid string, loc *time.Location) (time.Time, bool) {
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(utcLayout, value); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(floatingLayout, value, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
