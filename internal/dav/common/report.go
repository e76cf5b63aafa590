package common

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/samber/mo"

	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

var ErrUnsupportedReport = errors.New("unsupported report")

type ReportKind int

const (
	CalendarQuery ReportKind = iota
	CalendarMultiget
)

type ReportRequest struct {
	Kind ReportKind
	// Start and End bound event start times, inclusive.
	Start mo.Option[time.Time]
	End   mo.Option[time.Time]
	// CalendarData is set when the client asked for calendar-data, or
	// named no properties at all.
	CalendarData bool
	Hrefs        []string
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func childrenIgnoreNS(parent *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if strings.EqualFold(localName(child.Tag), name) {
			out = append(out, child)
		}
	}
	return out
}

func childIgnoreNS(parent *etree.Element, name string) *etree.Element {
	if els := childrenIgnoreNS(parent, name); len(els) > 0 {
		return els[0]
	}
	return nil
}

// descendantIgnoreNS searches depth first below parent.
func descendantIgnoreNS(parent *etree.Element, name string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if strings.EqualFold(localName(child.Tag), name) {
			return child
		}
		if found := descendantIgnoreNS(child, name); found != nil {
			return found
		}
	}
	return nil
}

func readRoot(body []byte) (*etree.Element, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("parse xml: no root element")
	}
	return root, nil
}

func parseRangeAttr(el *etree.Element, attr string) (mo.Option[time.Time], error) {
	v := strings.TrimSpace(el.SelectAttrValue(attr, ""))
	if v == "" {
		return mo.None[time.Time](), nil
	}
	t, ok := ical.ParseTime(v, "", time.UTC)
	if !ok {
		return mo.None[time.Time](), fmt.Errorf("invalid time-range %s %q", attr, v)
	}
	return mo.Some(t), nil
}

func timeRangeOf(root *etree.Element) (start, end mo.Option[time.Time], err error) {
	start, end = mo.None[time.Time](), mo.None[time.Time]()
	filter := childIgnoreNS(root, "filter")
	if filter == nil {
		return start, end, nil
	}
	tr := descendantIgnoreNS(filter, "time-range")
	if tr == nil {
		return start, end, nil
	}
	if start, err = parseRangeAttr(tr, "start"); err != nil {
		return start, end, err
	}
	if end, err = parseRangeAttr(tr, "end"); err != nil {
		return start, end, err
	}
	return start, end, nil
}

// ParseTimeRange extracts the optional time-range bounds of a
// calendar-query body.
func ParseTimeRange(body []byte) (start, end mo.Option[time.Time], err error) {
	root, err := readRoot(body)
	if err != nil || root == nil {
		return mo.None[time.Time](), mo.None[time.Time](), err
	}
	return timeRangeOf(root)
}

func ParseReport(body []byte) (*ReportRequest, error) {
	root, err := readRoot(body)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New("empty REPORT body")
	}

	rq := &ReportRequest{Start: mo.None[time.Time](), End: mo.None[time.Time]()}
	if prop := childIgnoreNS(root, "prop"); prop != nil {
		rq.CalendarData = childIgnoreNS(prop, "calendar-data") != nil
	} else {
		rq.CalendarData = true
	}

	switch localName(root.Tag) {
	case "calendar-query":
		rq.Kind = CalendarQuery
		rq.Start, rq.End, err = timeRangeOf(root)
		if err != nil {
			return nil, err
		}
	case "calendar-multiget":
		rq.Kind = CalendarMultiget
		for _, href := range childrenIgnoreNS(root, "href") {
			if h := strings.TrimSpace(href.Text()); h != "" {
				rq.Hrefs = append(rq.Hrefs, h)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReport, localName(root.Tag))
	}
	return rq, nil
}

// WantsCalendarData reports whether a PROPFIND body names calendar-data.
// An empty body is an allprop request and does not.
func WantsCalendarData(body []byte) (bool, error) {
	root, err := readRoot(body)
	if err != nil || root == nil {
		return false, err
	}
	prop := childIgnoreNS(root, "prop")
	if prop == nil {
		return false, nil
	}
	return childIgnoreNS(prop, "calendar-data") != nil, nil
}
