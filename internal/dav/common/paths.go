package common

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrMissingAccount = errors.New("missing account id")
	ErrBadPath        = errors.New("bad path")
)

const DefaultCalendarID = "appointments"

const eventPrefix = "appointment-"

// ResourcePath is a request path split into its CalDAV parts. EventID is
// empty when the path names the calendar collection.
type ResourcePath struct {
	AccountID  string
	CalendarID string
	EventID    string
}

func (p ResourcePath) IsCollection() bool { return p.EventID == "" }

// ResolvePath maps {basePath}/{account}/{calendar}/{file} onto a
// ResourcePath. The calendar segment defaults to defaultCalendar and the
// file segment loses its .ics suffix and appointment- prefix.
func ResolvePath(urlPath, basePath, defaultCalendar string) (ResourcePath, error) {
	var rp ResourcePath
	basePath = strings.TrimRight(basePath, "/")
	if urlPath != basePath && !strings.HasPrefix(urlPath, basePath+"/") {
		return rp, ErrBadPath
	}
	rest := strings.Trim(strings.TrimPrefix(urlPath, basePath), "/")
	if rest == "" {
		return rp, ErrMissingAccount
	}

	segs := strings.Split(rest, "/")
	if len(segs) > 3 {
		return rp, ErrBadPath
	}
	for _, s := range segs {
		if !SafeSegment(s) {
			return rp, ErrBadPath
		}
	}

	rp.AccountID = segs[0]
	rp.CalendarID = defaultCalendar
	if rp.CalendarID == "" {
		rp.CalendarID = DefaultCalendarID
	}
	if len(segs) > 1 {
		rp.CalendarID = segs[1]
	}
	if len(segs) > 2 {
		rp.EventID = EventIDFromFile(segs[2])
		if rp.EventID == "" {
			return rp, ErrBadPath
		}
	}
	return rp, nil
}

// ResolveHref is ResolvePath for hrefs found in request bodies, which may be
// absolute URLs or percent-encoded.
func ResolveHref(href, basePath, defaultCalendar string) (ResourcePath, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ResourcePath{}, ErrBadPath
	}
	return ResolvePath(path.Clean(u.Path), basePath, defaultCalendar)
}

func EventIDFromFile(name string) string {
	id := name
	if strings.HasSuffix(strings.ToLower(id), ".ics") {
		id = id[:len(id)-len(".ics")]
	}
	return strings.TrimPrefix(id, eventPrefix)
}

func CollectionHref(basePath, accountID, calendarID string) string {
	return strings.TrimRight(basePath, "/") + "/" + url.PathEscape(accountID) + "/" + url.PathEscape(calendarID) + "/"
}

func EventHref(basePath, accountID, calendarID, eventID string) string {
	return CollectionHref(basePath, accountID, calendarID) + url.PathEscape(eventPrefix+eventID+".ics")
}

func SafeSegment(s string) bool {
	return s != "" && !strings.Contains(s, "/") && !strings.Contains(s, "\\") && !strings.Contains(s, "..")
}

func TrimQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// ETagMatches reports whether an If-Match or If-None-Match header value
// names etag. "*" matches any etag.
func ETagMatches(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || TrimQuotes(part) == etag {
			return true
		}
	}
	return false
}
