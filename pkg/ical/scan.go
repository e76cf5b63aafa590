package ical

import (
	"strings"

	"github.com/emersion/go-ical"
)

var mutableProps = []string{
	ical.PropDateTimeStart,
	ical.PropDateTimeEnd,
	ical.PropSummary,
	ical.PropDescription,
	ical.PropLocation,
	ical.PropStatus,
}

func isTextProp(name string) bool {
	switch name {
	case ical.PropSummary, ical.PropDescription, ical.PropLocation, ical.PropStatus:
		return true
	}
	return false
}

type rawProp struct {
	value     string
	tzid      string
	unescaped bool
}

func (p rawProp) text() string {
	if p.unescaped {
		return p.value
	}
	return unescapeText(p.value)
}

// scanEvent is the tolerant path for input go-ical rejects. It reads the
// direct properties of the first VEVENT by line prefix and ignores the
// rest. It returns nil when no VEVENT is present.
func scanEvent(data []byte) map[string]rawProp {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	// unfold continuation lines
	text = strings.ReplaceAll(text, "\n ", "")
	text = strings.ReplaceAll(text, "\n\t", "")

	var out map[string]rawProp
	depth := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		upper := strings.ToUpper(line)

		switch {
		case upper == "BEGIN:VEVENT" && out == nil:
			out = make(map[string]rawProp)
			depth = 1
			continue
		case out == nil:
			continue
		case strings.HasPrefix(upper, "BEGIN:"):
			depth++
			continue
		case strings.HasPrefix(upper, "END:"):
			depth--
			if depth == 0 {
				return out
			}
			continue
		}
		if depth != 1 {
			continue
		}

		name, params, value, ok := splitLine(line)
		if !ok || !isMutable(name) {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = rawProp{value: value, tzid: paramValue(params, "TZID")}
	}
	return out
}

func isMutable(name string) bool {
	for _, p := range mutableProps {
		if p == name {
			return true
		}
	}
	return false
}

// splitLine separates NAME;PARAMS:VALUE. Colons inside quoted parameter
// values do not end the parameter list.
func splitLine(line string) (name, params, value string, ok bool) {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case ':':
			if inQuote {
				continue
			}
			head := line[:i]
			value = strings.TrimSpace(line[i+1:])
			name = head
			if j := strings.IndexByte(head, ';'); j >= 0 {
				name, params = head[:j], head[j+1:]
			}
			return strings.ToUpper(strings.TrimSpace(name)), params, value, true
		}
	}
	return "", "", "", false
}

func paramValue(params, key string) string {
	for _, kv := range strings.Split(params, ";") {
		k, v, found := strings.Cut(kv, "=")
		if found && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.Trim(strings.TrimSpace(v), `"`)
		}
	}
	return ""
}

func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
