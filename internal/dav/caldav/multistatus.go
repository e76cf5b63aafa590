package caldav

import (
	"fmt"
	"net/http"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

// buildMultiStatus renders the PROPFIND/REPORT body for rp. Depth "0"
// yields the calendar collection alone; any other depth yields one
// response per event.
func (h *Handlers) buildMultiStatus(rp common.ResourcePath, events []*storage.CalendarEvent, depth string, withData bool) (common.MultiStatus, error) {
	var ms common.MultiStatus
	if depth == "0" {
		resp, err := h.collectionResponse(rp, events)
		if err != nil {
			return ms, err
		}
		ms.Responses = []common.Response{resp}
		return ms, nil
	}

	ms.Responses = make([]common.Response, 0, len(events))
	for _, ev := range events {
		resp, err := h.eventResponse(rp, ev, withData)
		if err != nil {
			return ms, err
		}
		ms.Responses = append(ms.Responses, resp)
	}
	return ms, nil
}

func (h *Handlers) collectionResponse(rp common.ResourcePath, events []*storage.CalendarEvent) (common.Response, error) {
	tz, err := h.codec.TimezoneCalendar()
	if err != nil {
		return common.Response{}, fmt.Errorf("encode timezone: %w", err)
	}
	return common.Response{
		Href: common.CollectionHref(h.basePath, rp.AccountID, rp.CalendarID),
		Propstat: []common.Propstat{{
			Prop: common.Prop{
				ResourceType:        common.CalendarResourceType(),
				DisplayName:         h.cfg.Calendar.DisplayName,
				CalendarDescription: h.cfg.Calendar.Description,
				SupportedComponents: &common.SupportedCompSet{Comps: []common.Comp{{Name: "VEVENT"}}},
				CalendarTimezone:    &common.CData{Text: string(tz)},
				GetCTag:             ctag(events),
			},
			Status: common.Ok(),
		}},
	}, nil
}

func (h *Handlers) eventResponse(rp common.ResourcePath, ev *storage.CalendarEvent, withData bool) (common.Response, error) {
	prop := common.Prop{
		GetETag:         quoted(ev.ETag()),
		GetContentType:  ical.ContentType,
		GetLastModified: ev.LastModified.UTC().Format(http.TimeFormat),
	}
	if withData {
		data, err := h.codec.Encode(ev)
		if err != nil {
			return common.Response{}, fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		prop.CalendarData = &common.CData{Text: string(data)}
	}
	return common.Response{
		Href:     common.EventHref(h.basePath, rp.AccountID, rp.CalendarID, ev.ID),
		Propstat: []common.Propstat{{Prop: prop, Status: common.Ok()}},
	}, nil
}

func notFoundResponse(href string) common.Response {
	return common.Response{Href: href, Status: common.NotFound()}
}

// ctag changes whenever an event is added, removed or modified.
func ctag(events []*storage.CalendarEvent) string {
	var latest int64
	for _, ev := range events {
		if m := ev.LastModified.UnixMicro(); m > latest {
			latest = m
		}
	}
	return fmt.Sprintf("%d-%d", latest, len(events))
}
