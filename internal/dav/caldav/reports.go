package caldav

import (
	"errors"
	"net/http"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	rp, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !rp.IsCollection() {
		http.Error(w, "REPORT requires a calendar collection", http.StatusBadRequest)
		return
	}
	body, err := readXMLBody(r)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	rq, err := common.ParseReport(body)
	if err != nil {
		h.logger.Debug().Err(err).Msg("REPORT parse failed")
		http.Error(w, "invalid REPORT body", http.StatusBadRequest)
		return
	}

	switch rq.Kind {
	case common.CalendarMultiget:
		h.reportMultiget(w, r, rp, rq)
	default:
		h.reportCalendarQuery(w, r, rp, rq)
	}
}

func (h *Handlers) reportCalendarQuery(w http.ResponseWriter, r *http.Request, rp common.ResourcePath, rq *common.ReportRequest) {
	var start, end *time.Time
	if v, ok := rq.Start.Get(); ok {
		start = &v
	}
	if v, ok := rq.End.Get(); ok {
		end = &v
	}

	events, err := h.store.ListEvents(r.Context(), rp.AccountID, start, end)
	if err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Msg("REPORT list events failed")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	ms, err := h.buildMultiStatus(rp, events, "1", rq.CalendarData)
	if err != nil {
		h.logger.Error().Err(err).Msg("REPORT build multistatus failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Debug().
		Str("account", rp.AccountID).
		Bool("has_start", start != nil).
		Bool("has_end", end != nil).
		Int("events", len(events)).
		Msg("calendar-query")
	common.WriteMultiStatus(w, ms)
}

func (h *Handlers) reportMultiget(w http.ResponseWriter, r *http.Request, rp common.ResourcePath, rq *common.ReportRequest) {
	ms := common.MultiStatus{Responses: make([]common.Response, 0, len(rq.Hrefs))}
	for _, href := range rq.Hrefs {
		target, err := common.ResolveHref(href, h.basePath, h.cfg.Calendar.ID)
		if err != nil || target.IsCollection() || target.AccountID != rp.AccountID {
			ms.Responses = append(ms.Responses, notFoundResponse(href))
			continue
		}
		ev, err := h.store.GetEvent(r.Context(), rp.AccountID, target.EventID)
		if errors.Is(err, storage.ErrNotFound) {
			ms.Responses = append(ms.Responses, notFoundResponse(href))
			continue
		}
		if err != nil {
			h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", target.EventID).Msg("multiget get event failed")
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		resp, err := h.eventResponse(target, ev, rq.CalendarData)
		if err != nil {
			h.logger.Error().Err(err).Msg("multiget build response failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		ms.Responses = append(ms.Responses, resp)
	}
	common.WriteMultiStatus(w, ms)
}
