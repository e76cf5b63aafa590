package caldav

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

func readXMLBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxXMLBytes))
}

func (h *Handlers) HandlePropfind(w http.ResponseWriter, r *http.Request) {
	rp, ok := h.resolve(w, r)
	if !ok {
		return
	}
	body, err := readXMLBody(r)
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	withData, err := common.WantsCalendarData(body)
	if err != nil {
		http.Error(w, "invalid PROPFIND body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if !rp.IsCollection() {
		ev, err := h.store.GetEvent(ctx, rp.AccountID, rp.EventID)
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("PROPFIND get event failed")
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		resp, err := h.eventResponse(rp, ev, withData)
		if err != nil {
			h.logger.Error().Err(err).Msg("PROPFIND build response failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		common.WriteMultiStatus(w, common.MultiStatus{Responses: []common.Response{resp}})
		return
	}

	depth := strings.TrimSpace(r.Header.Get("Depth"))
	events, err := h.store.ListEvents(ctx, rp.AccountID, nil, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Msg("PROPFIND list events failed")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	ms, err := h.buildMultiStatus(rp, events, depth, withData)
	if err != nil {
		h.logger.Error().Err(err).Msg("PROPFIND build multistatus failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Debug().
		Str("account", rp.AccountID).
		Str("depth", depth).
		Int("events", len(events)).
		Msg("PROPFIND listing")
	common.WriteMultiStatus(w, ms)
}
