package caldav

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

type headResponseWriter struct {
	http.ResponseWriter
}

func (hrw *headResponseWriter) Write(b []byte) (int, error) { return len(b), nil }

// HandleGet returns one appointment as an iCalendar object.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	rp, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}
	ev, err := h.store.GetEvent(r.Context(), rp.AccountID, rp.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("GET failed")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	etag := ev.ETag()
	w.Header().Set("ETag", quoted(etag))
	w.Header().Set("Last-Modified", ev.LastModified.UTC().Format(http.TimeFormat))

	if inm := r.Header.Get("If-None-Match"); inm != "" && common.ETagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := h.codec.Encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", rp.EventID).Msg("encode event failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ical.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handlers) HandleHead(w http.ResponseWriter, r *http.Request) {
	h.HandleGet(&headResponseWriter{ResponseWriter: w}, r)
}
