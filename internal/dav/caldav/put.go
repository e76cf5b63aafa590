package caldav

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

// HandlePut creates or replaces an appointment from an uploaded VEVENT.
// Every successful write answers 201 with the new ETag.
func (h *Handlers) HandlePut(w http.ResponseWriter, r *http.Request) {
	rp, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	maxICS := h.cfg.HTTP.MaxICSBytes
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxICS+1))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	if maxICS > 0 && int64(len(raw)) > maxICS {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	ctx := r.Context()
	existing, err := h.store.GetEvent(ctx, rp.AccountID, rp.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		existing = nil
	} else if err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("PUT lookup failed")
		http.Error(w, "storage error", http.StatusBadRequest)
		return
	}

	if r.Header.Get("If-None-Match") == "*" && existing != nil {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
		return
	}
	if match := r.Header.Get("If-Match"); match != "" {
		if existing == nil || !common.ETagMatches(match, existing.ETag()) {
			http.Error(w, "precondition failed", http.StatusPreconditionFailed)
			return
		}
	}

	ev, fields := h.codec.Decode(raw, rp.EventID)
	if !fields.Has(ical.FieldEvent) {
		http.Error(w, "unsupported calendar component", http.StatusUnsupportedMediaType)
		return
	}
	if h.cfg.ICS.Strict && !fields.Has(ical.FieldStart|ical.FieldEnd) {
		http.Error(w, "DTSTART and DTEND are required", http.StatusBadRequest)
		return
	}
	if !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(h.cfg.ICS.DefaultDuration)
	}

	now := h.now()
	if existing != nil {
		ev.Created = existing.Created
		ev.LastModified = storage.NextModified(existing.LastModified, now)
		ev.Organizer = existing.Organizer
	} else {
		ev.LastModified = storage.NextModified(time.Time{}, now)
		ev.Created = ev.LastModified
		ev.Organizer = h.cfg.Calendar.Organizer
	}

	if err := h.store.UpsertEvent(ctx, rp.AccountID, ev); err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("PUT store failed")
		http.Error(w, "storage error", http.StatusBadRequest)
		return
	}

	h.logger.Debug().
		Str("account", rp.AccountID).
		Str("event", rp.EventID).
		Bool("created", existing == nil).
		Msg("stored appointment")

	w.Header().Set("ETag", quoted(ev.ETag()))
	w.WriteHeader(http.StatusCreated)
}
