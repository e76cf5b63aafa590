package caldav

import (
	"errors"
	"net/http"

	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

// HandleDelete removes an appointment. Deleting a missing appointment
// still answers 204 unless If-Match demands a current version.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	rp, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if match := r.Header.Get("If-Match"); match != "" {
		existing, err := h.store.GetEvent(ctx, rp.AccountID, rp.EventID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("DELETE lookup failed")
			http.Error(w, "storage error", http.StatusBadRequest)
			return
		}
		if existing == nil || !common.ETagMatches(match, existing.ETag()) {
			http.Error(w, "precondition failed", http.StatusPreconditionFailed)
			return
		}
	}

	if err := h.store.DeleteEvent(ctx, rp.AccountID, rp.EventID); err != nil {
		h.logger.Error().Err(err).Str("account", rp.AccountID).Str("event", rp.EventID).Msg("DELETE failed")
		http.Error(w, "storage error", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
