package caldav

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/appointment-dav/internal/auth"
	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav/common"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/pkg/ical"
)

// maxXMLBytes bounds PROPFIND and REPORT bodies.
const maxXMLBytes = 1 << 20

type Handlers struct {
	cfg      *config.Config
	store    storage.EventStore
	codec    *ical.Codec
	logger   zerolog.Logger
	basePath string
	now      func() time.Time
}

func NewHandlers(cfg *config.Config, store storage.EventStore, logger zerolog.Logger) *Handlers {
	h := &Handlers{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		basePath: cfg.HTTP.BasePath,
		now:      time.Now,
	}
	h.codec = &ical.Codec{
		ProdID:    cfg.ICS.BuildProdID(),
		UIDDomain: cfg.ICS.UIDDomain,
		Location:  cfg.Location(),
		Now:       func() time.Time { return h.now() },
	}
	return h
}

// SetClock replaces the time source used for DTSTAMP and modification times.
func (h *Handlers) SetClock(now func() time.Time) { h.now = now }

// resolve parses the request path and enforces the caller's account scope.
// It writes the error response itself and reports whether to continue.
func (h *Handlers) resolve(w http.ResponseWriter, r *http.Request) (common.ResourcePath, bool) {
	rp, err := common.ResolvePath(r.URL.Path, h.basePath, h.cfg.Calendar.ID)
	if err != nil {
		msg := "bad path"
		if errors.Is(err, common.ErrMissingAccount) {
			msg = "missing account id"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return rp, false
	}
	if p, ok := auth.PrincipalFrom(r.Context()); ok && !p.CanAccess(rp.AccountID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return rp, false
	}
	return rp, true
}

func (h *Handlers) resolveEvent(w http.ResponseWriter, r *http.Request) (common.ResourcePath, bool) {
	rp, ok := h.resolve(w, r)
	if !ok {
		return rp, false
	}
	if rp.IsCollection() {
		http.Error(w, "event path required", http.StatusBadRequest)
		return rp, false
	}
	return rp, true
}

func quoted(etag string) string { return `"` + etag + `"` }
