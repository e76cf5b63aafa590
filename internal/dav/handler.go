package dav

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav/caldav"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

const (
	Capabilities = "1, 2, calendar-access"
	AllowMethods = "OPTIONS, GET, HEAD, PUT, DELETE, PROPFIND, REPORT"
)

// Handlers routes CalDAV requests below the configured base path.
type Handlers struct {
	cfg      *config.Config
	logger   zerolog.Logger
	basePath string
	CalDAV   *caldav.Handlers
}

func NewHandlers(cfg *config.Config, store storage.EventStore, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		logger:   logger,
		basePath: cfg.HTTP.BasePath,
		CalDAV:   caldav.NewHandlers(cfg, store, logger),
	}
}

func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", Capabilities)

	switch r.Method {
	case http.MethodOptions:
		h.HandleOptions(w, r)
	case "PROPFIND":
		h.CalDAV.HandlePropfind(w, r)
	case "REPORT":
		h.CalDAV.HandleReport(w, r)
	case http.MethodGet:
		h.CalDAV.HandleGet(w, r)
	case http.MethodHead:
		h.CalDAV.HandleHead(w, r)
	case http.MethodPut:
		h.CalDAV.HandlePut(w, r)
	case http.MethodDelete:
		h.CalDAV.HandleDelete(w, r)
	default:
		w.Header().Set("Allow", AllowMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
