package dav

import (
	"net/http"
)

func (h *Handlers) HandleWellKnown(w http.ResponseWriter, r *http.Request) {
	// RFC 6764 service discovery
	http.Redirect(w, r, h.basePath+"/", http.StatusPermanentRedirect)
}

func (h *Handlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", AllowMethods)
	w.Header().Set("DAV", Capabilities)
	w.WriteHeader(http.StatusOK)
}
