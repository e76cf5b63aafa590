package router

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/sonroyaalmerol/appointment-dav/internal/auth"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav"
)

const requestIDHeader = "X-Request-Id"

// requestID keeps a sane incoming id or mints a new one, and exposes it
// through middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(req.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

var corsHeaders = []string{
	"Authorization", "Content-Type", "Depth", "If-Match", "If-None-Match", requestIDHeader,
}

var corsExpose = []string{"DAV", "ETag", "Last-Modified", "Allow", requestIDHeader}

// corsOptions configures browser access. Credentials are only allowed for
// an explicit origin list. With "*" any page may call in, but browsers will
// not attach stored credentials.
func corsOptions(origins []string) cors.Options {
	allowAll := slices.Contains(origins, "*")
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   strings.Split(dav.AllowMethods, ", "),
		AllowedHeaders:   corsHeaders,
		ExposedHeaders:   corsExpose,
		AllowCredentials: !allowAll,
		MaxAge:           600,
	}
}

// authenticate attaches the caller's principal. OPTIONS stays public for
// capability discovery; an unauthenticated deployment passes everything.
func (r *Router) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions || !r.auth.Enabled() {
			next.ServeHTTP(w, req)
			return
		}

		p, err := r.auth.Authenticate(req.Context(), req.Header.Get("Authorization"))
		if err != nil || p == nil {
			r.logAttempt(req, err)
			w.Header().Set("WWW-Authenticate", r.auth.Challenge())
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if slot := slotFrom(req.Context()); slot != nil {
			slot.user = p.UserID
		}
		next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), p)))
	})
}
