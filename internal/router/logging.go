package router

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func statusOrDefault(st int) int {
	if st == 0 {
		return http.StatusOK
	}
	return st
}

// logSlot carries values learned deeper in the chain back to the access log.
type logSlot struct {
	user string
}

type slotKey struct{}

func slotFrom(ctx context.Context) *logSlot {
	s, _ := ctx.Value(slotKey{}).(*logSlot)
	return s
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func isRead(method string) bool {
	switch method {
	case "PROPFIND", "REPORT", http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func (r *Router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		slot := &logSlot{}

		next.ServeHTTP(rec, req.WithContext(context.WithValue(req.Context(), slotKey{}, slot)))

		var ev *zerolog.Event
		if isRead(req.Method) {
			ev = r.logger.Debug()
		} else {
			ev = r.logger.Info()
		}
		ev = ev.
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", statusOrDefault(rec.status)).
			Int("bytes", rec.bytes).
			Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0).
			Str("ip", clientIP(req)).
			Str("user_agent", req.Header.Get("User-Agent")).
			Str("request_id", middleware.GetReqID(req.Context()))
		if slot.user != "" {
			ev = ev.Str("user", slot.user)
		}
		ev.Msg("http request")
	})
}

func (r *Router) logAttempt(req *http.Request, authErr error) {
	authType := ""
	if scheme, _, ok := strings.Cut(req.Header.Get("Authorization"), " "); ok {
		authType = strings.ToLower(scheme)
	}

	ev := r.logger.Info().
		Bool("auth_success", false).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("ip", clientIP(req)).
		Str("user_agent", req.Header.Get("User-Agent")).
		Str("auth_type", authType).
		Str("request_id", middleware.GetReqID(req.Context()))
	if authErr != nil {
		ev = ev.Str("error", authErr.Error())
	}
	ev.Msg("auth attempt")
}
