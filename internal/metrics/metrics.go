package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
)

type ctxKey string

const routeLabelKey ctxKey = "metrics_route"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_dav_http_requests_total",
		Help: "HTTP requests served, by method and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appointment_dav_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appointment_dav_store_latency_seconds",
		Help:    "Appointment store operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_dav_store_errors_total",
		Help: "Appointment store operations that failed, not counting misses.",
	}, []string{"operation"})
)

// Middleware counts requests and tags the context with the route pattern so
// store timings can be attributed to it.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			// chi fills in the pattern while routing, so read it afterwards
			holder := &routeHolder{}
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), routeLabelKey, holder)))

			route := holder.resolve(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type routeHolder struct {
	route string
}

func (h *routeHolder) resolve(r *http.Request) string {
	if h.route != "" {
		return h.route
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			h.route = pattern
			return pattern
		}
	}
	return "unknown"
}

func routeFromContext(ctx context.Context) string {
	h, ok := ctx.Value(routeLabelKey).(*routeHolder)
	if !ok {
		return "unknown"
	}
	if h.route == "" {
		if rctx := chi.RouteContext(ctx); rctx != nil {
			h.route = strings.TrimSpace(rctx.RoutePattern())
		}
	}
	if h.route == "" {
		return "unknown"
	}
	return h.route
}

// ObserveStore records the latency of one store operation.
func ObserveStore(ctx context.Context, operation string, start time.Time, err error) {
	storeLatency.WithLabelValues(operation, routeFromContext(ctx)).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		storeErrorsTotal.WithLabelValues(operation).Inc()
	}
}
