package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sonroyaalmerol/appointment-dav/internal/auth"
	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav"
	"github.com/sonroyaalmerol/appointment-dav/internal/metrics"
	"github.com/sonroyaalmerol/appointment-dav/internal/ratelimit"
)

func init() {
	for _, method := range []string{"PROPFIND", "REPORT"} {
		chi.RegisterMethod(method)
	}
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	config   *config.Config
	handlers *dav.Handlers
	auth     *auth.Chain
	ready    Pinger
	limiter  *ratelimit.IPRateLimiter
	logger   zerolog.Logger

	mux chi.Router
}

func New(cfg *config.Config, h *dav.Handlers, authn *auth.Chain, ready Pinger, logger zerolog.Logger) *Router {
	r := &Router{
		config:   cfg,
		handlers: h,
		auth:     authn,
		ready:    ready,
		logger:   logger,
	}
	if cfg.HTTP.RateLimit > 0 {
		r.limiter = ratelimit.New(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst, 5*time.Minute, cfg.HTTP.TrustedProxies)
	}
	r.mux = r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Run performs background housekeeping until ctx is done.
func (r *Router) Run(ctx context.Context) {
	if r.limiter != nil {
		r.limiter.Run(ctx)
	}
}

func (r *Router) setupRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Use(requestID)
	if r.limiter != nil {
		mux.Use(r.limiter.Middleware())
	}
	mux.Use(middleware.RealIP)
	mux.Use(r.accessLog)
	mux.Use(middleware.Recoverer)
	mux.Use(metrics.Middleware())
	if origins := r.config.HTTP.CORSOrigins; len(origins) > 0 {
		mux.Use(cors.Handler(corsOptions(origins)))
	}

	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", dav.AllowMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.Get("/healthz", r.handleHealth)
	mux.Get("/readyz", r.handleReady)
	if r.config.HTTP.MetricsEnabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	mux.HandleFunc("/.well-known/caldav", r.handlers.HandleWellKnown)

	base := r.config.HTTP.BasePath
	mux.Group(func(g chi.Router) {
		g.Use(r.authenticate)
		g.Handle(base, r.handlers)
		g.Handle(base+"/*", r.handlers)
	})

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if err := r.ready.Ping(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("readiness check failed")
		http.Error(w, "unready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
