package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/appointment-dav/internal/auth"
	"github.com/sonroyaalmerol/appointment-dav/internal/config"
	"github.com/sonroyaalmerol/appointment-dav/internal/dav"
	"github.com/sonroyaalmerol/appointment-dav/internal/directory"
	"github.com/sonroyaalmerol/appointment-dav/internal/metrics"
	"github.com/sonroyaalmerol/appointment-dav/internal/router"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/filestore"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/memory"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/postgres"
	"github.com/sonroyaalmerol/appointment-dav/internal/storage/sqlite"
)

type Server struct {
	http   *http.Server
	router *router.Router
	logger zerolog.Logger
}

// OpenStore opens the EventStore named by cfg.Storage.Type.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.EventStore, error) {
	opts := storage.Options{Location: cfg.Location(), UIDDomain: cfg.ICS.UIDDomain}
	var (
		store storage.EventStore
		err   error
	)
	switch cfg.Storage.Type {
	case "postgres":
		store, err = openOrNil(postgres.New(ctx, cfg.Storage.PostgresURL, opts, logger))
	case "sqlite":
		store, err = openOrNil(sqlite.New(cfg.Storage.SQLitePath, opts, logger))
	case "file":
		store, err = openOrNil(filestore.New(cfg.Storage.FileRoot, opts, logger))
	case "memory":
		logger.Warn().Msg("using in-memory storage, appointments are lost on restart")
		store = memory.New(opts, logger)
	default:
		err = errors.New("unknown storage type: " + cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openOrNil keeps a failed constructor from leaking a typed nil into the
// interface.
func openOrNil[S storage.EventStore](s S, err error) (storage.EventStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func NewServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var dir directory.Directory
	if cfg.Auth.BasicEnabled() {
		client, err := directory.NewLDAPClient(cfg.LDAP, logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		dir = client
	}

	instrumented := metrics.InstrumentStore(store)
	authn := auth.NewChain(cfg, dir, logger)
	davh := dav.NewHandlers(cfg, instrumented, logger)
	mux := router.New(cfg, davh, authn, instrumented, logger)

	srv := &Server{
		http: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router: mux,
		logger: logger,
	}
	cleanup := func() {
		store.Close()
		if dir != nil {
			dir.Close()
		}
	}
	logger.Info().
		Str("addr", cfg.HTTP.Addr).
		Str("base_path", cfg.HTTP.BasePath).
		Str("storage", cfg.Storage.Type).
		Str("auth", cfg.Auth.Mode).
		Str("timezone", cfg.Timezone).
		Msg("server configured")
	return srv, cleanup, nil
}

// Start serves until Shutdown. Background work stops with ctx.
func (s *Server) Start(ctx context.Context) error {
	go s.router.Run(ctx)
	s.logger.Info().Str("addr", s.http.Addr).Msg("listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
