// Package api provides the HTTP operations API for Wavecue Core.
//
// It exposes routine management, queue introspection and sound catalogue
// endpoints to operators. The platform's own chat-command surface is a
// separate concern and does not go through this server.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wavecue/wavecue-core/internal/infrastructure/config"
	"github.com/wavecue/wavecue-core/internal/infrastructure/logging"
	"github.com/wavecue/wavecue-core/internal/playback"
	"github.com/wavecue/wavecue-core/internal/routine"
	"github.com/wavecue/wavecue-core/internal/sound"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Routines  *routine.Manager
	Playback  *playback.Manager
	Catalogue *sound.Catalogue
	Events    VoiceEventSink
	Version   string
}

// Server is the HTTP operations API server for Wavecue Core.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	routines  *routine.Manager
	playback  *playback.Manager
	catalogue *sound.Catalogue
	events    VoiceEventSink
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Routines == nil {
		return nil, fmt.Errorf("routine manager is required")
	}
	if deps.Playback == nil {
		return nil, fmt.Errorf("playback manager is required")
	}
	if deps.Catalogue == nil {
		return nil, fmt.Errorf("sound catalogue is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("voice event sink is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		routines:  deps.Routines,
		playback:  deps.Playback,
		catalogue: deps.Catalogue,
		events:    deps.Events,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; stop it with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
