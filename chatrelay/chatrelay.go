// Package chatrelay wires the relay's operational HTTP service: health
// and readiness probes plus the presence stats endpoint. The websocket
// side lives in internal/realtime and is started alongside this wrapper
// by internal/app.
package chatrelay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/chatrelay/config"
	"github.com/widefield-io/go-chat-relay/internal/api"
	"github.com/widefield-io/go-chat-relay/internal/middleware"
	"github.com/widefield-io/go-chat-relay/internal/router"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// Wrapper owns the API HTTP server and the shutdown sequencing for the
// router's background work.
type Wrapper struct {
	server        *http.Server
	listenerReady chan struct{}
	ready         atomic.Bool
	eventRouter   *router.Router
	apiHandler    *api.API
	logger        zerolog.Logger
}

// New creates and wires up the API service.
func New(
	cfg *config.AppConfig,
	deps *chat.ServiceDependencies,
	eventRouter *router.Router,
	authMiddleware func(http.Handler) http.Handler,
	logger zerolog.Logger,
) (*Wrapper, error) {
	if deps == nil || deps.Registry == nil {
		return nil, fmt.Errorf("service dependencies with a registry are required")
	}

	w := &Wrapper{
		listenerReady: make(chan struct{}),
		eventRouter:   eventRouter,
		apiHandler:    api.NewAPI(deps.Registry, logger),
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(rw http.ResponseWriter, _ *http.Request) {
		if !w.ready.Load() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /api/presence/stats", authMiddleware(http.HandlerFunc(w.apiHandler.PresenceStatsHandler)))

	cors := middleware.NewCORS(cfg.Cors)
	w.server = &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: cors(mux),
	}
	return w, nil
}

// Start binds the listener, marks the service ready, and serves until
// shutdown. It returns nil on a clean shutdown.
func (w *Wrapper) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen on %s: %w", w.server.Addr, err)
	}

	close(w.listenerReady)
	w.ready.Store(true)
	w.logger.Info().Str("addr", listener.Addr().String()).Msg("API server listening, service is ready.")

	if err := w.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// ListenerReady is closed once the listener is bound; tests and callers
// can wait on it instead of polling.
func (w *Wrapper) ListenerReady() <-chan struct{} { return w.listenerReady }

// Shutdown stops the HTTP server, then drains the router's in-flight
// persistence hand-offs so no accepted record is abandoned.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.ready.Store(false)
	w.logger.Info().Msg("Shutting down API service...")

	err := w.server.Shutdown(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("API server shutdown failed.")
	}

	if w.eventRouter != nil {
		w.eventRouter.Wait()
	}

	w.logger.Info().Msg("API service shut down.")
	return err
}
