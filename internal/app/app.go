// Package app contains the shared logic for starting and stopping the
// service.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/chatrelay"
	"github.com/widefield-io/go-chat-relay/internal/realtime"
)

const shutdownTimeout = 15 * time.Second

// Run executes the main application lifecycle. It starts both the API
// and websocket services, listens for OS signals, and performs a graceful
// shutdown of both.
func Run(
	ctx context.Context,
	logger zerolog.Logger,
	apiService *chatrelay.Wrapper,
	connManager *realtime.ConnectionManager,
) {
	var wg sync.WaitGroup
	wg.Add(2)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer wg.Done()
		logger.Info().Msg("Starting API service...")
		err := apiService.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("API service failed.")
			cancel() // Trigger shutdown of the other service.
		}
	}()

	go func() {
		defer wg.Done()
		logger.Info().Msg("Starting connection manager...")
		err := connManager.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Connection manager failed.")
			cancel()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal.")
	case <-ctx.Done():
		logger.Info().Msg("Context cancelled, initiating shutdown.")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// The connection manager goes first so no new events reach the router
	// while the API wrapper drains its background persistence.
	if err := connManager.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Connection manager shutdown failed.")
	}
	if err := apiService.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API service shutdown failed.")
	}

	wg.Wait()
	logger.Info().Msg("All services shut down gracefully.")
}
