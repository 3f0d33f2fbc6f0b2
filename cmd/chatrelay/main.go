// Main entrypoint for the chat relay. Handles config loading, dependency
// injection, and starting the application.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/chatrelay"
	"github.com/widefield-io/go-chat-relay/chatrelay/config"
	"github.com/widefield-io/go-chat-relay/internal/app"
	"github.com/widefield-io/go-chat-relay/internal/middleware"
	"github.com/widefield-io/go-chat-relay/internal/platform/persistence"
	"github.com/widefield-io/go-chat-relay/internal/presence"
	"github.com/widefield-io/go-chat-relay/internal/realtime"
	"github.com/widefield-io/go-chat-relay/internal/registry"
	"github.com/widefield-io/go-chat-relay/internal/router"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

//go:embed config.yaml
var configFile []byte

func main() {
	logger := newLogger().With().Str("service", "go-chat-relay").Logger()

	// --- Load configuration (stage 0: unmarshal) ---
	yamlCfg, err := config.ParseYaml(configFile)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal embedded yaml config.")
		os.Exit(1)
	}

	// --- Build base config (stage 1: YAML to base struct) ---
	baseCfg, err := config.NewConfigFromYaml(yamlCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build base configuration from YAML.")
		os.Exit(1)
	}

	// --- Apply overrides and validate (stage 2: env vars) ---
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to finalize configuration.")
		os.Exit(1)
	}

	ctx := context.Background()

	// --- Core state and collaborators ---
	sessionRegistry := registry.New()
	messageStore, err := newMessageStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize message store.")
		os.Exit(1)
	}

	deps := &chat.ServiceDependencies{
		Registry:     sessionRegistry,
		MessageStore: messageStore,
	}

	presenceManager := presence.NewManager(sessionRegistry, logger)
	eventRouter := router.New(sessionRegistry, messageStore, logger)

	// --- Authentication middlewares ---
	httpAuth, wsAuth, err := newAuthMiddlewares(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize authentication middleware.")
		os.Exit(1)
	}

	// --- The two main services ---
	apiService, err := chatrelay.New(
		cfg,
		deps,
		eventRouter,
		httpAuth,
		logger.With().Str("component", "ApiService").Logger(),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create API service.")
		os.Exit(1)
	}

	connManager, err := realtime.NewConnectionManager(
		":"+cfg.WebSocketPort,
		wsAuth,
		presenceManager,
		eventRouter,
		cfg.SendBufferSize,
		logger.With().Str("component", "ConnManager").Logger(),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create connection manager.")
		os.Exit(1)
	}

	app.Run(ctx, logger, apiService, connManager)
}

// newLogger sets up zerolog JSON logging with a LOG_LEVEL switch.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		level = zerolog.DebugLevel
	case "info", "INFO":
		level = zerolog.InfoLevel
	case "warn", "WARN":
		level = zerolog.WarnLevel
	case "error", "ERROR":
		level = zerolog.ErrorLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// newMessageStore creates the pluggable record store based on config.
func newMessageStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (chat.MessageStore, error) {
	storeType := cfg.MessageStore.Type
	logger.Info().Str("type", storeType).Msg("Initializing message store...")

	switch storeType {
	case config.StoreTypeFirestore:
		logger.Debug().Str("project_id", cfg.ProjectID).Msg("Connecting to Firestore.")
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to firestore: %w", err)
		}
		return persistence.NewFirestoreStore(fsClient, cfg.MessageStore.FirestoreCollection, logger)

	case config.StoreTypeMemory:
		logger.Warn().Msg("Using in-memory message store; records are lost on restart.")
		return persistence.NewMemoryStore(logger), nil

	default:
		return nil, fmt.Errorf("invalid message store type: %s", storeType)
	}
}

// newAuthMiddlewares selects the HTTP and websocket auth middlewares.
// Without a JWT secret the relay runs open, which is only meant for local
// development.
func newAuthMiddlewares(cfg *config.AppConfig, logger zerolog.Logger) (httpAuth, wsAuth func(http.Handler) http.Handler, err error) {
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is not set; running without authentication.")
		open := middleware.NoopAuth(true, "local-dev")
		return open, open, nil
	}

	httpAuth, err = middleware.NewHS256AuthMiddleware(cfg.JWTSecret, logger)
	if err != nil {
		return nil, nil, err
	}
	wsAuth, err = middleware.NewHS256WebsocketAuthMiddleware(cfg.JWTSecret, logger)
	if err != nil {
		return nil, nil, err
	}
	return httpAuth, wsAuth, nil
}
