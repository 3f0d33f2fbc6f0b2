package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// UpdateConfigWithEnvOverrides takes the base configuration (created from
// YAML) and completes it by applying environment variables and final
// validation. This is stage 2 of configuration loading.
func UpdateConfigWithEnvOverrides(cfg *AppConfig, logger zerolog.Logger) (*AppConfig, error) {
	logger.Debug().Msg("Applying environment variable overrides...")

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		logger.Debug().Str("key", "GCP_PROJECT_ID").Msg("Overriding config value from env.")
		cfg.ProjectID = projectID
	}
	if port := os.Getenv("API_PORT"); port != "" {
		logger.Debug().Str("key", "API_PORT").Msg("Overriding config value from env.")
		cfg.APIPort = port
	}
	if port := os.Getenv("WEBSOCKET_PORT"); port != "" {
		logger.Debug().Str("key", "WEBSOCKET_PORT").Msg("Overriding config value from env.")
		cfg.WebSocketPort = port
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if storeType := os.Getenv("MESSAGE_STORE"); storeType != "" {
		logger.Debug().Str("key", "MESSAGE_STORE").Msg("Overriding config value from env.")
		cfg.MessageStore.Type = storeType
	}
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug().Str("key", "CORS_ALLOWED_ORIGINS").Msg("Overriding config value from env.")
		var cleanOrigins []string
		for _, o := range strings.Split(corsOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.Cors.AllowedOrigins = cleanOrigins
	}

	// Final validation.
	if cfg.APIPort == "" {
		return nil, fmt.Errorf("api_port is not set in config or API_PORT env var")
	}
	if cfg.WebSocketPort == "" {
		return nil, fmt.Errorf("websocket_port is not set in config or WEBSOCKET_PORT env var")
	}
	switch cfg.MessageStore.Type {
	case StoreTypeMemory:
	case StoreTypeFirestore:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("message store type is firestore but GCP_PROJECT_ID is not set")
		}
	default:
		return nil, fmt.Errorf("invalid message store type: %s (must be %q or %q)",
			cfg.MessageStore.Type, StoreTypeMemory, StoreTypeFirestore)
	}

	logger.Debug().Msg("Configuration finalized and validated successfully.")
	return cfg, nil
}
