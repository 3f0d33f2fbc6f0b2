// Package config loads the relay's configuration in three stages: the
// embedded YAML file is unmarshaled into YamlConfig, converted to the
// canonical AppConfig, then finalized with environment overrides and
// validation.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/widefield-io/go-chat-relay/internal/middleware"
)

// Message store backends.
const (
	StoreTypeMemory    = "memory"
	StoreTypeFirestore = "firestore"
)

// --- YAML-specific structs ---

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type YamlFirestoreConfig struct {
	CollectionName string `yaml:"collection_name"`
}

type YamlMessageStoreConfig struct {
	Type      string              `yaml:"type"` // "firestore" or "memory"
	Firestore YamlFirestoreConfig `yaml:"firestore"`
}

// YamlConfig defines the structure for unmarshaling the embedded
// config.yaml file.
type YamlConfig struct {
	ProjectID      string                 `yaml:"project_id"`
	APIPort        string                 `yaml:"api_port"`
	WebSocketPort  string                 `yaml:"websocket_port"`
	Cors           YamlCorsConfig         `yaml:"cors"`
	MessageStore   YamlMessageStoreConfig `yaml:"message_store"`
	SendBufferSize int                    `yaml:"send_buffer_size"`
}

// --- Application config ---

// MessageStoreConfig selects and parameterizes the record store backend.
type MessageStoreConfig struct {
	Type                string
	FirestoreCollection string
}

// AppConfig is the canonical, validated configuration object used
// throughout the application. It is created by NewConfigFromYaml (stage 1)
// and finalized by UpdateConfigWithEnvOverrides (stage 2).
type AppConfig struct {
	ProjectID      string
	APIPort        string
	WebSocketPort  string
	JWTSecret      string // env-only, never stored in YAML
	Cors           middleware.CorsConfig
	MessageStore   MessageStoreConfig
	SendBufferSize int
}

// ParseYaml unmarshals the raw embedded config file (stage 0).
func ParseYaml(raw []byte) (*YamlConfig, error) {
	var yamlCfg YamlConfig
	if err := yaml.Unmarshal(raw, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}
	return &yamlCfg, nil
}

// NewConfigFromYaml converts the raw unmarshaled data into a clean base
// AppConfig struct, without environment overrides.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	cfg := &AppConfig{
		ProjectID:     yamlCfg.ProjectID,
		APIPort:       yamlCfg.APIPort,
		WebSocketPort: yamlCfg.WebSocketPort,
		Cors: middleware.CorsConfig{
			AllowedOrigins: yamlCfg.Cors.AllowedOrigins,
		},
		MessageStore: MessageStoreConfig{
			Type:                yamlCfg.MessageStore.Type,
			FirestoreCollection: yamlCfg.MessageStore.Firestore.CollectionName,
		},
		SendBufferSize: yamlCfg.SendBufferSize,
	}
	if cfg.MessageStore.Type == "" {
		cfg.MessageStore.Type = StoreTypeMemory
	}
	return cfg, nil
}
