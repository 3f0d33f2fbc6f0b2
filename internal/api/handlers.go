// Package api defines the HTTP handlers for the relay's operational
// surface. The real-time traffic itself never touches these handlers.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/internal/middleware"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// API holds the dependencies for the stateless HTTP handlers.
type API struct {
	registry chat.SessionRegistry
	logger   zerolog.Logger
}

// NewAPI creates a new, stateless API handler.
func NewAPI(registry chat.SessionRegistry, logger zerolog.Logger) *API {
	return &API{
		registry: registry,
		logger:   logger.With().Str("component", "API").Logger(),
	}
}

// presenceStats is the response body of PresenceStatsHandler.
type presenceStats struct {
	Connections int `json:"connections"`
}

// PresenceStatsHandler reports the number of registered presence entries.
func (a *API) PresenceStatsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		a.logger.Warn().Msg("PresenceStatsHandler: no user ID in context")
		WriteJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	WriteJSON(w, http.StatusOK, presenceStats{Connections: a.registry.Size()})
}
