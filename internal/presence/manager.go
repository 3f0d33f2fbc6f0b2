// Package presence owns the lifecycle of a connection's identity binding:
// anonymous on connect, registered after a valid register event, and
// terminated on disconnect.
package presence

import (
	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// Manager applies registration and disconnect transitions to the session
// registry. It is the only component that mutates the registry.
type Manager struct {
	registry chat.SessionRegistry
	logger   zerolog.Logger
}

// NewManager creates a presence lifecycle manager around the given registry.
func NewManager(registry chat.SessionRegistry, logger zerolog.Logger) *Manager {
	return &Manager{
		registry: registry,
		logger:   logger.With().Str("component", "PresenceManager").Logger(),
	}
}

// OnRegister binds userID to conn and acknowledges the registration back
// to the same connection. A register event without a user identifier is
// dropped with a diagnostic; it never creates a presence entry. An
// existing binding for the same user is silently superseded.
func (m *Manager) OnRegister(conn chat.Connection, userID chat.UserID) {
	if userID.IsZero() {
		m.logger.Warn().Str("connection", conn.ID()).Msg("Dropping register event with empty user ID.")
		return
	}

	m.registry.Bind(userID, conn)
	m.logger.Info().Str("user", userID.String()).Str("connection", conn.ID()).Msg("User registered.")

	ack := chat.RegisteredEvent{UserID: userID, ConnectionID: conn.ID()}
	if err := conn.Send(ack); err != nil {
		// The binding stands; the client will notice via its own traffic.
		m.logger.Warn().Err(err).Str("user", userID.String()).Msg("Failed to deliver registration ack.")
	}
}

// OnDisconnect removes conn's binding, if it still holds one. No
// acknowledgment is sent: the connection is gone. There is no transition
// back; a reconnecting client arrives on a fresh connection.
func (m *Manager) OnDisconnect(conn chat.Connection) {
	m.registry.Unbind(conn)
	m.logger.Info().Str("connection", conn.ID()).Msg("Connection terminated, presence entry removed.")
}
