// Package realtime provides the websocket transport layer: it accepts
// client connections, feeds inbound frames to the presence manager and
// the router, and delivers outbound events to individual sessions.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/internal/presence"
	"github.com/widefield-io/go-chat-relay/internal/router"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// ConnectionManager manages all active websocket connections. It runs its
// own dedicated HTTP server, separate from the operational API.
type ConnectionManager struct {
	server         *http.Server
	upgrader       websocket.Upgrader
	presence       *presence.Manager
	eventRouter    *router.Router
	sessions       sync.Map // session ID -> *session
	sendBufferSize int
	logger         zerolog.Logger
	instanceID     string
}

// NewConnectionManager creates and wires up the websocket server.
func NewConnectionManager(
	addr string,
	authMiddleware func(http.Handler) http.Handler,
	presenceManager *presence.Manager,
	eventRouter *router.Router,
	sendBufferSize int,
	logger zerolog.Logger,
) (*ConnectionManager, error) {
	if presenceManager == nil || eventRouter == nil {
		return nil, fmt.Errorf("presence manager and router are required")
	}
	if sendBufferSize <= 0 {
		sendBufferSize = 32
	}

	instanceID := uuid.NewString()
	cm := &ConnectionManager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS/auth middleware in
				// front of this handler.
				return true
			},
		},
		presence:       presenceManager,
		eventRouter:    eventRouter,
		sendBufferSize: sendBufferSize,
		logger:         logger.With().Str("component", "ConnectionManager").Str("instance", instanceID).Logger(),
		instanceID:     instanceID,
	}

	mux := http.NewServeMux()
	mux.Handle("/connect", authMiddleware(http.HandlerFunc(cm.connectHandler)))
	cm.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return cm, nil
}

// Start runs the HTTP server for websocket connections.
func (cm *ConnectionManager) Start(_ context.Context) error {
	cm.logger.Info().Str("addr", cm.server.Addr).Msg("WebSocket server starting...")
	if err := cm.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes every session.
func (cm *ConnectionManager) Shutdown(ctx context.Context) error {
	cm.logger.Info().Msg("Shutting down WebSocket service...")

	err := cm.server.Shutdown(ctx)
	if err != nil {
		cm.logger.Error().Err(err).Msg("WebSocket server shutdown failed.")
	}

	cm.sessions.Range(func(_, value any) bool {
		value.(*session).close()
		return true
	})

	cm.logger.Info().Msg("WebSocket service shut down.")
	return err
}

// connectHandler upgrades a request to a websocket and owns the
// connection's lifecycle: session setup, the read loop, and teardown.
func (cm *ConnectionManager) connectHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.logger.Error().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	sess := newSession(conn, cm.sendBufferSize, cm.logger)
	cm.sessions.Store(sess.ID(), sess)
	go sess.writePump()

	cm.logger.Info().Str("session", sess.ID()).Msg("Client connected.")

	// A connection's own frames are processed strictly in arrival order:
	// this loop is the only reader and dispatches synchronously.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		cm.dispatch(r.Context(), sess, raw)
	}

	cm.presence.OnDisconnect(sess)
	cm.sessions.Delete(sess.ID())
	sess.close()
	cm.logger.Info().Str("session", sess.ID()).Msg("Client disconnected.")
}

// dispatch decodes one inbound frame and hands it to the presence manager
// or the router. Malformed frames are dropped with a diagnostic; they
// never terminate the connection.
func (cm *ConnectionManager) dispatch(ctx context.Context, sess *session, raw []byte) {
	frame, err := chat.DecodeFrame(raw)
	if err != nil {
		cm.logger.Warn().Err(err).Str("session", sess.ID()).Msg("Dropping malformed frame.")
		return
	}

	switch frame.Event {
	case chat.EventRegister:
		var payload chat.RegisterPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			cm.logger.Warn().Err(err).Str("session", sess.ID()).Msg("Dropping malformed register payload.")
			return
		}
		cm.presence.OnRegister(sess, payload.UserID)

	case chat.EventSendMessage:
		var payload chat.SendMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			cm.logger.Warn().Err(err).Str("session", sess.ID()).Msg("Dropping malformed message payload.")
			return
		}
		_ = cm.eventRouter.Route(ctx, chat.Message{
			SenderID:   payload.SenderID,
			ReceiverID: payload.ReceiverID,
			Text:       payload.Text,
			Attachment: payload.Attachment,
		})

	case chat.EventTypingStart, chat.EventTypingStop:
		var payload chat.TypingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			cm.logger.Warn().Err(err).Str("session", sess.ID()).Msg("Dropping malformed typing payload.")
			return
		}
		if frame.Event == chat.EventTypingStart {
			_ = cm.eventRouter.Route(ctx, chat.TypingStart{SenderID: payload.SenderID, ReceiverID: payload.ReceiverID})
		} else {
			_ = cm.eventRouter.Route(ctx, chat.TypingStop{SenderID: payload.SenderID, ReceiverID: payload.ReceiverID})
		}

	default:
		cm.logger.Debug().Str("session", sess.ID()).Str("event", frame.Event).Msg("Ignoring unknown event.")
	}
}
