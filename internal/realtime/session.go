package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

const writeWait = 10 * time.Second

var (
	// ErrSessionClosed is returned by Send after the session terminated.
	ErrSessionClosed = errors.New("realtime: session closed")
	// ErrSendBufferFull is returned when the outbound buffer is saturated.
	// The event is dropped; the relay does not block routing on a slow client.
	ErrSendBufferFull = errors.New("realtime: send buffer full")
)

// session wraps one websocket connection and implements chat.Connection.
// All writes go through a single pump goroutine reading from a FIFO
// buffer, which preserves the per-connection delivery order and keeps
// Send non-blocking for the router.
type session struct {
	id     string
	conn   *websocket.Conn
	send   chan chat.Outbound
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func newSession(conn *websocket.Conn, bufferSize int, logger zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		conn:   conn,
		send:   make(chan chat.Outbound, bufferSize),
		done:   make(chan struct{}),
		logger: logger.With().Str("session", id).Logger(),
	}
}

func (s *session) ID() string { return s.id }

// Send enqueues an outbound event without blocking.
func (s *session) Send(event chat.Outbound) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- event:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// writePump drains the send buffer onto the wire. It exits on the first
// write failure or when the session is closed; the read loop notices the
// broken connection and tears the session down.
func (s *session) writePump() {
	for {
		select {
		case event := <-s.send:
			payload, err := chat.EncodeFrame(event)
			if err != nil {
				s.logger.Error().Err(err).Str("event", event.EventName()).Msg("Failed to encode outbound frame.")
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug().Err(err).Msg("Write failed, stopping pump.")
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// close terminates the session. Idempotent.
func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Error closing websocket connection.")
		}
	})
}
