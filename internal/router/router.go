// Package router forwards real-time events between sessions. Delivery is
// best effort: offline receivers are dropped by design, and collaborator
// failures never propagate back to the transport.
package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// persistTimeout bounds the background hand-off to the message store.
const persistTimeout = 15 * time.Second

// ErrNilEvent is returned when Route is invoked without an event. This is
// a programming-contract violation, not an expected runtime condition.
var ErrNilEvent = errors.New("router: nil event")

// Router resolves a receiver through the session registry and hands the
// outbound representation of the event to the receiver's connection.
type Router struct {
	registry chat.SessionRegistry
	store    chat.MessageStore
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// New creates a router. The store may be nil, in which case messages are
// routed without being recorded.
func New(registry chat.SessionRegistry, store chat.MessageStore, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		store:    store,
		logger:   logger.With().Str("component", "Router").Logger(),
	}
}

// Route forwards a single event. It returns an error only for a nil
// event; every runtime condition (malformed payload, offline receiver,
// collaborator failure) is resolved internally.
func (r *Router) Route(ctx context.Context, event chat.RoutableEvent) error {
	if event == nil {
		return ErrNilEvent
	}
	if event.Sender().IsZero() || event.Receiver().IsZero() {
		r.logger.Warn().
			Str("sender", event.Sender().String()).
			Str("receiver", event.Receiver().String()).
			Msg("Dropping event with missing sender or receiver.")
		return nil
	}

	switch ev := event.(type) {
	case chat.Message:
		r.routeMessage(ctx, ev)
	case chat.TypingStart:
		r.deliver(ev.ReceiverID, chat.TypingStartEvent{SenderID: ev.SenderID})
	case chat.TypingStop:
		r.deliver(ev.ReceiverID, chat.TypingStopEvent{SenderID: ev.SenderID})
	}
	return nil
}

// Wait blocks until all background persistence hand-offs have finished.
// Called during shutdown so in-flight records are not abandoned.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) routeMessage(ctx context.Context, msg chat.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	// Persistence is independent of delivery: it runs regardless of the
	// receiver being online, and neither outcome affects the other.
	r.persist(msg)

	r.deliver(msg.ReceiverID, chat.MessageEvent{
		SenderID:   msg.SenderID,
		Text:       msg.Text,
		Attachment: msg.Attachment,
		Timestamp:  msg.Timestamp,
	})
}

// deliver resolves the receiver and hands the event to its connection.
// An offline receiver is a defined no-op; the router never queues,
// retries, or buffers for later delivery.
func (r *Router) deliver(receiver chat.UserID, event chat.Outbound) {
	conn, ok := r.registry.Resolve(receiver)
	if !ok {
		r.logger.Debug().Str("receiver", receiver.String()).Str("event", event.EventName()).
			Msg("Receiver offline, dropping event.")
		return
	}
	if err := conn.Send(event); err != nil {
		r.logger.Warn().Err(err).Str("receiver", receiver.String()).Str("event", event.EventName()).
			Msg("Failed to hand event to connection.")
	}
}

// persist forwards the message record to the store in the background.
// The router does not await completion; the WaitGroup only exists so
// shutdown can drain in-flight writes.
func (r *Router) persist(msg chat.Message) {
	if r.store == nil {
		return
	}
	record := chat.NewMessageRecord(msg)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := r.store.Persist(ctx, record); err != nil {
			r.logger.Error().Err(err).
				Str("sender", record.SenderID).
				Str("receiver", record.ReceiverID).
				Msg("Failed to persist message record.")
		}
	}()
}
