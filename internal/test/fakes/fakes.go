// Package fakes provides in-memory test doubles for the relay's
// collaborators. These are shared across package tests.
package fakes

import (
	"context"
	"sync"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// Connection is a chat.Connection that records every event handed to it,
// in order. An injected error makes Send fail, for exercising the
// fire-and-forget delivery path.
type Connection struct {
	id string

	mu      sync.Mutex
	sent    []chat.Outbound
	sendErr error
}

func NewConnection(id string) *Connection {
	return &Connection{id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Send(event chat.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, event)
	return nil
}

// Sent returns a copy of the events delivered so far, in delivery order.
func (c *Connection) Sent() []chat.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Outbound, len(c.sent))
	copy(out, c.sent)
	return out
}

// FailSends makes every subsequent Send return err.
func (c *Connection) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// MessageStore is a chat.MessageStore that captures persisted records and
// signals each persist on a channel so async assertions don't need polling.
type MessageStore struct {
	mu         sync.Mutex
	records    []*chat.MessageRecord
	persistErr error

	persisted chan *chat.MessageRecord
}

func NewMessageStore() *MessageStore {
	return &MessageStore{persisted: make(chan *chat.MessageRecord, 64)}
}

func (s *MessageStore) Persist(_ context.Context, record *chat.MessageRecord) error {
	s.mu.Lock()
	err := s.persistErr
	if err == nil {
		s.records = append(s.records, record)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	select {
	case s.persisted <- record:
	default:
	}
	return nil
}

// Records returns a copy of everything persisted so far.
func (s *MessageStore) Records() []*chat.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.MessageRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Persisted exposes the signal channel; one record is sent per successful
// Persist call.
func (s *MessageStore) Persisted() <-chan *chat.MessageRecord { return s.persisted }

// FailWith makes every subsequent Persist return err without recording.
func (s *MessageStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistErr = err
}
