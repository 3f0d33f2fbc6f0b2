package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// MemoryStore is an in-process chat.MessageStore used for local runs and
// tests. Records are lost when the process exits.
type MemoryStore struct {
	mu      sync.Mutex
	records []*chat.MessageRecord
	logger  zerolog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger.With().Str("component", "MemoryStore").Logger(),
	}
}

// Persist appends the record.
func (s *MemoryStore) Persist(_ context.Context, record *chat.MessageRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	s.logger.Debug().Str("receiver", record.ReceiverID).Int("total", len(s.records)).Msg("Message record stored in memory.")
	return nil
}

// Records returns a copy of everything stored, in insertion order.
func (s *MemoryStore) Records() []*chat.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.MessageRecord, len(s.records))
	copy(out, s.records)
	return out
}
