// Package persistence contains the message record store implementations.
package persistence

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

const defaultMessagesCollection = "messages"

// FirestoreStore implements chat.MessageStore using Google Cloud
// Firestore. Each record gets a server-generated UUID as its document ID;
// the client never supplies one.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreStore is the constructor for the FirestoreStore.
func NewFirestoreStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		collection = defaultMessagesCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// Persist writes one message record. Transient backend conditions are
// distinguished in the logs so operators can tell an outage from a bad
// write, but the caller sees a plain error either way.
func (s *FirestoreStore) Persist(ctx context.Context, record *chat.MessageRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	docRef := s.client.Collection(s.collection).Doc(uuid.NewString())
	_, err := docRef.Set(ctx, record)
	if err != nil {
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded:
			s.logger.Warn().Err(err).Str("doc_id", docRef.ID).Msg("Transient failure persisting message record.")
		default:
			s.logger.Error().Err(err).Str("doc_id", docRef.ID).Msg("Failed to persist message record.")
		}
		return fmt.Errorf("failed to persist message record: %w", err)
	}

	s.logger.Debug().Str("doc_id", docRef.ID).Str("receiver", record.ReceiverID).Msg("Message record persisted.")
	return nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
