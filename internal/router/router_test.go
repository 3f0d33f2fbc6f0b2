package router_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widefield-io/go-chat-relay/internal/registry"
	"github.com/widefield-io/go-chat-relay/internal/router"
	"github.com/widefield-io/go-chat-relay/internal/test/fakes"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

type fixture struct {
	router *router.Router
	reg    *registry.Registry
	store  *fakes.MessageStore
}

func setup() *fixture {
	reg := registry.New()
	store := fakes.NewMessageStore()
	return &fixture{
		router: router.New(reg, store, zerolog.Nop()),
		reg:    reg,
		store:  store,
	}
}

func waitPersisted(t *testing.T, store *fakes.MessageStore) *chat.MessageRecord {
	t.Helper()
	select {
	case record := <-store.Persisted():
		return record
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message to be persisted")
		return nil
	}
}

func TestRouter_NilEvent(t *testing.T) {
	fx := setup()
	err := fx.router.Route(context.Background(), nil)
	assert.ErrorIs(t, err, router.ErrNilEvent)
}

func TestRouter_MessageToOnlineReceiver(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	err := fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
	})
	require.NoError(t, err)

	sent := conn.Sent()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(chat.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, chat.UserID("bob"), msg.SenderID)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.Timestamp.IsZero(), "router must stamp a delivery timestamp")

	record := waitPersisted(t, fx.store)
	assert.Equal(t, "bob", record.SenderID)
	assert.Equal(t, "alice", record.ReceiverID)
	assert.Equal(t, "hi", record.Text)
	assert.Equal(t, chat.MessageTypeText, record.Type)
	assert.False(t, record.IsRead)
	assert.Equal(t, msg.Timestamp, record.CreatedAt)
}

func TestRouter_PresetTimestampIsKept(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
		Timestamp:  stamp,
	}))

	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, stamp, sent[0].(chat.MessageEvent).Timestamp)
}

func TestRouter_DropOnOfflineReceiver(t *testing.T) {
	fx := setup()

	err := fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "nobody",
		Text:       "into the void",
	})
	require.NoError(t, err, "an offline receiver is not an error")

	// The message is still recorded, independent of delivery.
	record := waitPersisted(t, fx.store)
	assert.Equal(t, "nobody", record.ReceiverID)
}

func TestRouter_TypingEventsAreNotPersisted(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	require.NoError(t, fx.router.Route(context.Background(), chat.TypingStart{SenderID: "bob", ReceiverID: "alice"}))
	require.NoError(t, fx.router.Route(context.Background(), chat.TypingStop{SenderID: "bob", ReceiverID: "alice"}))

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, chat.TypingStartEvent{SenderID: "bob"}, sent[0])
	assert.Equal(t, chat.TypingStopEvent{SenderID: "bob"}, sent[1])

	fx.router.Wait()
	assert.Empty(t, fx.store.Records())
}

func TestRouter_MalformedEventIsDropped(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	require.NoError(t, fx.router.Route(context.Background(), chat.Message{ReceiverID: "alice", Text: "no sender"}))
	require.NoError(t, fx.router.Route(context.Background(), chat.TypingStart{SenderID: "bob"}))

	fx.router.Wait()
	assert.Empty(t, conn.Sent(), "malformed events must produce zero deliveries")
	assert.Empty(t, fx.store.Records(), "malformed events must not be recorded")
}

func TestRouter_PersistFailureDoesNotBlockDelivery(t *testing.T) {
	fx := setup()
	fx.store.FailWith(errors.New("store unavailable"))
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	require.NoError(t, fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
	}))
	fx.router.Wait()

	require.Len(t, conn.Sent(), 1, "delivery must not fail because persistence failed")
}

func TestRouter_DeliveryFailureDoesNotBlockPersist(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	conn.FailSends(errors.New("send buffer full"))
	fx.reg.Bind("alice", conn)

	require.NoError(t, fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
	}))

	record := waitPersisted(t, fx.store)
	assert.Equal(t, "alice", record.ReceiverID, "persistence must not fail because delivery failed")
}

func TestRouter_OrderingWithinAReceiver(t *testing.T) {
	fx := setup()
	conn := fakes.NewConnection("conn-alice")
	fx.reg.Bind("alice", conn)

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, fx.router.Route(context.Background(), chat.Message{
			SenderID:   "bob",
			ReceiverID: "alice",
			Text:       text,
		}))
	}

	sent := conn.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "first", sent[0].(chat.MessageEvent).Text)
	assert.Equal(t, "second", sent[1].(chat.MessageEvent).Text)
	assert.Equal(t, "third", sent[2].(chat.MessageEvent).Text)
}

func TestRouter_ReplacementRoutesToNewConnection(t *testing.T) {
	fx := setup()
	connA := fakes.NewConnection("conn-a")
	connB := fakes.NewConnection("conn-b")
	fx.reg.Bind("alice", connA)
	fx.reg.Bind("alice", connB)

	require.NoError(t, fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
	}))

	assert.Empty(t, connA.Sent(), "superseded connection must not receive events")
	assert.Len(t, connB.Sent(), 1)
}

func TestRouter_AttachmentMessageRecord(t *testing.T) {
	fx := setup()

	require.NoError(t, fx.router.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Attachment: &chat.Attachment{
			FileURL:  "https://cdn.example.com/u/abc123.pdf",
			FileType: "application/pdf",
			FileName: "notes.pdf",
		},
	}))

	record := waitPersisted(t, fx.store)
	assert.Equal(t, chat.MessageTypePDF, record.Type)
	assert.Equal(t, "https://cdn.example.com/u/abc123.pdf", record.FileURL)
	assert.Equal(t, "application/pdf", record.FileType)
	assert.Equal(t, "notes.pdf", record.FileName)
}

func TestRouter_NilStoreStillRoutes(t *testing.T) {
	reg := registry.New()
	r := router.New(reg, nil, zerolog.Nop())
	conn := fakes.NewConnection("conn-alice")
	reg.Bind("alice", conn)

	require.NoError(t, r.Route(context.Background(), chat.Message{
		SenderID:   "bob",
		ReceiverID: "alice",
		Text:       "hi",
	}))
	r.Wait()
	assert.Len(t, conn.Sent(), 1)
}
