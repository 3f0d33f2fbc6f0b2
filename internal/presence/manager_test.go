package presence_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/widefield-io/go-chat-relay/internal/presence"
	"github.com/widefield-io/go-chat-relay/internal/registry"
	"github.com/widefield-io/go-chat-relay/internal/test/fakes"
	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

func setup() (*presence.Manager, *registry.Registry) {
	reg := registry.New()
	return presence.NewManager(reg, zerolog.Nop()), reg
}

func TestManager_RegisterBindsAndAcks(t *testing.T) {
	mgr, reg := setup()
	conn := fakes.NewConnection("conn-1")

	mgr.OnRegister(conn, "alice")

	resolved, ok := reg.Resolve("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-1", resolved.ID())

	sent := conn.Sent()
	require.Len(t, sent, 1)
	ack, ok := sent[0].(chat.RegisteredEvent)
	require.True(t, ok, "first delivered event must be the registration ack")
	assert.Equal(t, chat.UserID("alice"), ack.UserID)
	assert.Equal(t, "conn-1", ack.ConnectionID)
}

func TestManager_RegisterEmptyUserIDIsDropped(t *testing.T) {
	mgr, reg := setup()
	conn := fakes.NewConnection("conn-1")

	mgr.OnRegister(conn, "")

	assert.Equal(t, 0, reg.Size(), "malformed register must not create a presence entry")
	assert.Empty(t, conn.Sent(), "malformed register must not be acknowledged")
}

func TestManager_RegisterAckFailureKeepsBinding(t *testing.T) {
	mgr, reg := setup()
	conn := fakes.NewConnection("conn-1")
	conn.FailSends(errors.New("send buffer full"))

	mgr.OnRegister(conn, "alice")

	_, ok := reg.Resolve("alice")
	assert.True(t, ok, "ack delivery failure must not roll back the binding")
}

func TestManager_DisconnectCleansUp(t *testing.T) {
	mgr, reg := setup()
	conn := fakes.NewConnection("conn-1")

	mgr.OnRegister(conn, "alice")
	require.Equal(t, 1, reg.Size())

	mgr.OnDisconnect(conn)

	_, ok := reg.Resolve("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Size())
}

func TestManager_DisconnectOfAnonymousConnection(t *testing.T) {
	mgr, reg := setup()

	// A connection that never registered terminates. Nothing to remove.
	mgr.OnDisconnect(fakes.NewConnection("anon"))
	assert.Equal(t, 0, reg.Size())
}

func TestManager_DuplicateRegistrationSupersedes(t *testing.T) {
	mgr, reg := setup()
	connA := fakes.NewConnection("conn-a")
	connB := fakes.NewConnection("conn-b")

	mgr.OnRegister(connA, "alice")
	mgr.OnRegister(connB, "alice")

	resolved, ok := reg.Resolve("alice")
	require.True(t, ok)
	assert.Equal(t, "conn-b", resolved.ID())

	// Both connections were acked for their own registration.
	require.Len(t, connA.Sent(), 1)
	require.Len(t, connB.Sent(), 1)
}
