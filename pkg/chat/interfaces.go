package chat

import "context"

// Connection is a live transport session capable of receiving outbound
// events. The transport layer owns the connection's lifetime; the relay
// only holds it in the session registry.
type Connection interface {
	// ID returns the server-assigned identifier for this transport session.
	ID() string

	// Send hands an event to the connection for delivery. It must not
	// block: implementations enqueue onto a bounded buffer and report an
	// error when the buffer is full or the connection is closed. Events
	// accepted by Send are delivered in the order they were accepted.
	Send(event Outbound) error
}

// SessionRegistry is the presence table shared by the lifecycle manager
// and the router. Implementations must make each call atomic; callers
// never perform their own locking.
type SessionRegistry interface {
	// Bind associates userID with conn, silently superseding any prior
	// connection for the same user.
	Bind(userID UserID, conn Connection)

	// Unbind removes the entry for conn, if any. Idempotent.
	Unbind(conn Connection)

	// Resolve returns the current connection for userID.
	Resolve(userID UserID) (Connection, bool)

	// Size returns the number of active entries, for observability.
	Size() int
}

// MessageStore is the persistence collaborator the router notifies about
// routed messages. Calls are best-effort from the router's perspective: a
// store failure never blocks or fails delivery.
type MessageStore interface {
	Persist(ctx context.Context, record *MessageRecord) error
}

// ServiceDependencies holds the external collaborators the relay needs to
// operate. This struct is used for dependency injection.
type ServiceDependencies struct {
	Registry     SessionRegistry
	MessageStore MessageStore
}
