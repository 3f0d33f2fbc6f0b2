package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire event names. Inbound names are what clients emit; outbound names
// are what the relay delivers back.
const (
	// Inbound
	EventRegister    = "register"
	EventSendMessage = "send-message"
	EventTypingStart = "typing-start"
	EventTypingStop  = "typing-stop"

	// Outbound
	EventRegistered     = "registered"
	EventReceiveMessage = "receive-message"
)

// Frame is the tagged JSON envelope every websocket message travels in:
// {"event": "<name>", "data": {...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame parses a raw websocket payload into a Frame. The payload of
// the frame is left raw; callers decode it based on the event name.
func DecodeFrame(raw []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("frame is missing an event name")
	}
	return &frame, nil
}

// Outbound is implemented by every event that can be delivered to a
// client connection.
type Outbound interface {
	EventName() string
}

// EncodeFrame serializes an outbound event into its wire frame.
func EncodeFrame(event Outbound) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.EventName(), err)
	}
	return json.Marshal(&Frame{Event: event.EventName(), Data: data})
}

// RegisteredEvent acknowledges a successful registration back to the
// registering connection. ConnectionID is the server-assigned reference
// for the transport session, so the client can verify which connection
// the identity was bound to.
type RegisteredEvent struct {
	UserID       UserID `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

func (RegisteredEvent) EventName() string { return EventRegistered }

// MessageEvent is the outbound representation of a routed message.
type MessageEvent struct {
	SenderID   UserID      `json:"senderId"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

func (MessageEvent) EventName() string { return EventReceiveMessage }

// TypingStartEvent tells the receiver that SenderID began typing.
type TypingStartEvent struct {
	SenderID UserID `json:"senderId"`
}

func (TypingStartEvent) EventName() string { return EventTypingStart }

// TypingStopEvent tells the receiver that SenderID stopped typing.
type TypingStopEvent struct {
	SenderID UserID `json:"senderId"`
}

func (TypingStopEvent) EventName() string { return EventTypingStop }

// Inbound frame payloads.

// RegisterPayload carries the identity a connection wants to bind.
type RegisterPayload struct {
	UserID UserID `json:"userId"`
}

// SendMessagePayload is the inbound body of a send-message frame.
type SendMessagePayload struct {
	SenderID   UserID      `json:"senderId"`
	ReceiverID UserID      `json:"receiverId"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// TypingPayload is the inbound body of the typing frames.
type TypingPayload struct {
	SenderID   UserID `json:"senderId"`
	ReceiverID UserID `json:"receiverId"`
}
