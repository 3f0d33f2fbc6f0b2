// Package chat contains the public domain models, interfaces, and wire
// protocol for the chat relay. It defines the contract for interacting
// with the service.
package chat

import (
	"strings"
	"time"
)

// UserID is an opaque identifier for an application user. It is supplied
// by the identity collaborator and never generated by this service.
type UserID string

// String returns the raw identifier.
func (u UserID) String() string { return string(u) }

// IsZero reports whether the identifier is empty.
func (u UserID) IsZero() bool { return u == "" }

// Attachment is a reference to a previously uploaded file. Upload and
// transcoding happen outside this service; the relay only carries the
// reference along with the message.
type Attachment struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType,omitempty"` // MIME type, e.g. "image/png"
	FileName string `json:"fileName,omitempty"`
}

// RoutableEvent is the closed set of real-time payloads the router can
// forward between sessions. The interface is sealed so the router's type
// switch stays exhaustive.
type RoutableEvent interface {
	Sender() UserID
	Receiver() UserID
	isRoutableEvent()
}

// Message is a point-to-point chat message.
type Message struct {
	SenderID   UserID
	ReceiverID UserID
	Text       string
	Attachment *Attachment
	// Timestamp is the server-assigned delivery time. The router stamps it
	// if the transport left it unset.
	Timestamp time.Time
}

func (m Message) Sender() UserID   { return m.SenderID }
func (m Message) Receiver() UserID { return m.ReceiverID }
func (Message) isRoutableEvent()   {}

// TypingStart signals that the sender began composing a message.
type TypingStart struct {
	SenderID   UserID
	ReceiverID UserID
}

func (t TypingStart) Sender() UserID   { return t.SenderID }
func (t TypingStart) Receiver() UserID { return t.ReceiverID }
func (TypingStart) isRoutableEvent()   {}

// TypingStop signals that the sender stopped composing.
type TypingStop struct {
	SenderID   UserID
	ReceiverID UserID
}

func (t TypingStop) Sender() UserID   { return t.SenderID }
func (t TypingStop) Receiver() UserID { return t.ReceiverID }
func (TypingStop) isRoutableEvent()   {}

// Message type tags stored with each record. "text" is the default; file
// messages derive their tag from the attachment's MIME type.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeAudio = "audio"
	MessageTypePDF   = "pdf"
	MessageTypeDoc   = "doc"
	MessageTypeFile  = "file"
)

// MessageRecord is the shape the message record store persists for
// downstream consumers (history, inbox).
type MessageRecord struct {
	SenderID   string    `firestore:"senderId" json:"senderId"`
	ReceiverID string    `firestore:"receiverId" json:"receiverId"`
	Text       string    `firestore:"text,omitempty" json:"text,omitempty"`
	Type       string    `firestore:"type" json:"type"`
	FileURL    string    `firestore:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FileType   string    `firestore:"fileType,omitempty" json:"fileType,omitempty"`
	FileName   string    `firestore:"fileName,omitempty" json:"fileName,omitempty"`
	IsRead     bool      `firestore:"isRead" json:"isRead"`
	CreatedAt  time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// NewMessageRecord builds the persisted representation of a message.
// IsRead always starts false; creation and update timestamps are set from
// the message's delivery timestamp.
func NewMessageRecord(m Message) *MessageRecord {
	record := &MessageRecord{
		SenderID:   m.SenderID.String(),
		ReceiverID: m.ReceiverID.String(),
		Text:       m.Text,
		Type:       MessageTypeText,
		IsRead:     false,
		CreatedAt:  m.Timestamp,
		UpdatedAt:  m.Timestamp,
	}
	if m.Attachment != nil {
		record.Type = DeriveMessageType(m.Attachment.FileType)
		record.FileURL = m.Attachment.FileURL
		record.FileType = m.Attachment.FileType
		record.FileName = m.Attachment.FileName
	}
	return record
}

// DeriveMessageType maps an attachment MIME type to the record's type tag.
func DeriveMessageType(mimeType string) string {
	switch {
	case mimeType == "":
		return MessageTypeText
	case strings.HasPrefix(mimeType, "image/"):
		return MessageTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return MessageTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return MessageTypeAudio
	case mimeType == "application/pdf":
		return MessageTypePDF
	case mimeType == "application/msword",
		mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mimeType == "text/plain":
		return MessageTypeDoc
	default:
		return MessageTypeFile
	}
}
