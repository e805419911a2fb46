package ingress

import (
	"time"

	"github.com/harunnryd/nightowl/internal/adapter"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindText    Kind = "text"
	KindCommand Kind = "command"
)

// Message is the normalized form of every inbound chat line.
type Message struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	MessageID string `json:"message_id,omitempty"`

	// UserID is namespaced by source ("telegram:789") once resolved, so the
	// same numeric id on two platforms never shares a session.
	UserID  string `json:"user_id"`
	ReplyTo string `json:"reply_to"`

	Kind    Kind     `json:"kind"`
	Text    string   `json:"text"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	Metadata   map[string]string `json:"metadata,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// NewMessage normalizes an adapter delivery and stamps it with a fresh ULID.
func NewMessage(in adapter.Inbound) *Message {
	return &Message{
		ID:         ulid.Make().String(),
		Source:     in.Source,
		MessageID:  in.MessageID,
		UserID:     in.UserID,
		ReplyTo:    in.ReplyTo,
		Kind:       KindText,
		Text:       in.Text,
		Metadata:   in.Metadata,
		ReceivedAt: time.Now(),
	}
}

// IdempotencyKey is empty when the transport gives no delivery id, in which
// case the message is never deduplicated.
func (m *Message) IdempotencyKey() string {
	if m.MessageID == "" {
		return ""
	}
	return GenerateIdempotencyKey(m.Source, m.MessageID)
}

func GenerateIdempotencyKey(source, externalID string) string {
	return source + ":" + externalID
}
