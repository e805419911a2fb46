package adapter

import (
	"context"
)

// Inbound is one chat message as a platform delivered it.
type Inbound struct {
	Source    string
	MessageID string
	UserID    string
	// ReplyTo is the platform address replies go to (chat id, channel id).
	ReplyTo  string
	Text     string
	Metadata map[string]string
}

// EventHandler receives inbound messages from adapters.
// This avoids circular dependencies between adapters and ingress.
type EventHandler func(ctx context.Context, in Inbound) error

// InputAdapter defines the interface for adapters that receive messages from chat platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram", "cli").
	Name() string

	// Start begins listening (e.g. starts a server or long-poll).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// OutputAdapter defines the interface for adapters that send replies to chat platforms
type OutputAdapter interface {
	// Name returns the adapter name.
	Name() string

	// Send delivers a reply. replyTo is the platform-specific address.
	Send(ctx context.Context, replyTo string, content string) error

	// Health checks if the adapter is healthy and can send messages.
	Health(ctx context.Context) error
}
