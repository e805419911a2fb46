package adapter

import (
	"context"
	"log/slog"
)

// NullAdapter accepts replies for sources that have nowhere to send them.
type NullAdapter struct {
	name string
}

func NewNullAdapter(name string) *NullAdapter {
	if name == "" {
		name = "null"
	}
	return &NullAdapter{name: name}
}

func (a *NullAdapter) Name() string {
	return a.name
}

func (a *NullAdapter) Send(ctx context.Context, replyTo string, content string) error {
	slog.Debug("Reply discarded", "adapter", a.name, "reply_to", replyTo, "bytes", len(content))
	return nil
}

func (a *NullAdapter) Health(ctx context.Context) error {
	return nil
}
