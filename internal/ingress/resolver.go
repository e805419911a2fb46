package ingress

import (
	"context"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
)

// LocalUser is the identity of the single terminal user in chat mode.
const LocalUser = "local"

type Resolver interface {
	ResolveUser(ctx context.Context, msg *Message) (string, error)
}

type StandardResolver struct{}

func NewStandardResolver() *StandardResolver {
	return &StandardResolver{}
}

// ResolveUser returns the session key for msg and fills a missing reply
// address with the raw user id, which is where direct-message platforms
// deliver replies.
func (r *StandardResolver) ResolveUser(ctx context.Context, msg *Message) (string, error) {
	if msg == nil {
		return "", owlErrors.InvalidInput("message is nil")
	}
	if msg.Source == "" {
		return "", owlErrors.InvalidInput("message source is empty")
	}

	user := msg.UserID
	if user == "" {
		if msg.Source != "cli" {
			return "", owlErrors.InvalidInput("user id is empty")
		}
		user = LocalUser
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = user
	}

	return msg.Source + ":" + user, nil
}
