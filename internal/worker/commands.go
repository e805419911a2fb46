package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/aggregator"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/ingress"
	"github.com/harunnryd/nightowl/internal/session"
)

const ResetText = "Fresh start. Which neighborhood are you in?"

type CacheStatus interface {
	Status() aggregator.Status
}

// Commands answers slash commands. They run under the same per-user lock as
// turns, so /reset never races a turn in flight.
type Commands struct {
	store session.Store
	cache CacheStatus
	turns Turns
}

func NewCommands(store session.Store, cache CacheStatus, turns Turns) *Commands {
	return &Commands{store: store, cache: cache, turns: turns}
}

func (c *Commands) Handle(ctx context.Context, msg *ingress.Message) (string, error) {
	switch msg.Command {
	case ingress.CommandReset:
		if err := c.store.Delete(ctx, msg.UserID); err != nil {
			return "", owlErrors.Wrap(err, "failed to reset session")
		}
		return ResetText, nil

	case ingress.CommandWhere:
		text, err := c.where(ctx, msg.UserID)
		if err != nil {
			return "", err
		}
		c.touch(ctx, msg)
		return text, nil

	case ingress.CommandStatus:
		c.touch(ctx, msg)
		return c.status(), nil

	case ingress.CommandHelp:
		resp, err := c.turns.HandleTurn(ctx, msg.UserID, "help")
		return resp.Text, err
	}

	c.touch(ctx, msg)
	return fmt.Sprintf("I don't know %s. Try /help.", msg.Command), nil
}

// touch records a command that does not go through a turn, so it shows in
// history and keeps the session alive.
func (c *Commands) touch(ctx context.Context, msg *ingress.Message) {
	text := msg.Text
	if text == "" {
		text = strings.TrimSpace(msg.Command + " " + strings.Join(msg.Args, " "))
	}
	if err := c.store.Touch(ctx, msg.UserID, session.Turn{Role: session.RoleUser, Text: text}); err != nil {
		slog.Warn("Failed to touch session", "user_id", msg.UserID, "command", msg.Command, "error", err)
	}
}

func (c *Commands) where(ctx context.Context, userID string) (string, error) {
	frame, ok, err := c.store.Get(ctx, userID)
	if err != nil {
		return "", owlErrors.Wrap(err, "failed to read session")
	}
	if !ok || frame.Area == "" {
		return "No neighborhood yet. Name one to start.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You're looking around %s", frame.Area)
	if desc := frame.Filters.Describe(); desc != "" {
		fmt.Fprintf(&b, " for %s things", desc)
	}
	b.WriteString(".")
	if frame.Pending != nil && frame.Pending.Area != "" {
		fmt.Fprintf(&b, " I suggested %s, say yes to go there.", frame.Pending.Area)
	}
	return b.String(), nil
}

func (c *Commands) status() string {
	if c.cache == nil {
		return "Listings are not available right now."
	}
	st := c.cache.Status()
	if st.RefreshedAt.IsZero() {
		return "Listings haven't loaded yet. They load with the first question."
	}

	age := time.Duration(st.AgeSeconds * float64(time.Second)).Round(time.Minute)
	text := fmt.Sprintf("I know about %d events, refreshed %s ago.", st.Size, formatAge(age))

	failing := []string{}
	for _, src := range st.Sources {
		if src.LastError != "" {
			failing = append(failing, src.Name)
		}
	}
	if len(failing) > 0 {
		text += " Some listings are unavailable: " + strings.Join(failing, ", ") + "."
	}
	return text
}

func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
