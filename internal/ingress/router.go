package ingress

import (
	"context"
	"strings"
	"sync"

	"github.com/google/shlex"
)

type Destination int

const (
	DestPipeline Destination = iota // resolve the user and enqueue
	DestDrop                        // discard silently
)

const (
	CommandReset  = "/reset"
	CommandStatus = "/status"
	CommandWhere  = "/where"
	CommandHelp   = "/help"
)

// Router decides whether a message is queued and tags slash commands.
type Router interface {
	Route(ctx context.Context, msg *Message) Destination
}

type StandardRouter struct {
	commands map[string]struct{}
	dropped  map[string]struct{}
	mu       sync.RWMutex
}

func NewStandardRouter() *StandardRouter {
	r := &StandardRouter{
		commands: make(map[string]struct{}),
		dropped:  map[string]struct{}{"/exit": {}, "/quit": {}},
	}
	for _, name := range []string{CommandReset, CommandStatus, CommandWhere, CommandHelp} {
		r.RegisterCommand(name)
	}
	return r
}

func (r *StandardRouter) Route(ctx context.Context, msg *Message) Destination {
	if !strings.HasPrefix(msg.Text, "/") {
		return DestPipeline
	}

	parts, err := shlex.Split(msg.Text)
	if err != nil || len(parts) == 0 {
		return DestPipeline
	}

	// Telegram appends the bot name in groups: /status@nightowl_bot.
	cmd := strings.ToLower(parts[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}

	r.mu.RLock()
	_, drop := r.dropped[cmd]
	_, known := r.commands[cmd]
	r.mu.RUnlock()

	if drop {
		return DestDrop
	}

	// Unknown commands still reach a worker so the user gets an answer.
	msg.Kind = KindCommand
	msg.Command = cmd
	msg.Args = parts[1:]
	if !known {
		msg.Metadata = withMeta(msg.Metadata, "unknown_command", "true")
	}
	return DestPipeline
}

func (r *StandardRouter) RegisterCommand(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(name)] = struct{}{}
}

func withMeta(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[k] = v
	return m
}
