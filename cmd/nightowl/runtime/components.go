package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/harunnryd/nightowl/internal/adapter"
	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/daemon"
	"github.com/harunnryd/nightowl/internal/daemon/components"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/ingress"
)

const IdempotencyFileName = "idempotency.json"

// Runtime is a daemon with every nightowl component registered.
type Runtime struct {
	Mode     Mode
	Daemon   *daemon.Daemon
	Adapters *adapter.RuntimeManager
	CLI      *adapter.CLIAdapter

	Sessions     *components.SessionsComponent
	Catalog      *components.CatalogComponent
	Conversation *components.ConversationComponent
	Ingress      *components.IngressComponent
	Workers      *components.WorkersComponent
	Scheduler    *components.SchedulerComponent
}

func NewRuntime(cfg *config.Config, mode Mode, out io.Writer) (*Runtime, error) {
	d, err := daemon.NewDaemon(cfg, daemon.Options{Mode: string(mode), Exclusive: mode == ModeServe})
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	r := &Runtime{Mode: mode, Daemon: d}

	// Chat keeps idempotency keys in memory so it never contends with a
	// running server over the data directory.
	keysPath := ""
	if mode == ModeServe {
		dataDir, err := config.ExpandPath(cfg.Daemon.DataDir)
		if err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
		keysPath = filepath.Join(dataDir, IdempotencyFileName)
	}

	r.Sessions = components.NewSessionsComponent(&cfg.Session)
	r.Catalog = components.NewCatalogComponent(cfg)
	r.Conversation = components.NewConversationComponent(cfg, r.Sessions, r.Catalog)
	r.Ingress = components.NewIngressComponent(&cfg.Ingress, keysPath)

	adapterOpts := adapter.RuntimeAdapterOptions{}
	adaptersCfg := cfg.Adapters
	switch mode {
	case ModeServe:
		adapterOpts.IncludeHTTPNull = true
		adapterOpts.RequireSlackSecrets = true
	case ModeChat:
		r.CLI = adapter.NewCLIAdapter(out)
		adapterOpts.CLI = r.CLI
		adaptersCfg = config.AdaptersConfig{}
	}

	r.Adapters, err = adapter.NewRuntimeManager(adaptersCfg, r.submit, adapterOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to configure adapters: %w", err)
	}

	r.Workers = components.NewWorkersComponent(cfg, r.Ingress, r.Conversation, r.Sessions, r.Catalog, r.Adapters)
	r.Scheduler = components.NewSchedulerComponent(cfg, r.Sessions, r.Ingress)

	// Stop runs in reverse: listeners close first, ingress drains into the
	// still running workers, and sessions go last.
	d.AddComponent(r.Sessions)
	d.AddComponent(r.Catalog)
	d.AddComponent(r.Conversation)
	d.AddComponent(r.Workers)
	d.AddComponent(r.Ingress)
	d.AddComponent(r.Scheduler)
	d.AddComponent(components.NewAdaptersComponent(r.Adapters))
	if mode == ModeServe {
		d.AddComponent(components.NewHTTPServerComponent(d, &cfg.Server, r.Catalog, r.Ingress))
	}

	slog.Debug("Runtime assembled", "mode", mode)
	return r, nil
}

// submit is the adapters' way into the pipeline. Chat platforms get a short
// reply when a message is refused for load; the terminal prints its own.
func (r *Runtime) submit(ctx context.Context, in adapter.Inbound) error {
	ing := r.Ingress.GetIngress()
	if ing == nil {
		return fmt.Errorf("ingress not initialized")
	}

	err := ing.Submit(ctx, ingress.NewMessage(in))
	if err == nil || in.Source == "cli" || in.ReplyTo == "" {
		return err
	}
	if errors.Is(err, owlErrors.ErrRateLimited) || errors.Is(err, owlErrors.ErrTransient) {
		if out, ok := r.Adapters.Output(in.Source); ok {
			if sendErr := out.Send(ctx, in.ReplyTo, submitErrorText(err)); sendErr != nil {
				slog.Warn("Failed to send refusal reply", "source", in.Source, "error", sendErr)
			}
		}
	}
	return err
}

// Submit feeds one line typed at the terminal.
func (r *Runtime) Submit(ctx context.Context, text string) error {
	return r.submit(ctx, adapter.Inbound{Source: "cli", Text: text})
}
