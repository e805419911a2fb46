package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/nightowl/internal/adapter"
	"github.com/harunnryd/nightowl/internal/concurrency"
	"github.com/harunnryd/nightowl/internal/config"
	"github.com/harunnryd/nightowl/internal/conversation"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/ingress"
	"github.com/harunnryd/nightowl/internal/logger"
	"github.com/harunnryd/nightowl/internal/metrics"
)

// Turns runs one conversational turn for a user.
type Turns interface {
	HandleTurn(ctx context.Context, userID, text string) (conversation.Response, error)
}

// Outputs finds the adapter that delivers replies for a message source.
type Outputs interface {
	Output(name string) (adapter.OutputAdapter, bool)
}

type RuntimeConfig struct {
	Count           int
	ShutdownTimeout time.Duration
}

// Worker runs a pool of goroutines consuming the ingress queue. Turns for the
// same user are serialized by a keyed lock; different users run in parallel.
type Worker struct {
	mu      sync.RWMutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup

	messages <-chan *ingress.Message
	turns    Turns
	commands *Commands
	outputs  Outputs
	locks    *concurrency.KeyedLocker

	count           int
	shutdownTimeout time.Duration
}

func NewWorker(messages <-chan *ingress.Message, turns Turns, commands *Commands, outputs Outputs, locks *concurrency.KeyedLocker, runtimeCfg RuntimeConfig) *Worker {
	if runtimeCfg.Count <= 0 {
		runtimeCfg.Count = config.DefaultWorkerCount
	}
	if runtimeCfg.ShutdownTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultWorkerShutdownTimeout)
		if err == nil {
			runtimeCfg.ShutdownTimeout = d
		}
	}
	if locks == nil {
		locks = concurrency.NewKeyedLocker()
	}

	return &Worker{
		messages: messages,
		turns:    turns,
		commands: commands,
		outputs:  outputs,
		locks:    locks,

		count:           runtimeCfg.Count,
		shutdownTimeout: runtimeCfg.ShutdownTimeout,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("worker already started: %w", owlErrors.InvalidInput("worker already started"))
	}

	w.started = true
	w.quit = make(chan struct{})

	for n := 0; n < w.count; n++ {
		name := fmt.Sprintf("worker-%d", n)
		w.wg.Add(1)
		concurrency.SafeGo(name, func() {
			defer w.wg.Done()
			w.loop(ctx, name)
		}, nil)
	}

	slog.Info("Workers started", "count", w.count)
	return nil
}

func (w *Worker) loop(ctx context.Context, name string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case msg, ok := <-w.messages:
			if !ok {
				slog.Debug("Worker stopping (queue closed)", "worker", name)
				return
			}
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg *ingress.Message) {
	defer concurrency.Recover("worker.process", nil)

	ctx = logger.WithTraceID(ctx, msg.ID)
	ctx = logger.WithUserID(ctx, msg.UserID)
	log := logger.From(ctx)

	w.locks.Lock(msg.UserID)
	defer w.locks.Unlock(msg.UserID)

	start := time.Now()
	text, err := w.handle(ctx, msg)
	metrics.TurnDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		log.Error("Message handling failed", "kind", msg.Kind, "error", err)
		if text == "" {
			text = conversation.ApologyText
		}
	}

	if err := w.reply(ctx, msg, text); err != nil {
		log.Error("Reply failed", "source", msg.Source, "error", err)
		return
	}
	log.Debug("Message processed", "duration", time.Since(start))
}

func (w *Worker) handle(ctx context.Context, msg *ingress.Message) (string, error) {
	if msg.Kind == ingress.KindCommand {
		if w.commands == nil {
			return "", owlErrors.Internal("commands not configured")
		}
		return w.commands.Handle(ctx, msg)
	}
	resp, err := w.turns.HandleTurn(ctx, msg.UserID, msg.Text)
	return resp.Text, err
}

func (w *Worker) reply(ctx context.Context, msg *ingress.Message, text string) error {
	if text == "" {
		return nil
	}
	out, ok := w.outputs.Output(msg.Source)
	if !ok {
		return owlErrors.NotFound("no output adapter for " + msg.Source)
	}
	return out.Send(ctx, msg.ReplyTo, text)
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		slog.Info("Worker not started, skipping stop")
		return nil
	}

	slog.Info("Stopping workers...")
	close(w.quit)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Workers stopped gracefully")
		w.started = false
		return nil
	case <-time.After(w.shutdownTimeout):
		slog.Warn("Worker shutdown timeout, force stopping")
		w.started = false
		return owlErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every worker goroutine has exited, which happens once the
// ingress queue is closed and drained.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) Health(ctx context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.started {
		return owlErrors.Internal("worker not started")
	}
	if w.messages == nil {
		return owlErrors.Internal("message channel not initialized")
	}
	if w.turns == nil {
		return owlErrors.Internal("conversation engine not configured")
	}
	if w.outputs == nil {
		return owlErrors.Internal("outputs not configured")
	}
	return nil
}
