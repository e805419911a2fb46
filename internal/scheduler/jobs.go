package scheduler

import (
	"context"
	"log/slog"

	"github.com/harunnryd/nightowl/internal/metrics"
)

const (
	JobSessionSweep = "session_sweep"
	JobHousekeeping = "housekeeping"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Housekeeper drops expired idempotency keys and rate-limit windows.
type Housekeeper interface {
	Prune() (keys, counters int)
	SaveKeys() error
}

func SessionSweep(spec string, store Sweeper) Job {
	return Job{
		Name: JobSessionSweep,
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := store.Sweep(ctx)
			if err != nil {
				return err
			}
			metrics.SessionsSwept.Add(float64(n))
			if n > 0 {
				slog.Info("Expired sessions swept", "count", n)
			}
			return nil
		},
	}
}

func Housekeeping(spec string, h Housekeeper) Job {
	return Job{
		Name: JobHousekeeping,
		Spec: spec,
		Run: func(ctx context.Context) error {
			keys, counters := h.Prune()
			slog.Info("Housekeeping done", "idempotency_keys", keys, "rate_limit_counters", counters)
			return h.SaveKeys()
		},
	}
}
