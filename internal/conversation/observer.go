package conversation

import (
	"context"

	"github.com/harunnryd/nightowl/internal/logger"
	"github.com/harunnryd/nightowl/internal/metrics"
	"github.com/harunnryd/nightowl/internal/nlu"
	"github.com/harunnryd/nightowl/internal/ranking"
)

type Stage string

const (
	StageClassify Stage = "classify"
	StageResolve  Stage = "resolve"
	StageDispatch Stage = "dispatch"
)

// Decision describes one decision point of a turn.
type Decision struct {
	UserID       string
	Stage        Stage
	Intent       nlu.Intent
	Rule         string
	Area         string
	AreaSource   string
	Filters      ranking.Filters
	FilterSource string
	Outcome      Outcome
	Err          error
}

// Observer is told about every decision; it must not influence control flow.
type Observer interface {
	Observe(ctx context.Context, d Decision)
}

type ObserverFunc func(ctx context.Context, d Decision)

func (f ObserverFunc) Observe(ctx context.Context, d Decision) { f(ctx, d) }

type Observers []Observer

func (o Observers) Observe(ctx context.Context, d Decision) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, d)
		}
	}
}

// LogObserver writes decisions to the context logger.
type LogObserver struct{}

func (LogObserver) Observe(ctx context.Context, d Decision) {
	log := logger.From(ctx)
	switch d.Stage {
	case StageClassify:
		log.Debug("Turn classified", "user_id", d.UserID, "intent", d.Intent, "rule", d.Rule)
	case StageResolve:
		log.Debug("Turn resolved", "user_id", d.UserID, "area", d.Area, "area_source", d.AreaSource,
			"filters", d.Filters.Describe(), "filter_source", d.FilterSource)
	case StageDispatch:
		if d.Err != nil {
			log.Warn("Turn degraded", "user_id", d.UserID, "intent", d.Intent, "error", d.Err)
			return
		}
		log.Info("Turn handled", "user_id", d.UserID, "intent", d.Intent, "area", d.Area, "outcome", d.Outcome)
	}
}

// MetricsObserver counts dispatched turns by intent.
type MetricsObserver struct{}

func (MetricsObserver) Observe(ctx context.Context, d Decision) {
	if d.Stage != StageDispatch {
		return
	}
	intent := string(d.Intent)
	if d.Outcome == OutcomeApology {
		intent = string(OutcomeApology)
	}
	if intent == "" {
		intent = "unknown"
	}
	metrics.TurnsHandled.WithLabelValues(intent).Inc()
}
