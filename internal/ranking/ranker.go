package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/geo"
)

const (
	DefaultCutoffKm    = 3.0
	DefaultRecentGrace = 2 * time.Hour
	DefaultMatchCap    = 10
	DefaultPoolSize    = 15
)

// Tagged is a renderer candidate marked with whether it satisfies the active filters.
type Tagged struct {
	Event event.Event `json:"event"`
	Match bool        `json:"match"`
}

type Options struct {
	CutoffKm    float64
	RecentGrace time.Duration
	MatchCap    int
	PoolSize    int
}

type Ranker struct {
	registry *geo.Registry
	opts     Options
}

func NewRanker(registry *geo.Registry, opts Options) *Ranker {
	if opts.CutoffKm <= 0 {
		opts.CutoffKm = DefaultCutoffKm
	}
	if opts.RecentGrace <= 0 {
		opts.RecentGrace = DefaultRecentGrace
	}
	if opts.MatchCap <= 0 {
		opts.MatchCap = DefaultMatchCap
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.PoolSize < opts.MatchCap {
		opts.PoolSize = opts.MatchCap
	}
	return &Ranker{registry: registry, opts: opts}
}

// FilterUpcoming drops events that are over. Dates are compared in now's location.
func (r *Ranker) FilterUpcoming(events []event.Event, now time.Time) []event.Event {
	loc := now.Location()
	today := now.Format(time.DateOnly)
	cutoff := now.Add(-r.opts.RecentGrace)

	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		switch {
		case e.End.Known():
			if e.End.DateOnly {
				if e.End.Date(loc) < today {
					continue
				}
			} else if e.End.At.Before(now) {
				continue
			}
		case e.Start.Known() && !e.Start.DateOnly:
			if e.Start.At.Before(cutoff) {
				continue
			}
		case e.Start.Known():
			if e.Start.Date(loc) < today {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Rank orders events for an area: date tier first (today or unknown, tomorrow,
// later), then distance. Events beyond the cutoff are dropped unless their
// location is unresolved; those sort after resolved events of the same tier.
func (r *Ranker) Rank(events []event.Event, area geo.Area, now time.Time) []event.Event {
	type scored struct {
		ev   event.Event
		tier int
		km   float64
	}

	loc := now.Location()
	today := now.Format(time.DateOnly)
	tomorrow := now.AddDate(0, 0, 1).Format(time.DateOnly)

	candidates := make([]scored, 0, len(events))
	for _, e := range events {
		km, resolved := r.distance(e, area)
		if resolved && km > r.opts.CutoffKm {
			continue
		}
		if !resolved {
			km = math.Inf(1)
		}
		candidates = append(candidates, scored{ev: e, tier: dateTier(e.Start.Date(loc), today, tomorrow), km: km})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.km != b.km {
			return a.km < b.km
		}
		if a.ev.SourceWeight != b.ev.SourceWeight {
			return a.ev.SourceWeight > b.ev.SourceWeight
		}
		return a.ev.ID < b.ev.ID
	})

	out := make([]event.Event, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ev)
	}
	return out
}

func dateTier(date, today, tomorrow string) int {
	switch {
	case date == "" || date <= today:
		return 0
	case date == tomorrow:
		return 1
	default:
		return 2
	}
}

func (r *Ranker) distance(e event.Event, area geo.Area) (float64, bool) {
	if e.Coord != nil {
		return geo.Distance(*e.Coord, area.Center), true
	}
	if e.Area == "" || r.registry == nil {
		return 0, false
	}
	if e.Area == area.Name {
		return 0, true
	}
	a, ok := r.registry.Lookup(e.Area)
	if !ok {
		return 0, false
	}
	return geo.Distance(a.Center, area.Center), true
}

// BuildTaggedPool selects up to MatchCap matching events and pads with
// non-matching ones to PoolSize, tagging each.
func (r *Ranker) BuildTaggedPool(events []event.Event, f Filters) []Tagged {
	pool := make([]Tagged, 0, r.opts.PoolSize)
	var rest []event.Event
	for _, e := range events {
		if f.Matches(e) {
			if len(pool) < r.opts.MatchCap {
				pool = append(pool, Tagged{Event: e, Match: true})
			}
			continue
		}
		rest = append(rest, e)
	}
	for _, e := range rest {
		if len(pool) >= r.opts.PoolSize {
			break
		}
		pool = append(pool, Tagged{Event: e, Match: false})
	}
	return pool
}
