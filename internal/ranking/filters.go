package ranking

import (
	"strings"

	"github.com/harunnryd/nightowl/internal/event"
)

type TimeOfDay string

const (
	AnyTime   TimeOfDay = ""
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Late      TimeOfDay = "late"
)

// ParseTimeOfDay accepts the canonical names and a few colloquial ones.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "afternoon", "daytime", "day":
		return Afternoon, true
	case "evening", "tonight", "night":
		return Evening, true
	case "late", "late night", "latenight", "after midnight":
		return Late, true
	}
	return AnyTime, false
}

// Contains reports whether an hour of the day falls into the window. Late
// wraps past midnight.
func (t TimeOfDay) Contains(hour int) bool {
	switch t {
	case Afternoon:
		return hour >= 12 && hour < 17
	case Evening:
		return hour >= 17 && hour < 22
	case Late:
		return hour >= 22 || hour < 4
	default:
		return true
	}
}

// Filters narrows a candidate list. FreeOnly is always hard; Category and
// TimeOfDay are soft unless the caller asks for strict matching.
type Filters struct {
	FreeOnly  bool           `json:"free_only,omitempty"`
	Category  event.Category `json:"category,omitempty"`
	TimeOfDay TimeOfDay      `json:"time_of_day,omitempty"`
}

func (f Filters) IsZero() bool {
	return !f.FreeOnly && f.Category == "" && f.TimeOfDay == AnyTime
}

func (f Filters) hasSoft() bool {
	return f.Category != "" || f.TimeOfDay != AnyTime
}

// Matches applies every set criterion.
func (f Filters) Matches(e event.Event) bool {
	if f.FreeOnly && !e.IsFree {
		return false
	}
	return f.matchesSoft(e)
}

func (f Filters) matchesSoft(e event.Event) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.TimeOfDay != AnyTime {
		if !e.Start.Known() || e.Start.DateOnly {
			return false
		}
		if !f.TimeOfDay.Contains(e.Start.At.Hour()) {
			return false
		}
	}
	return true
}

// Describe renders the filters as a short phrase, e.g. "free comedy".
func (f Filters) Describe() string {
	parts := make([]string, 0, 3)
	if f.FreeOnly {
		parts = append(parts, "free")
	}
	if f.Category != "" {
		parts = append(parts, strings.ReplaceAll(string(f.Category), "_", " "))
	}
	if f.TimeOfDay != AnyTime {
		parts = append(parts, string(f.TimeOfDay))
	}
	return strings.Join(parts, " ")
}

// ApplyFilters keeps free events when FreeOnly is set, then narrows by the
// soft criteria. Without strict, a soft filter that matches nothing falls
// back to the free-filtered set.
func ApplyFilters(events []event.Event, f Filters, strict bool) []event.Event {
	base := events
	if f.FreeOnly {
		base = make([]event.Event, 0, len(events))
		for _, e := range events {
			if e.IsFree {
				base = append(base, e)
			}
		}
	}
	if !f.hasSoft() {
		return base
	}

	matched := make([]event.Event, 0, len(base))
	for _, e := range base {
		if f.matchesSoft(e) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 && !strict {
		return base
	}
	return matched
}
