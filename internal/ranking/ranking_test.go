package ranking

import (
	"fmt"
	"testing"
	"time"

	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nyc = time.FixedZone("EDT", -4*3600)

// 2026-10-16 20:00 local
var now = time.Date(2026, 10, 16, 20, 0, 0, 0, nyc)

func at(day, hour int) event.Moment {
	return event.Moment{At: time.Date(2026, 10, day, hour, 0, 0, 0, nyc)}
}

func dateOnly(day int) event.Moment {
	return event.Moment{At: time.Date(2026, 10, day, 0, 0, 0, 0, nyc), DateOnly: true}
}

func ids(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func newTestRanker() *Ranker {
	return NewRanker(geo.Default(), Options{})
}

func TestFilterUpcoming(t *testing.T) {
	r := newTestRanker()
	events := []event.Event{
		{ID: "ended", Start: at(16, 17), End: at(16, 19)},
		{ID: "running", Start: at(16, 15), End: at(16, 23)},
		{ID: "started-recently", Start: at(16, 19)},
		{ID: "started-long-ago", Start: at(16, 16)},
		{ID: "yesterday", Start: dateOnly(15)},
		{ID: "today-date", Start: dateOnly(16)},
		{ID: "tomorrow", Start: at(17, 21)},
		{ID: "no-time"},
		{ID: "ended-yesterday-date", Start: dateOnly(14), End: dateOnly(15)},
	}

	got := r.FilterUpcoming(events, now)
	assert.Equal(t, []string{"running", "started-recently", "today-date", "tomorrow", "no-time"}, ids(got))
}

func TestRank_DateTierDominatesDistance(t *testing.T) {
	r := newTestRanker()
	ev, _ := geo.Default().Lookup("East Village")

	events := []event.Event{
		{ID: "near-tomorrow", Area: "East Village", Start: at(17, 20)},
		{ID: "far-today", Area: "Lower East Side", Start: at(16, 22)},
	}
	got := r.Rank(events, ev, now)
	assert.Equal(t, []string{"far-today", "near-tomorrow"}, ids(got))
}

func TestRank_DistanceWithinTier(t *testing.T) {
	r := newTestRanker()
	ev, _ := geo.Default().Lookup("East Village")

	events := []event.Event{
		{ID: "soho", Area: "SoHo", Start: at(16, 21)},
		{ID: "unknown-location", Start: at(16, 21)},
		{ID: "home", Area: "East Village", Start: at(16, 23)},
		{ID: "coord-les", Coord: &geo.Coord{Lat: 40.7150, Lng: -73.9843}, Start: at(16, 21)},
		{ID: "undated-home", Area: "East Village"},
		{ID: "later", Area: "East Village", Start: dateOnly(20)},
	}
	got := r.Rank(events, ev, now)
	assert.Equal(t, []string{"home", "undated-home", "coord-les", "soho", "unknown-location", "later"}, ids(got))
}

func TestRank_DropsBeyondCutoffButKeepsUnresolved(t *testing.T) {
	r := newTestRanker()
	ev, _ := geo.Default().Lookup("East Village")

	events := []event.Event{
		{ID: "harlem", Area: "Harlem", Start: at(16, 21)},
		{ID: "astoria", Area: "Astoria", Start: at(16, 21)},
		{ID: "mystery", Start: at(16, 21)},
		{ID: "unregistered-area", Area: "Atlantis", Start: at(16, 21)},
	}
	got := r.Rank(events, ev, now)
	assert.ElementsMatch(t, []string{"mystery", "unregistered-area"}, ids(got))
}

func comedyAndMusic() []event.Event {
	return []event.Event{
		{ID: "m1", Category: event.CategoryLiveMusic, IsFree: true},
		{ID: "m2", Category: event.CategoryLiveMusic},
		{ID: "a1", Category: event.CategoryArt, IsFree: true},
	}
}

func TestApplyFilters_SoftFallsBack(t *testing.T) {
	got := ApplyFilters(comedyAndMusic(), Filters{Category: event.CategoryComedy}, false)
	assert.Equal(t, []string{"m1", "m2", "a1"}, ids(got))
}

func TestApplyFilters_StrictNeverFallsBack(t *testing.T) {
	got := ApplyFilters(comedyAndMusic(), Filters{Category: event.CategoryComedy}, true)
	assert.Empty(t, got)
}

func TestApplyFilters_FreeIsAlwaysHard(t *testing.T) {
	got := ApplyFilters(comedyAndMusic(), Filters{FreeOnly: true}, false)
	assert.Equal(t, []string{"m1", "a1"}, ids(got))

	got = ApplyFilters(comedyAndMusic(), Filters{FreeOnly: true, Category: event.CategoryComedy}, false)
	assert.Equal(t, []string{"m1", "a1"}, ids(got), "soft fallback stays within the free set")

	got = ApplyFilters([]event.Event{{ID: "paid"}}, Filters{FreeOnly: true}, false)
	assert.Empty(t, got)
}

func TestApplyFilters_Category(t *testing.T) {
	got := ApplyFilters(comedyAndMusic(), Filters{Category: event.CategoryLiveMusic}, true)
	assert.Equal(t, []string{"m1", "m2"}, ids(got))
}

func TestApplyFilters_TimeOfDay(t *testing.T) {
	events := []event.Event{
		{ID: "afternoon", Start: at(16, 14)},
		{ID: "evening", Start: at(16, 19)},
		{ID: "late", Start: at(16, 23)},
		{ID: "date-only", Start: dateOnly(16)},
	}
	assert.Equal(t, []string{"late"}, ids(ApplyFilters(events, Filters{TimeOfDay: Late}, true)))
	assert.Equal(t, []string{"evening"}, ids(ApplyFilters(events, Filters{TimeOfDay: Evening}, true)))
}

func TestApplyFilters_TimeOfDayFromUTCListing(t *testing.T) {
	start, err := event.ParseMoment("2026-10-16T23:00:00Z", nyc)
	require.NoError(t, err)
	events := []event.Event{{ID: "utc", Start: start}}

	assert.Equal(t, []string{"utc"}, ids(ApplyFilters(events, Filters{TimeOfDay: Evening}, true)))
	assert.Empty(t, ApplyFilters(events, Filters{TimeOfDay: Late}, true))
}

func TestBuildTaggedPool(t *testing.T) {
	r := newTestRanker()

	var events []event.Event
	for i := 0; i < 12; i++ {
		events = append(events, event.Event{ID: fmt.Sprintf("c%02d", i), Category: event.CategoryComedy})
	}
	for i := 0; i < 10; i++ {
		events = append(events, event.Event{ID: fmt.Sprintf("o%02d", i), Category: event.CategoryOther})
	}

	pool := r.BuildTaggedPool(events, Filters{Category: event.CategoryComedy})
	require.Len(t, pool, DefaultPoolSize)

	matches := 0
	for i, tagged := range pool {
		if tagged.Match {
			matches++
			assert.Equal(t, event.CategoryComedy, tagged.Event.Category)
		} else {
			assert.GreaterOrEqual(t, i, DefaultMatchCap, "matches come first")
		}
	}
	assert.Equal(t, DefaultMatchCap, matches)
}

func TestBuildTaggedPool_Small(t *testing.T) {
	r := newTestRanker()
	pool := r.BuildTaggedPool(comedyAndMusic(), Filters{FreeOnly: true})
	require.Len(t, pool, 3)
	assert.True(t, pool[0].Match)
	assert.True(t, pool[1].Match)
	assert.False(t, pool[2].Match)
	assert.Equal(t, "m2", pool[2].Event.ID)
}

func TestFilters_Describe(t *testing.T) {
	assert.Equal(t, "free live music late", Filters{FreeOnly: true, Category: event.CategoryLiveMusic, TimeOfDay: Late}.Describe())
	assert.True(t, Filters{}.IsZero())
}

func TestParseTimeOfDay(t *testing.T) {
	tod, ok := ParseTimeOfDay("Tonight")
	require.True(t, ok)
	assert.Equal(t, Evening, tod)
	_, ok = ParseTimeOfDay("brunch")
	assert.False(t, ok)
}
