package event

import (
	"errors"
	"math"
	"testing"
	"time"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var newYork = time.FixedZone("EDT", -4*3600)

func ptr[T any](v T) *T { return &v }

func TestFingerprint_EquivalentListingsMatch(t *testing.T) {
	a := Fingerprint("The Jazz Night!", "Smalls Jazz Club", "2026-10-16", "feed-a", "https://a.example/1")
	b := Fingerprint("jazz   night", "smalls jazz club", "2026-10-16", "feed-b", "https://b.example/9")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFingerprint_DifferentDatesDiffer(t *testing.T) {
	a := Fingerprint("Jazz Night", "Smalls", "2026-10-16", "", "")
	b := Fingerprint("Jazz Night", "Smalls", "2026-10-17", "", "")
	assert.NotEqual(t, a, b)
}

func TestFingerprint_FallsBackToSourceAndLink(t *testing.T) {
	a := Fingerprint("", "", "", "search", "https://x.example/1")
	b := Fingerprint("", "", "", "search", "https://x.example/2")
	c := Fingerprint("", "", "", "SEARCH", "https://x.example/1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"comedy":       CategoryComedy,
		"Live Music":   CategoryLiveMusic,
		"live-music":   CategoryLiveMusic,
		"food & drink": CategoryFoodDrink,
	} {
		got, ok := ParseCategory(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseCategory("sports")
	assert.False(t, ok)
}

func TestParseMoment(t *testing.T) {
	m, err := ParseMoment("2026-10-16T21:30:00-04:00", newYork)
	require.NoError(t, err)
	assert.False(t, m.DateOnly)
	assert.Equal(t, "2026-10-16", m.Date(newYork))

	m, err = ParseMoment("2026-10-16 20:00", newYork)
	require.NoError(t, err)
	assert.Equal(t, 20, m.At.In(newYork).Hour())

	m, err = ParseMoment("2026-10-17", newYork)
	require.NoError(t, err)
	assert.True(t, m.DateOnly)
	assert.Equal(t, "2026-10-17", m.Date(newYork))

	m, err = ParseMoment("", newYork)
	require.NoError(t, err)
	assert.False(t, m.Known())

	_, err = ParseMoment("sometime soon", newYork)
	assert.Error(t, err)
}

func TestParseMoment_OffsetAndEpochUseCityClock(t *testing.T) {
	m, err := ParseMoment("2026-10-16T23:00:00Z", newYork)
	require.NoError(t, err)
	assert.Equal(t, 19, m.At.Hour())
	assert.Equal(t, "2026-10-16", m.Date(newYork))

	m, err = ParseMoment("2026-10-17T02:30:00Z", newYork)
	require.NoError(t, err)
	assert.Equal(t, 22, m.At.Hour())
	assert.Equal(t, "2026-10-16", m.Date(newYork))

	m, err = ParseMoment("1792191600", newYork)
	require.NoError(t, err)
	assert.Equal(t, newYork, m.At.Location())
	assert.Equal(t, 19, m.At.Hour())

	m, err = ParseMoment("1792191600000", newYork)
	require.NoError(t, err)
	assert.Equal(t, 19, m.At.Hour())
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(geo.Default(), newYork)

	ev, err := n.Normalize(RawRecord{
		Source:     "venues",
		Name:       "  Late Show Stand-Up  ",
		Venue:      "Comedy Cellar",
		Address:    "117 MacDougal St, West Village",
		Start:      "2026-10-16T22:00:00-04:00",
		Price:      "Free with RSVP",
		URL:        "https://venues.example/123",
		Confidence: ptr(1.4),
	}, 0.9)
	require.NoError(t, err)

	assert.Equal(t, "Late Show Stand-Up", ev.Name)
	assert.Equal(t, "West Village", ev.Area)
	assert.Equal(t, CategoryComedy, ev.Category)
	assert.True(t, ev.IsFree)
	assert.Equal(t, 1.0, ev.Confidence)
	assert.Equal(t, 0.9, ev.SourceWeight)
	assert.Equal(t, []string{"https://venues.example/123"}, ev.Links)
	assert.Equal(t, Fingerprint("Late Show Stand-Up", "Comedy Cellar", "2026-10-16", "", ""), ev.ID)
}

func TestNormalize_ExplicitFlagsWin(t *testing.T) {
	n := NewNormalizer(geo.Default(), newYork)

	ev, err := n.Normalize(RawRecord{
		Name:     "Gallery Opening",
		Category: "nightlife",
		Price:    "free",
		IsFree:   ptr(false),
		Lat:      ptr(40.7081),
		Lng:      ptr(-73.9571),
	}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, CategoryNightlife, ev.Category)
	assert.False(t, ev.IsFree)
	assert.Equal(t, "Williamsburg", ev.Area)
	require.NotNil(t, ev.Coord)
}

func TestNormalize_PriceDetection(t *testing.T) {
	assert.True(t, detectFree(nil, "$0"))
	assert.True(t, detectFree(nil, "No cover"))
	assert.False(t, detectFree(nil, "$10.00"))
	assert.False(t, detectFree(nil, ""))
}

func TestNormalize_UnknownEverything(t *testing.T) {
	n := NewNormalizer(geo.Default(), newYork)

	ev, err := n.Normalize(RawRecord{Name: "Mystery thing", Start: "whenever"}, 0.4)
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, ev.Category)
	assert.Empty(t, ev.Area)
	assert.False(t, ev.Resolved())
	assert.False(t, ev.Start.Known())
}

func TestNormalize_ScoresStayInUnitRange(t *testing.T) {
	n := NewNormalizer(geo.Default(), newYork)

	ev, err := n.Normalize(RawRecord{Name: "Open Mic", Confidence: ptr(math.NaN())}, math.NaN())
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.SourceWeight)
	assert.Equal(t, defaultConfidence, ev.Confidence)

	ev, err = n.Normalize(RawRecord{Name: "Open Mic", Confidence: ptr(7.0)}, -2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.SourceWeight)
	assert.Equal(t, 1.0, ev.Confidence)

	assert.Equal(t, 0.0, clamp01(math.NaN()))
	assert.Equal(t, 0.25, clamp01(0.25))
}

func TestNormalize_MalformedRecord(t *testing.T) {
	n := NewNormalizer(geo.Default(), newYork)

	_, err := n.Normalize(RawRecord{Venue: "Nowhere"}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, owlErrors.ErrMalformedRecord))

	events := n.NormalizeBatch("venues", 1, []RawRecord{{Venue: "Nowhere"}, {Name: "Trivia Night"}})
	require.Len(t, events, 1)
	assert.Equal(t, "venues", events[0].Source)
	assert.Equal(t, CategoryCommunity, events[0].Category)
}
