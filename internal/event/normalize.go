package event

import (
	"log/slog"
	"math"
	"strings"
	"time"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/geo"
)

const defaultConfidence = 0.5

// categoryKeywords is checked in order; the first category with a keyword
// present (on word boundaries) wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryComedy, []string{"comedy", "stand up", "standup", "improv", "comedian", "sketch"}},
	{CategoryTheater, []string{"theater", "theatre", "play", "musical", "broadway", "off broadway", "cabaret", "drag show"}},
	{CategoryLiveMusic, []string{"live music", "concert", "band", "jazz", "gig", "orchestra", "singer songwriter", "music"}},
	{CategoryNightlife, []string{"party", "club", "dj", "dance night", "karaoke", "rave", "bar crawl", "nightlife", "bar", "bars"}},
	{CategoryArt, []string{"gallery", "exhibit", "exhibition", "opening reception", "art", "museum", "film", "screening"}},
	{CategoryFoodDrink, []string{"tasting", "food", "dinner", "brunch", "wine", "beer", "cocktail", "happy hour", "market", "drinks"}},
	{CategoryCommunity, []string{"meetup", "workshop", "class", "volunteer", "community", "talk", "book club", "reading", "trivia"}},
}

var freePhrases = []string{"free", "no cover"}

// Normalizer turns adapter records into canonical events.
type Normalizer struct {
	registry *geo.Registry
	loc      *time.Location
}

func NewNormalizer(registry *geo.Registry, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{registry: registry, loc: loc}
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize maps one raw record. Records without a name are malformed.
func (n *Normalizer) Normalize(raw RawRecord, weight float64) (Event, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Event{}, owlErrors.MalformedRecord("record has no name")
	}

	ev := Event{
		Name:         name,
		VenueName:    strings.TrimSpace(raw.Venue),
		Address:      strings.TrimSpace(raw.Address),
		Subcategory:  strings.TrimSpace(raw.Category),
		PriceText:    strings.TrimSpace(raw.Price),
		Source:       raw.Source,
		SourceWeight: clamp01(weight),
		Confidence:   defaultConfidence,
	}
	if raw.Confidence != nil && !math.IsNaN(*raw.Confidence) {
		ev.Confidence = clamp01(*raw.Confidence)
	}
	if u := strings.TrimSpace(raw.URL); u != "" {
		ev.Links = []string{u}
	}

	if start, err := ParseMoment(raw.Start, n.loc); err == nil {
		ev.Start = start
	} else {
		slog.Debug("Unparseable start time", "source", raw.Source, "name", name, "value", raw.Start)
	}
	if end, err := ParseMoment(raw.End, n.loc); err == nil {
		ev.End = end
	}

	if raw.Lat != nil && raw.Lng != nil {
		ev.Coord = &geo.Coord{Lat: *raw.Lat, Lng: *raw.Lng}
	}
	ev.Area = n.resolveArea(raw, ev.Coord)
	ev.Category = inferCategory(raw.Category, raw.Tags, name)
	ev.IsFree = detectFree(raw.IsFree, ev.PriceText)

	ev.ID = Fingerprint(ev.Name, ev.VenueName, ev.Start.Date(n.loc), ev.Source, ev.FirstLink())
	return ev, nil
}

// NormalizeBatch normalizes every record, skipping and logging malformed ones.
func (n *Normalizer) NormalizeBatch(source string, weight float64, raws []RawRecord) []Event {
	out := make([]Event, 0, len(raws))
	for _, raw := range raws {
		if raw.Source == "" {
			raw.Source = source
		}
		ev, err := n.Normalize(raw, weight)
		if err != nil {
			slog.Warn("Skipping malformed record", "source", source, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (n *Normalizer) resolveArea(raw RawRecord, coord *geo.Coord) string {
	if n.registry == nil {
		return ""
	}
	if a, ok := n.registry.Lookup(raw.Locality); ok {
		return a.Name
	}
	hint := strings.TrimSpace(raw.Locality + " " + raw.Address)
	if a, ok := n.registry.Resolve(hint, coord); ok {
		return a.Name
	}
	return ""
}

func inferCategory(explicit string, tags []string, name string) Category {
	if c, ok := ParseCategory(explicit); ok {
		return c
	}
	for _, text := range append([]string{explicit, strings.Join(tags, " ")}, name) {
		if c, ok := matchCategory(text); ok {
			return c
		}
	}
	return CategoryOther
}

func matchCategory(text string) (Category, bool) {
	padded := " " + NormalizeText(text) + " "
	if strings.TrimSpace(padded) == "" {
		return "", false
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return entry.category, true
			}
		}
	}
	return "", false
}

func detectFree(explicit *bool, price string) bool {
	if explicit != nil {
		return *explicit
	}
	p := strings.ToLower(strings.TrimSpace(price))
	if p == "" {
		return false
	}
	switch p {
	case "0", "$0", "0.00", "$0.00":
		return true
	}
	for _, phrase := range freePhrases {
		if strings.Contains(p, phrase) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
