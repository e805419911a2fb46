package event

import (
	"strings"
	"time"
	"unicode"

	"github.com/harunnryd/nightowl/internal/geo"
)

type Category string

const (
	CategoryArt       Category = "art"
	CategoryNightlife Category = "nightlife"
	CategoryLiveMusic Category = "live_music"
	CategoryComedy    Category = "comedy"
	CategoryCommunity Category = "community"
	CategoryFoodDrink Category = "food_drink"
	CategoryTheater   Category = "theater"
	CategoryOther     Category = "other"
)

var allCategories = []Category{
	CategoryArt, CategoryNightlife, CategoryLiveMusic, CategoryComedy,
	CategoryCommunity, CategoryFoodDrink, CategoryTheater, CategoryOther,
}

func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory accepts the canonical names plus dashed, spaced and "&" spellings.
func ParseCategory(s string) (Category, bool) {
	key := strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	}), "_")
	for _, c := range allCategories {
		if string(c) == key {
			return c, true
		}
	}
	return "", false
}

// Moment is a point in local civil time that may carry only a date.
type Moment struct {
	At       time.Time `json:"at"`
	DateOnly bool      `json:"date_only,omitempty"`
}

func (m Moment) Known() bool {
	return !m.At.IsZero()
}

// Date returns the calendar date of the moment in loc, or "" when unknown.
func (m Moment) Date(loc *time.Location) string {
	if !m.Known() {
		return ""
	}
	if m.DateOnly {
		return m.At.Format(time.DateOnly)
	}
	return m.At.In(loc).Format(time.DateOnly)
}

// Event is the canonical listing record. Events are immutable once cached.
type Event struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	VenueName    string     `json:"venue_name,omitempty"`
	Address      string     `json:"address,omitempty"`
	Area         string     `json:"area,omitempty"`
	Coord        *geo.Coord `json:"coord,omitempty"`
	Category     Category   `json:"category"`
	Subcategory  string     `json:"subcategory,omitempty"`
	Start        Moment     `json:"start"`
	End          Moment     `json:"end"`
	IsFree       bool       `json:"is_free"`
	PriceText    string     `json:"price_text,omitempty"`
	Confidence   float64    `json:"confidence"`
	Source       string     `json:"source"`
	SourceWeight float64    `json:"source_weight"`
	Links        []string   `json:"links,omitempty"`
}

// Resolved reports whether the event has any location usable for distance ranking.
func (e Event) Resolved() bool {
	return e.Area != "" || e.Coord != nil
}

func (e Event) FirstLink() string {
	if len(e.Links) == 0 {
		return ""
	}
	return e.Links[0]
}

// RawRecord is what source adapters produce before normalization. Every field
// is optional except Name; times are unparsed strings in whatever shape the
// source uses.
type RawRecord struct {
	Source     string
	Name       string
	Venue      string
	Address    string
	Locality   string
	Lat        *float64
	Lng        *float64
	Category   string
	Tags       []string
	Start      string
	End        string
	Price      string
	IsFree     *bool
	URL        string
	Confidence *float64
}
