package geo

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	DefaultResolveKm           = 3.0
	DefaultCrossBoroughPenalty = 3.0
	earthRadiusKm              = 6371.0
)

type Coord struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Area is a named neighborhood. Aliases cover landmarks and transit stops.
type Area struct {
	Name     string   `yaml:"name" json:"name"`
	Borough  string   `yaml:"borough" json:"borough"`
	Center   Coord    `yaml:"center" json:"center"`
	RadiusKm float64  `yaml:"radius_km" json:"radius_km"`
	Aliases  []string `yaml:"aliases" json:"aliases,omitempty"`
}

// Borough groups areas; Default names the area used when only the borough is mentioned.
type Borough struct {
	Name    string   `yaml:"name"`
	Default string   `yaml:"default"`
	Aliases []string `yaml:"aliases"`
}

type aliasEntry struct {
	phrase string
	index  int
}

type Registry struct {
	areas        []Area
	byKey        map[string]int
	aliases      []aliasEntry
	boroughs     []Borough
	resolveKm    float64
	crossPenalty float64
}

type Option func(*Registry)

// WithResolveRadius sets how far a coordinate may be from an area center and still resolve to it.
func WithResolveRadius(km float64) Option {
	return func(r *Registry) {
		if km > 0 {
			r.resolveKm = km
		}
	}
}

// WithCrossBoroughPenalty sets the distance multiplier applied between boroughs in Adjacent.
func WithCrossBoroughPenalty(factor float64) Option {
	return func(r *Registry) {
		if factor >= 1 {
			r.crossPenalty = factor
		}
	}
}

func NewRegistry(areas []Area, boroughs []Borough, opts ...Option) (*Registry, error) {
	if len(areas) == 0 {
		return nil, fmt.Errorf("area registry is empty")
	}

	r := &Registry{
		areas:        make([]Area, len(areas)),
		byKey:        make(map[string]int, len(areas)),
		boroughs:     boroughs,
		resolveKm:    DefaultResolveKm,
		crossPenalty: DefaultCrossBoroughPenalty,
	}
	copy(r.areas, areas)
	for _, opt := range opts {
		opt(r)
	}

	for i, a := range r.areas {
		key := normalizePhrase(a.Name)
		if key == "" {
			return nil, fmt.Errorf("area %d has no name", i)
		}
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate area %q", a.Name)
		}
		r.byKey[key] = i

		seen := map[string]bool{key: true}
		r.aliases = append(r.aliases, aliasEntry{phrase: key, index: i})
		for _, alias := range a.Aliases {
			phrase := normalizePhrase(alias)
			if phrase == "" || seen[phrase] {
				continue
			}
			seen[phrase] = true
			r.aliases = append(r.aliases, aliasEntry{phrase: phrase, index: i})
		}
	}

	for _, b := range r.boroughs {
		if b.Default == "" {
			continue
		}
		if _, ok := r.byKey[normalizePhrase(b.Default)]; !ok {
			return nil, fmt.Errorf("borough %q default area %q is not registered", b.Name, b.Default)
		}
	}

	sort.SliceStable(r.aliases, func(i, j int) bool {
		return len(r.aliases[i].phrase) > len(r.aliases[j].phrase)
	})
	return r, nil
}

type registryFile struct {
	Boroughs []Borough `yaml:"boroughs"`
	Areas    []Area    `yaml:"areas"`
}

// LoadRegistry reads an area registry from a YAML file.
func LoadRegistry(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse areas file: %w", err)
	}
	return NewRegistry(f.Areas, f.Boroughs, opts...)
}

// Resolve maps free text and an optional coordinate to an area. Alias match wins,
// then nearest center within the resolve radius, then a borough mention when no
// coordinate was supplied.
func (r *Registry) Resolve(text string, coord *Coord) (Area, bool) {
	if a, ok := r.MatchArea(text); ok {
		return a, true
	}
	if coord != nil {
		a, _, ok := r.Nearest(*coord)
		return a, ok
	}
	return r.matchBorough(text)
}

// MatchArea finds the longest alias contained in text on word boundaries.
func (r *Registry) MatchArea(text string) (Area, bool) {
	padded := " " + normalizePhrase(text) + " "
	if strings.TrimSpace(padded) == "" {
		return Area{}, false
	}
	for _, alias := range r.aliases {
		if strings.Contains(padded, " "+alias.phrase+" ") {
			return r.areas[alias.index], true
		}
	}
	return Area{}, false
}

// Nearest returns the closest area center within the resolve radius.
func (r *Registry) Nearest(c Coord) (Area, float64, bool) {
	best := -1
	bestKm := math.Inf(1)
	for i, a := range r.areas {
		d := Distance(c, a.Center)
		if d < bestKm {
			best, bestKm = i, d
		}
	}
	if best < 0 || bestKm > r.resolveKm {
		return Area{}, 0, false
	}
	return r.areas[best], bestKm, true
}

func (r *Registry) matchBorough(text string) (Area, bool) {
	padded := " " + normalizePhrase(text) + " "
	for _, b := range r.boroughs {
		phrases := append([]string{b.Name}, b.Aliases...)
		for _, p := range phrases {
			p = normalizePhrase(p)
			if p != "" && strings.Contains(padded, " "+p+" ") {
				return r.Lookup(b.Default)
			}
		}
	}
	return Area{}, false
}

// Adjacent returns the n nearest other areas. Distances across boroughs are
// multiplied by the cross-borough penalty so same-borough neighbors sort first.
func (r *Registry) Adjacent(name string, n int) []Area {
	origin, ok := r.Lookup(name)
	if !ok || n <= 0 {
		return nil
	}

	type scored struct {
		area Area
		km   float64
	}
	candidates := make([]scored, 0, len(r.areas)-1)
	for _, a := range r.areas {
		if a.Name == origin.Name {
			continue
		}
		d := Distance(origin.Center, a.Center)
		if !strings.EqualFold(a.Borough, origin.Borough) {
			d *= r.crossPenalty
		}
		candidates = append(candidates, scored{area: a, km: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].km == candidates[j].km {
			return candidates[i].area.Name < candidates[j].area.Name
		}
		return candidates[i].km < candidates[j].km
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]Area, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, c.area)
	}
	return out
}

// Lookup finds an area by canonical name, case-insensitively.
func (r *Registry) Lookup(name string) (Area, bool) {
	idx, ok := r.byKey[normalizePhrase(name)]
	if !ok {
		return Area{}, false
	}
	return r.areas[idx], true
}

func (r *Registry) Areas() []Area {
	out := make([]Area, len(r.areas))
	copy(out, r.areas)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.areas))
	for _, a := range r.areas {
		names = append(names, a.Name)
	}
	return names
}

// Distance is the great-circle distance between two points in kilometers.
func Distance(a, b Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// normalizePhrase lowercases and reduces punctuation to single spaces.
func normalizePhrase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if r == '\'' || r == '’' {
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
