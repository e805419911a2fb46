package evergreen

import (
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/nightowl/internal/event"

	"gopkg.in/yaml.v3"
)

const (
	SourceName = "evergreen"
	Weight     = 0.1
)

// Entry is one always-available recommendation: a bar, venue or spot that
// is worth suggesting on any night.
type Entry struct {
	Area     string `yaml:"area"`
	Name     string `yaml:"name"`
	Venue    string `yaml:"venue"`
	Address  string `yaml:"address"`
	Category string `yaml:"category"`
	Price    string `yaml:"price"`
	URL      string `yaml:"url"`
}

type file struct {
	Picks []Entry `yaml:"picks"`
}

// Pool holds the evergreen picks, keyed by canonical area name.
type Pool struct {
	byArea map[string][]event.Event
}

// New normalizes entries into events. Entries whose area does not resolve
// are dropped.
func New(entries []Entry, n *event.Normalizer) *Pool {
	p := &Pool{byArea: make(map[string][]event.Event)}
	for _, e := range entries {
		ev, err := n.Normalize(event.RawRecord{
			Source:   SourceName,
			Name:     e.Name,
			Venue:    e.Venue,
			Address:  e.Address,
			Locality: e.Area,
			Category: e.Category,
			Price:    e.Price,
			URL:      e.URL,
		}, Weight)
		if err != nil || ev.Area == "" {
			continue
		}
		key := strings.ToLower(ev.Area)
		p.byArea[key] = append(p.byArea[key], ev)
	}
	return p
}

// Load reads a YAML pool file. An empty path yields the built-in pool.
func Load(path string, n *event.Normalizer) (*Pool, error) {
	if path == "" {
		return New(defaultEntries, n), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evergreen file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse evergreen file: %w", err)
	}
	return New(f.Picks, n), nil
}

// Picks returns the area's evergreen events in file order.
func (p *Pool) Picks(area string) []event.Event {
	if p == nil {
		return nil
	}
	src := p.byArea[strings.ToLower(area)]
	out := make([]event.Event, len(src))
	copy(out, src)
	return out
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, evs := range p.byArea {
		n += len(evs)
	}
	return n
}

// Lookup finds an evergreen pick by event id.
func (p *Pool) Lookup(id string) (event.Event, bool) {
	if p == nil {
		return event.Event{}, false
	}
	for _, evs := range p.byArea {
		for _, e := range evs {
			if e.ID == id {
				return e, true
			}
		}
	}
	return event.Event{}, false
}
