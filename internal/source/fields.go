package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harunnryd/nightowl/internal/event"
)

// defaultFields lists candidate keys per canonical field. Dotted keys reach
// into nested objects ("venue.name").
var defaultFields = map[string][]string{
	"name":       {"name", "title", "event_name"},
	"venue":      {"venue.name", "venue_name", "venue", "location_name"},
	"address":    {"venue.address", "address", "street_address", "location"},
	"locality":   {"neighborhood", "venue.neighborhood", "area", "locality"},
	"category":   {"category", "type", "genre"},
	"tags":       {"tags", "labels"},
	"start":      {"start", "start_time", "starts_at", "date"},
	"end":        {"end", "end_time", "ends_at"},
	"price":      {"price", "cost", "price_text"},
	"free":       {"is_free", "free"},
	"url":        {"url", "link", "href"},
	"lat":        {"lat", "latitude", "venue.lat"},
	"lng":        {"lng", "lon", "longitude", "venue.lng"},
	"confidence": {"confidence"},
}

func mergeFields(overrides map[string][]string) map[string][]string {
	out := make(map[string][]string, len(defaultFields))
	for k, v := range defaultFields {
		out[k] = v
	}
	for k, v := range overrides {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

func recordFromMap(m map[string]any, fields map[string][]string, sourceName string) event.RawRecord {
	rec := event.RawRecord{
		Source:   sourceName,
		Name:     pickStr(m, fields["name"]...),
		Venue:    pickStr(m, fields["venue"]...),
		Address:  pickStr(m, fields["address"]...),
		Locality: pickStr(m, fields["locality"]...),
		Category: pickStr(m, fields["category"]...),
		Tags:     pickStrings(m, fields["tags"]...),
		Start:    pickStr(m, fields["start"]...),
		End:      pickStr(m, fields["end"]...),
		Price:    pickStr(m, fields["price"]...),
		URL:      pickStr(m, fields["url"]...),
	}
	rec.Lat = pickFloat(m, fields["lat"]...)
	rec.Lng = pickFloat(m, fields["lng"]...)
	rec.Confidence = pickFloat(m, fields["confidence"]...)
	if v, ok := lookup(m, fields["free"]...); ok {
		if b, ok := v.(bool); ok {
			rec.IsFree = &b
		}
	}
	return rec
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		var cur any = m
		found := true
		for _, part := range strings.Split(k, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			if cur, ok = obj[part]; !ok {
				found = false
				break
			}
		}
		if found && cur != nil {
			return cur, true
		}
	}
	return nil, false
}

// pickStr returns the first non-empty value among keys, stringifying numbers.
func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := lookup(m, k)
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func pickStrings(m map[string]any, keys ...string) []string {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	}
	return nil
}

func pickFloat(m map[string]any, keys ...string) *float64 {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

// itemsAt walks a dotted path to the array of listing objects.
func itemsAt(doc any, path string) ([]map[string]any, error) {
	cur := doc
	if p := strings.TrimSpace(path); p != "" {
		for _, part := range strings.Split(p, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("items path %q: %q is not an object", path, part)
			}
			cur = obj[part]
		}
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("items path %q does not hold an array", path)
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}
