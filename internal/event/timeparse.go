package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Mon, Jan 2, 2006 3:04 PM",
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseMoment reads the time shapes listing feeds commonly use. Strings without
// an offset are interpreted in loc; date-only strings yield a DateOnly moment.
// Every returned instant is expressed in loc, so clock hours are city hours.
func ParseMoment(s string, loc *time.Location) (Moment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Moment{}, nil
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Moment{At: t.In(loc)}, nil
		}
	}

	if len(s) >= 10 && isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if len(s) >= 13 {
				return Moment{At: time.UnixMilli(n).In(loc)}, nil
			}
			return Moment{At: time.Unix(n, 0).In(loc)}, nil
		}
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Moment{At: t}, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Moment{At: t, DateOnly: true}, nil
		}
	}
	return Moment{}, fmt.Errorf("unsupported time: %s", s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
