package nlu

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/event"
)

// FormatWhen renders a moment for chat, or "" when unknown.
func FormatWhen(m event.Moment, loc *time.Location) string {
	if !m.Known() {
		return ""
	}
	if m.DateOnly {
		return m.At.Format("Mon Jan 2")
	}
	if loc != nil {
		return m.At.In(loc).Format("Mon 3:04 PM")
	}
	return m.At.Format("Mon 3:04 PM")
}

// FormatLine is the one-line listing used in numbered replies.
func FormatLine(e event.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.VenueName != "" {
		b.WriteString(" @ ")
		b.WriteString(e.VenueName)
	}
	if when := FormatWhen(e.Start, loc); when != "" {
		b.WriteString(", ")
		b.WriteString(when)
	}
	switch {
	case e.IsFree:
		b.WriteString(" (free)")
	case e.PriceText != "":
		fmt.Fprintf(&b, " (%s)", e.PriceText)
	}
	return b.String()
}

// FormatDetails is the multi-line description shown for a single event.
func FormatDetails(e event.Event, loc *time.Location) string {
	lines := []string{e.Name}
	if e.VenueName != "" || e.Address != "" {
		lines = append(lines, "Where: "+strings.TrimSpace(strings.Join(nonEmpty(e.VenueName, e.Address), ", ")))
	}
	if when := FormatWhen(e.Start, loc); when != "" {
		if end := FormatWhen(e.End, loc); end != "" {
			when += " until " + end
		}
		lines = append(lines, "When: "+when)
	}
	switch {
	case e.IsFree:
		lines = append(lines, "Price: free")
	case e.PriceText != "":
		lines = append(lines, "Price: "+e.PriceText)
	}
	if e.Area != "" {
		lines = append(lines, "Area: "+e.Area)
	}
	if link := e.FirstLink(); link != "" {
		lines = append(lines, link)
	}
	return strings.Join(lines, "\n")
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
