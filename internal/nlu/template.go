package nlu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/ranking"
)

const DefaultPicks = 3

// TemplateRenderer is the deterministic renderer: it lists the top picks,
// matches first, in pool order.
type TemplateRenderer struct {
	Limit    int
	Location *time.Location
}

func NewTemplateRenderer(limit int, loc *time.Location) *TemplateRenderer {
	if limit <= 0 {
		limit = DefaultPicks
	}
	return &TemplateRenderer{Limit: limit, Location: loc}
}

func (r *TemplateRenderer) Render(ctx context.Context, req RenderRequest) (Rendered, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = r.Limit
	}
	picks := SelectPicks(req.Candidates, limit)

	out := Rendered{AreaUsed: req.Area, Picks: make([]RenderedPick, 0, len(picks))}
	if len(picks) == 0 {
		out.Text = fmt.Sprintf("I couldn't find anything in %s right now.", req.Area)
		return out, nil
	}

	var b strings.Builder
	b.WriteString(heading(req.Area, req.Filters, picks))
	for i, t := range picks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, FormatLine(t.Event, r.Location))
		reason := "nearby"
		if t.Match && !req.Filters.IsZero() {
			reason = "matches " + req.Filters.Describe()
		}
		out.Picks = append(out.Picks, RenderedPick{ID: t.Event.ID, Reason: reason})
	}
	b.WriteString("\n\nReply with a number for details, or say \"more\".")
	out.Text = b.String()
	return out, nil
}

func heading(area string, f ranking.Filters, picks []ranking.Tagged) string {
	if f.IsZero() {
		return fmt.Sprintf("Here's what's on around %s:", area)
	}
	for _, t := range picks {
		if t.Match {
			return fmt.Sprintf("Here's what's on around %s (%s):", area, f.Describe())
		}
	}
	return fmt.Sprintf("No %s picks around %s, but these are close by:", f.Describe(), area)
}

// SelectPicks takes up to n candidates, matching ones first, each group in
// pool order.
func SelectPicks(candidates []ranking.Tagged, n int) []ranking.Tagged {
	out := make([]ranking.Tagged, 0, n)
	for _, t := range candidates {
		if len(out) == n {
			return out
		}
		if t.Match {
			out = append(out, t)
		}
	}
	for _, t := range candidates {
		if len(out) == n {
			break
		}
		if !t.Match {
			out = append(out, t)
		}
	}
	return out
}
