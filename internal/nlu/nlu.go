package nlu

import (
	"context"
	"strings"

	"github.com/harunnryd/nightowl/internal/ranking"
)

type Intent string

const (
	IntentShowEvents   Intent = "show_events"
	IntentShowMore     Intent = "show_more"
	IntentShowFreeOnly Intent = "show_free_only"
	IntentShowDetails  Intent = "show_details"
	IntentNudgeAccept  Intent = "nudge_accept"
	IntentHelp         Intent = "help"
	IntentEnd          Intent = "end"
)

var allIntents = []Intent{
	IntentShowEvents, IntentShowMore, IntentShowFreeOnly, IntentShowDetails,
	IntentNudgeAccept, IntentHelp, IntentEnd,
}

func ParseIntent(s string) (Intent, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	for _, i := range allIntents {
		if string(i) == key {
			return i, true
		}
	}
	return "", false
}

// NeedsArea reports whether the intent cannot be answered without an area.
func (i Intent) NeedsArea() bool {
	switch i {
	case IntentShowEvents, IntentShowMore, IntentShowFreeOnly:
		return true
	}
	return false
}

type ClassifyRequest struct {
	Text    string
	Summary string
	Areas   []string
}

// Classification is the classifier's reading of one message. Filters is nil
// when the message states none.
type Classification struct {
	Intent     Intent           `json:"intent"`
	AreaGuess  string           `json:"area_guess,omitempty"`
	Filters    *ranking.Filters `json:"filters,omitempty"`
	Confidence float64          `json:"confidence"`
	Reply      string           `json:"reply,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
}

type RenderRequest struct {
	Message    string
	Candidates []ranking.Tagged
	Area       string
	Filters    ranking.Filters
	Limit      int
}

type RenderedPick struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

type Rendered struct {
	Text     string         `json:"text"`
	Picks    []RenderedPick `json:"picks"`
	AreaUsed string         `json:"area"`
}

type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (Rendered, error)
}
