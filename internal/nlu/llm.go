package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/model"
	"github.com/harunnryd/nightowl/internal/model/contract"
	"github.com/harunnryd/nightowl/internal/ranking"
)

const (
	DefaultTimeout = 8 * time.Second

	classifierMaxTokens = 300
	rendererMaxTokens   = 700
)

const classifierPrompt = `You route messages for a nightlife recommendation chat in %s.
Pick exactly one intent:
- show_events: the user wants things to do (optionally in an area or of a kind)
- show_more: the user wants more options than already shown
- show_free_only: the user wants free things
- show_details: the user asks about one specific event already shown
- help: the user asks what you can do
- end: greetings, thanks, goodbyes, or anything unrelated

Known areas: %s

Conversation so far:
%s

Reply with one JSON object:
{"intent": "...", "area": "<known area or empty>", "free_only": false, "category": "<one of %s or empty>", "time_of_day": "<afternoon|evening|late or empty>", "confidence": 0.0, "reply": "<short reply, only for help or end>"}`

type classifierReply struct {
	Intent     string  `json:"intent"`
	Area       string  `json:"area"`
	FreeOnly   bool    `json:"free_only"`
	Category   string  `json:"category"`
	TimeOfDay  string  `json:"time_of_day"`
	Confidence float64 `json:"confidence"`
	Reply      string  `json:"reply"`
}

// LLMClassifier asks a model to read the message.
type LLMClassifier struct {
	router  model.ModelRouter
	model   string
	city    string
	timeout time.Duration
}

func NewLLMClassifier(router model.ModelRouter, modelName, city string, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LLMClassifier{router: router, model: modelName, city: city, timeout: timeout}
}

func (c *LLMClassifier) Classify(ctx context.Context, req ClassifyRequest) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	summary := req.Summary
	if summary == "" {
		summary = "(new conversation)"
	}
	categories := make([]string, 0, 8)
	for _, cat := range event.Categories() {
		categories = append(categories, string(cat))
	}

	resp, err := c.router.Route(ctx, c.model, contract.CompletionRequest{
		System:    fmt.Sprintf(classifierPrompt, c.city, strings.Join(req.Areas, ", "), summary, strings.Join(categories, ", ")),
		Messages:  []contract.Message{{Role: contract.RoleUser, Content: req.Text}},
		MaxTokens: classifierMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return Classification{}, owlErrors.WrapWithCategory(err, "classify message", owlErrors.ErrClassifier)
	}

	var reply classifierReply
	if err := decodeModelJSON(resp.Content, &reply); err != nil {
		return Classification{}, owlErrors.WrapWithCategory(err, "classify message", owlErrors.ErrClassifier)
	}
	intent, ok := ParseIntent(reply.Intent)
	if !ok {
		return Classification{}, owlErrors.WrapWithCategory(
			owlErrors.InvalidModelOutput(fmt.Sprintf("unknown intent %q", reply.Intent)),
			"classify message", owlErrors.ErrClassifier)
	}

	out := Classification{
		Intent:     intent,
		AreaGuess:  strings.TrimSpace(reply.Area),
		Confidence: reply.Confidence,
		Reply:      strings.TrimSpace(reply.Reply),
	}
	f := ranking.Filters{FreeOnly: reply.FreeOnly}
	if cat, ok := event.ParseCategory(reply.Category); ok {
		f.Category = cat
	}
	if tod, ok := ranking.ParseTimeOfDay(reply.TimeOfDay); ok {
		f.TimeOfDay = tod
	}
	if !f.IsZero() {
		out.Filters = &f
	}
	return out, nil
}

const rendererPrompt = `You write short, friendly replies for a nightlife recommendation chat.
Recommend up to %d events from the candidates for the area %s. Prefer candidates marked "match": true; only use others when there are not enough matches, and say so.
Never invent events. Refer to events only by the given ids.

Active filters: %s

Candidates (JSON):
%s

Reply with one JSON object:
{"text": "<the message, numbered list, under 900 characters>", "picks": [{"id": "...", "reason": "..."}], "area": "%s"}`

type renderCandidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Venue string `json:"venue,omitempty"`
	When  string `json:"when,omitempty"`
	Free  bool   `json:"free"`
	Price string `json:"price,omitempty"`
	Kind  string `json:"category"`
	Match bool   `json:"match"`
}

// LLMRenderer writes replies with a model, falling back to another renderer
// when the model's reply cannot be used.
type LLMRenderer struct {
	router   model.ModelRouter
	model    string
	timeout  time.Duration
	limit    int
	loc      *time.Location
	fallback Renderer
}

func NewLLMRenderer(router model.ModelRouter, modelName string, timeout time.Duration, limit int, loc *time.Location, fallback Renderer) *LLMRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if limit <= 0 {
		limit = DefaultPicks
	}
	if fallback == nil {
		fallback = NewTemplateRenderer(limit, loc)
	}
	return &LLMRenderer{router: router, model: modelName, timeout: timeout, limit: limit, loc: loc, fallback: fallback}
}

func (r *LLMRenderer) Render(ctx context.Context, req RenderRequest) (Rendered, error) {
	if len(req.Candidates) == 0 {
		return r.fallback.Render(ctx, req)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = r.limit
	}

	cands := make([]renderCandidate, 0, len(req.Candidates))
	known := make(map[string]struct{}, len(req.Candidates))
	for _, t := range req.Candidates {
		e := t.Event
		known[e.ID] = struct{}{}
		cands = append(cands, renderCandidate{
			ID: e.ID, Name: e.Name, Venue: e.VenueName, When: FormatWhen(e.Start, r.loc),
			Free: e.IsFree, Price: e.PriceText, Kind: string(e.Category), Match: t.Match,
		})
	}
	payload, err := json.Marshal(cands)
	if err != nil {
		return Rendered{}, owlErrors.WrapWithCategory(err, "encode candidates", owlErrors.ErrRenderer)
	}
	filters := req.Filters.Describe()
	if filters == "" {
		filters = "none"
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, err := r.router.Route(ctx, r.model, contract.CompletionRequest{
		System:    fmt.Sprintf(rendererPrompt, limit, req.Area, filters, payload, req.Area),
		Messages:  []contract.Message{{Role: contract.RoleUser, Content: req.Message}},
		MaxTokens: rendererMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return Rendered{}, owlErrors.WrapWithCategory(err, "render reply", owlErrors.ErrRenderer)
	}

	var out Rendered
	if err := decodeModelJSON(resp.Content, &out); err != nil {
		slog.Warn("Renderer reply unusable, using template", "error", err)
		return r.fallback.Render(ctx, req)
	}

	picks := make([]RenderedPick, 0, len(out.Picks))
	for _, p := range out.Picks {
		if _, ok := known[p.ID]; ok && len(picks) < limit {
			picks = append(picks, p)
		}
	}
	if strings.TrimSpace(out.Text) == "" || len(picks) == 0 {
		slog.Warn("Renderer reply had no usable picks, using template", "picks", len(out.Picks))
		return r.fallback.Render(ctx, req)
	}
	out.Picks = picks
	if out.AreaUsed == "" {
		out.AreaUsed = req.Area
	}
	return out, nil
}
