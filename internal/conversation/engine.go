package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"
	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/evergreen"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/nlu"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/session"
)

const (
	DefaultAdjacentHops = 3
	DefaultPicksPerTurn = nlu.DefaultPicks
	DefaultCity         = "New York"

	ApologyText = "Sorry, something went wrong on my end. Try again in a moment."
)

// Outcome says what kind of answer a turn produced.
type Outcome string

const (
	OutcomeShown     Outcome = "shown"
	OutcomeDetails   Outcome = "details"
	OutcomeAskArea   Outcome = "ask_area"
	OutcomeProposed  Outcome = "proposed"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeReply     Outcome = "reply"
	OutcomeApology   Outcome = "apology"
)

// EventSource is the read side of the event aggregator.
type EventSource interface {
	GetEvents(ctx context.Context, area string) ([]event.Event, error)
	Lookup(id string) (event.Event, bool)
}

type Options struct {
	AdjacentHops int
	PicksPerTurn int
	HistoryLimit int
	City         string
	Location     *time.Location
	Now          func() time.Time
}

// Deps are the engine's collaborators. Classifier may be nil, in which case
// anything the rules do not catch is treated as a request for events.
type Deps struct {
	Registry   *geo.Registry
	Events     EventSource
	Ranker     *ranking.Ranker
	Store      session.Store
	Classifier nlu.Classifier
	Renderer   nlu.Renderer
	Evergreen  *evergreen.Pool
	Observer   Observer
	Rules      []Rule
}

// Response is what the user is sent. It is always usable, even when
// HandleTurn also returns an error.
type Response struct {
	Text    string
	Intent  nlu.Intent
	Area    string
	Shown   []string
	Outcome Outcome
}

// Engine runs one conversational turn at a time per user. Callers serialize
// turns for the same user; the engine itself holds no per-user state.
type Engine struct {
	registry   *geo.Registry
	events     EventSource
	ranker     *ranking.Ranker
	store      session.Store
	classifier nlu.Classifier
	renderer   nlu.Renderer
	evergreen  *evergreen.Pool
	observer   Observer
	rules      []Rule
	opts       Options
}

func New(d Deps, opts Options) *Engine {
	if opts.AdjacentHops <= 0 {
		opts.AdjacentHops = DefaultAdjacentHops
	}
	if opts.PicksPerTurn <= 0 {
		opts.PicksPerTurn = DefaultPicksPerTurn
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = session.DefaultHistoryLimit
	}
	if opts.City == "" {
		opts.City = DefaultCity
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		registry:   d.Registry,
		events:     d.Events,
		ranker:     d.Ranker,
		store:      d.Store,
		classifier: d.Classifier,
		renderer:   d.Renderer,
		evergreen:  d.Evergreen,
		observer:   d.Observer,
		rules:      d.Rules,
		opts:       opts,
	}
	if e.ranker == nil {
		e.ranker = ranking.NewRanker(d.Registry, ranking.Options{})
	}
	if e.renderer == nil {
		e.renderer = nlu.NewTemplateRenderer(opts.PicksPerTurn, opts.Location)
	}
	if e.observer == nil {
		e.observer = Observers{}
	}
	if e.rules == nil {
		e.rules = DefaultRules()
	}
	return e
}

type turn struct {
	userID string
	text   string
	norm   string
	prev   *session.Frame
	now    time.Time
}

// carry keeps the previous frame but drops any pending proposal.
func (t *turn) carry() *session.Frame {
	next := t.prev.Clone()
	next.Pending = nil
	return next
}

type resolved struct {
	area         string
	areaSource   string
	filters      ranking.Filters
	filterSource string
	strict       bool
}

// HandleTurn answers one message. Any failure of the store, classifier,
// renderer or event source yields the apology text together with the error,
// and leaves the session as it was.
func (e *Engine) HandleTurn(ctx context.Context, userID, text string) (Response, error) {
	prev, found, err := e.store.Get(ctx, userID)
	if err != nil {
		return e.apologize(ctx, userID, "", owlErrors.Wrap(err, "load session"))
	}
	if !found || prev == nil {
		prev = &session.Frame{UserID: userID}
	}

	t := &turn{
		userID: userID,
		text:   strings.TrimSpace(text),
		norm:   normalize(text),
		prev:   prev,
		now:    e.opts.Now(),
	}

	m, err := e.classify(ctx, t)
	if err != nil {
		return e.apologize(ctx, userID, "", err)
	}
	e.observer.Observe(ctx, Decision{UserID: userID, Stage: StageClassify, Intent: m.Intent, Rule: m.Rule})

	resp, next, err := e.dispatch(ctx, t, m)
	if err != nil {
		return e.apologize(ctx, userID, m.Intent, err)
	}

	next.UserID = userID
	next.History = session.AppendTurns(prev.History, e.opts.HistoryLimit,
		session.Turn{Role: session.RoleUser, Text: t.text, At: t.now},
		session.Turn{Role: session.RoleAssistant, Text: resp.Text, At: t.now},
	)
	if err := e.store.Replace(ctx, userID, next); err != nil {
		return e.apologize(ctx, userID, m.Intent, owlErrors.Wrap(err, "save session"))
	}

	e.observer.Observe(ctx, Decision{
		UserID:  userID,
		Stage:   StageDispatch,
		Intent:  resp.Intent,
		Rule:    m.Rule,
		Area:    resp.Area,
		Outcome: resp.Outcome,
	})
	return resp, nil
}

func (e *Engine) apologize(ctx context.Context, userID string, intent nlu.Intent, err error) (Response, error) {
	e.observer.Observe(ctx, Decision{UserID: userID, Stage: StageDispatch, Intent: intent, Outcome: OutcomeApology, Err: err})
	return Response{Text: ApologyText, Intent: intent, Outcome: OutcomeApology}, err
}

func (e *Engine) classify(ctx context.Context, t *turn) (Match, error) {
	in := Input{Text: t.text, Norm: t.norm, Frame: t.prev, Registry: e.registry}
	for _, r := range e.rules {
		if m, ok := r.Match(in); ok {
			m.Rule = r.Name
			return m, nil
		}
	}

	if e.classifier == nil {
		return Match{Rule: "fallback", Intent: nlu.IntentShowEvents, Filters: ExtractFilters(t.norm)}, nil
	}

	c, err := e.classifier.Classify(ctx, nlu.ClassifyRequest{
		Text:    t.text,
		Summary: Summarize(t.prev),
		Areas:   e.registry.Names(),
	})
	if err != nil {
		return Match{}, err
	}

	m := Match{Rule: "classifier", Intent: c.Intent, Guess: c.AreaGuess, Filters: c.Filters, Reply: c.Reply}
	if m.Filters == nil {
		m.Filters = ExtractFilters(t.norm)
	}
	if m.Intent == nlu.IntentShowFreeOnly {
		var f ranking.Filters
		if m.Filters != nil {
			f = *m.Filters
		}
		f.FreeOnly = true
		m.Filters = &f
	}
	return m, nil
}

func (e *Engine) dispatch(ctx context.Context, t *turn, m Match) (Response, *session.Frame, error) {
	switch m.Intent {
	case nlu.IntentHelp:
		return e.reply(t, m.Intent, e.helpText()), t.carry(), nil
	case nlu.IntentEnd:
		text := m.Reply
		if text == "" {
			text = "Have a good night! Message me whenever you want more ideas."
		}
		return e.reply(t, m.Intent, text), t.carry(), nil
	case nlu.IntentShowDetails:
		return e.details(t, m)
	}

	if m.Intent == nlu.IntentNudgeAccept && (t.prev.Pending == nil || t.prev.Pending.Area == "") {
		m.Intent = nlu.IntentShowEvents
	}

	r := e.resolve(t, m)
	e.observer.Observe(ctx, Decision{
		UserID:       t.userID,
		Stage:        StageResolve,
		Intent:       m.Intent,
		Rule:         m.Rule,
		Area:         r.area,
		AreaSource:   r.areaSource,
		Filters:      r.filters,
		FilterSource: r.filterSource,
	})

	if r.area == "" {
		resp, next := e.askArea(t, m.Intent, r)
		return resp, next, nil
	}
	return e.present(ctx, t, m.Intent, r)
}

// resolve applies precedence: the current message beats the classifier's
// guess, which beats the session. Accepting a proposal takes both area and
// filters from that proposal.
func (e *Engine) resolve(t *turn, m Match) resolved {
	prev := t.prev
	if m.Intent == nlu.IntentNudgeAccept {
		return resolved{
			area:         prev.Pending.Area,
			areaSource:   "pending",
			filters:      prev.Pending.Filters,
			filterSource: "pending",
			strict:       true,
		}
	}

	r := resolved{strict: m.Strict}
	switch {
	case m.Area != "":
		r.area, r.areaSource = m.Area, "explicit"
	default:
		if a, ok := e.registry.Resolve(t.text, nil); ok {
			r.area, r.areaSource = a.Name, "explicit"
		} else if a, ok := e.validGuess(m.Guess); ok {
			r.area, r.areaSource = a.Name, "guess"
		} else if prev.Area != "" {
			r.area, r.areaSource = prev.Area, "session"
		}
	}

	switch {
	case m.Filters != nil:
		r.filters, r.filterSource = *m.Filters, "explicit"
	case prev.Pending != nil && prev.Pending.Area == "":
		r.filters, r.filterSource = prev.Pending.Filters, "pending"
		r.strict = r.strict || prev.Pending.Strict
	default:
		r.filters, r.filterSource = prev.Filters, "session"
	}
	return r
}

func (e *Engine) validGuess(guess string) (geo.Area, bool) {
	if strings.TrimSpace(guess) == "" {
		return geo.Area{}, false
	}
	if a, ok := e.registry.Lookup(guess); ok {
		return a, true
	}
	return e.registry.Resolve(guess, nil)
}

func (e *Engine) reply(t *turn, intent nlu.Intent, text string) Response {
	return Response{Text: text, Intent: intent, Area: t.prev.Area, Outcome: OutcomeReply}
}

func (e *Engine) helpText() string {
	return fmt.Sprintf("I find things to do around %s tonight. Try:\n"+
		"- a neighborhood, like \"East Village\"\n"+
		"- \"free\", or something like \"free comedy in Bushwick\"\n"+
		"- \"more\" for other options\n"+
		"- a number from my list for details", e.opts.City)
}

func (e *Engine) askArea(t *turn, intent nlu.Intent, r resolved) (Response, *session.Frame) {
	next := t.carry()
	if !r.filters.IsZero() {
		next.Pending = &session.Pending{Filters: r.filters, Strict: r.strict, Reason: "ask_area"}
	}
	return Response{
		Text:    "Which neighborhood should I look in? For example East Village or Williamsburg.",
		Intent:  intent,
		Outcome: OutcomeAskArea,
	}, next
}

func (e *Engine) details(t *turn, m Match) (Response, *session.Frame, error) {
	prev := t.prev
	id := m.PickID
	if id == "" && len(prev.Chosen) == 1 {
		id = prev.Chosen[0].ID
	}
	if id == "" {
		text := "Which one? Reply with its number from the list."
		if len(prev.Chosen) == 0 {
			text = "I haven't suggested anything yet. Tell me a neighborhood to get started."
		}
		return e.reply(t, m.Intent, text), t.carry(), nil
	}

	ev, ok := e.events.Lookup(id)
	if !ok {
		ev, ok = e.evergreen.Lookup(id)
	}
	if !ok {
		return e.reply(t, m.Intent, "That one has dropped off my list. Say \"more\" for fresh picks."), t.carry(), nil
	}
	return Response{
		Text:    nlu.FormatDetails(ev, e.opts.Location),
		Intent:  m.Intent,
		Area:    prev.Area,
		Shown:   []string{ev.ID},
		Outcome: OutcomeDetails,
	}, t.carry(), nil
}

// present shows events for the resolved area. A filtered request that finds
// nothing only looks for a nearby area with matches. Otherwise evergreen picks
// come before proposing the next area.
func (e *Engine) present(ctx context.Context, t *turn, intent nlu.Intent, r resolved) (Response, *session.Frame, error) {
	events, err := e.events.GetEvents(ctx, r.area)
	if err != nil {
		return Response{}, nil, err
	}
	visited := appendUnique(t.prev.Visited, r.area)
	more := intent == nlu.IntentShowMore

	candidates := ranking.ApplyFilters(events, r.filters, r.strict)
	if more {
		candidates = unoffered(candidates, t.prev)
	}
	if len(candidates) > 0 {
		return e.show(ctx, t, intent, r, candidates, visited)
	}

	steps := []func() (Response, *session.Frame, bool, error){
		func() (Response, *session.Frame, bool, error) { return e.evergreenPicks(ctx, t, intent, r, visited) },
		func() (Response, *session.Frame, bool, error) { return e.propose(ctx, t, intent, r, visited) },
	}
	if !more && !r.filters.IsZero() {
		steps = steps[1:]
	}
	for _, step := range steps {
		resp, next, ok, err := step()
		if err != nil {
			return Response{}, nil, err
		}
		if ok {
			return resp, next, nil
		}
	}
	return e.exhausted(t, intent, r, visited)
}

func (e *Engine) show(ctx context.Context, t *turn, intent nlu.Intent, r resolved, candidates []event.Event, visited []string) (Response, *session.Frame, error) {
	pool := e.ranker.BuildTaggedPool(candidates, r.filters)
	rendered, err := e.renderer.Render(ctx, nlu.RenderRequest{
		Message:    t.text,
		Candidates: pool,
		Area:       r.area,
		Filters:    r.filters,
		Limit:      e.opts.PicksPerTurn,
	})
	if err != nil {
		return Response{}, nil, err
	}

	byID := make(map[string]event.Event, len(pool))
	for _, c := range pool {
		byID[c.Event.ID] = c.Event
	}
	chosen := make([]session.Pick, 0, len(rendered.Picks))
	ids := make([]string, 0, len(rendered.Picks))
	for _, p := range rendered.Picks {
		ev, ok := byID[p.ID]
		if !ok {
			continue
		}
		chosen = append(chosen, session.Pick{ID: ev.ID, Name: ev.Name})
		ids = append(ids, ev.ID)
	}

	next := &session.Frame{
		Area:    r.area,
		Offered: appendUnique(t.prev.Offered, ids...),
		Chosen:  chosen,
		Filters: r.filters,
		Visited: visited,
	}
	return Response{Text: rendered.Text, Intent: intent, Area: r.area, Shown: ids, Outcome: OutcomeShown}, next, nil
}

func (e *Engine) evergreenPicks(ctx context.Context, t *turn, intent nlu.Intent, r resolved, visited []string) (Response, *session.Frame, bool, error) {
	picks := unoffered(ranking.ApplyFilters(e.evergreen.Picks(r.area), r.filters, r.strict), t.prev)
	if len(picks) == 0 {
		return Response{}, nil, false, nil
	}
	resp, next, err := e.show(ctx, t, intent, r, picks, visited)
	return resp, next, err == nil, err
}

// propose offers the first nearby area not yet visited. With filters set the
// area must have events that satisfy them.
func (e *Engine) propose(ctx context.Context, t *turn, intent nlu.Intent, r resolved, visited []string) (Response, *session.Frame, bool, error) {
	filtered := !r.filters.IsZero()
	for _, a := range e.registry.Adjacent(r.area, e.opts.AdjacentHops) {
		if containsFold(visited, a.Name) {
			continue
		}
		if filtered {
			evs, err := e.events.GetEvents(ctx, a.Name)
			if err != nil {
				return Response{}, nil, false, err
			}
			if len(ranking.ApplyFilters(evs, r.filters, true)) == 0 {
				continue
			}
		}

		var text, reason string
		if filtered {
			reason = "filter_miss"
			text = fmt.Sprintf("Nothing %s in %s right now, but %s has some. Want me to show you?", r.filters.Describe(), r.area, a.Name)
		} else {
			reason = "exhausted"
			text = fmt.Sprintf("That's everything I have around %s. Want to try %s instead?", r.area, a.Name)
		}

		next := t.carry()
		next.Area = r.area
		next.Filters = r.filters
		next.Pending = &session.Pending{Area: a.Name, Filters: r.filters, Reason: reason}
		next.Visited = appendUnique(visited, a.Name)
		return Response{Text: text, Intent: intent, Area: r.area, Outcome: OutcomeProposed}, next, true, nil
	}
	return Response{}, nil, false, nil
}

func (e *Engine) exhausted(t *turn, intent nlu.Intent, r resolved, visited []string) (Response, *session.Frame, error) {
	text := fmt.Sprintf("That's all I've got around %s tonight.", r.area)
	if !r.filters.IsZero() {
		text = fmt.Sprintf("Nothing %s near %s right now. Try another neighborhood or drop the filter.", r.filters.Describe(), r.area)
	}
	next := t.carry()
	next.Area = r.area
	next.Filters = r.filters
	next.Visited = visited
	return Response{Text: text, Intent: intent, Area: r.area, Outcome: OutcomeExhausted}, next, nil
}

// Summarize renders the frame for the classifier prompt.
func Summarize(f *session.Frame) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	if f.Area != "" {
		fmt.Fprintf(&b, "Current area: %s.\n", f.Area)
	}
	if !f.Filters.IsZero() {
		fmt.Fprintf(&b, "Active filters: %s.\n", f.Filters.Describe())
	}
	if f.Pending != nil && f.Pending.Area != "" {
		fmt.Fprintf(&b, "Waiting for yes/no on a suggestion to try %s.\n", f.Pending.Area)
	}
	if len(f.Chosen) > 0 {
		names := make([]string, len(f.Chosen))
		for i, p := range f.Chosen {
			names[i] = fmt.Sprintf("%d. %s", i+1, p.Name)
		}
		fmt.Fprintf(&b, "Last picks: %s.\n", strings.Join(names, "; "))
	}
	for _, h := range f.History {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Text)
	}
	return b.String()
}

func unoffered(events []event.Event, f *session.Frame) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if !f.HasOffered(e.ID) {
			out = append(out, e)
		}
	}
	return out
}

func appendUnique(list []string, items ...string) []string {
	out := make([]string, len(list), len(list)+len(items))
	copy(out, list)
	for _, it := range items {
		if !containsFold(out, it) {
			out = append(out, it)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
