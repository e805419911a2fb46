package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/evergreen"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/nlu"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	edt     = time.FixedZone("EDT", -4*3600)
	testNow = time.Date(2026, 10, 16, 20, 0, 0, 0, edt)
)

type fakeEvents struct {
	mu     sync.Mutex
	byArea map[string][]event.Event
	err    error
}

func (f *fakeEvents) GetEvents(ctx context.Context, area string) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	src := f.byArea[area]
	out := make([]event.Event, len(src))
	copy(out, src)
	return out, nil
}

func (f *fakeEvents) Lookup(id string) (event.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, evs := range f.byArea {
		for _, e := range evs {
			if e.ID == id {
				return e, true
			}
		}
	}
	return event.Event{}, false
}

func (f *fakeEvents) set(area string, evs ...event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byArea[area] = evs
}

func (f *fakeEvents) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func ev(id, name, area string, cat event.Category, free bool) event.Event {
	e := event.Event{
		ID:           id,
		Name:         name,
		VenueName:    name + " Venue",
		Area:         area,
		Category:     cat,
		IsFree:       free,
		Start:        event.Moment{At: testNow.Add(time.Hour)},
		Source:       "test",
		SourceWeight: 0.8,
	}
	if !free {
		e.PriceText = "$20"
	}
	return e
}

type countingStore struct {
	session.Store
	replaces   int
	getErr     error
	replaceErr error
}

func (s *countingStore) Get(ctx context.Context, userID string) (*session.Frame, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.Store.Get(ctx, userID)
}

func (s *countingStore) Replace(ctx context.Context, userID string, f *session.Frame) error {
	s.replaces++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	return s.Store.Replace(ctx, userID, f)
}

type stubClassifier struct {
	result nlu.Classification
	err    error
	calls  int
	last   nlu.ClassifyRequest
}

func (c *stubClassifier) Classify(ctx context.Context, req nlu.ClassifyRequest) (nlu.Classification, error) {
	c.calls++
	c.last = req
	return c.result, c.err
}

type failingRenderer struct{}

func (failingRenderer) Render(ctx context.Context, req nlu.RenderRequest) (nlu.Rendered, error) {
	return nlu.Rendered{}, errors.New("renderer down")
}

type recorder struct {
	mu        sync.Mutex
	decisions []Decision
}

func (r *recorder) Observe(ctx context.Context, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *recorder) last(stage Stage) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.decisions) - 1; i >= 0; i-- {
		if r.decisions[i].Stage == stage {
			return r.decisions[i]
		}
	}
	return Decision{}
}

type harness struct {
	engine *Engine
	events *fakeEvents
	store  *countingStore
	rec    *recorder
}

type harnessOption func(*Deps)

func withClassifier(c nlu.Classifier) harnessOption { return func(d *Deps) { d.Classifier = c } }
func withEvergreen(p *evergreen.Pool) harnessOption { return func(d *Deps) { d.Evergreen = p } }
func withRenderer(r nlu.Renderer) harnessOption     { return func(d *Deps) { d.Renderer = r } }

func newHarness(opts ...harnessOption) *harness {
	now := func() time.Time { return testNow }
	h := &harness{
		events: &fakeEvents{byArea: map[string][]event.Event{}},
		store:  &countingStore{Store: session.NewMemoryStore(session.Options{Now: now})},
		rec:    &recorder{},
	}
	deps := Deps{
		Registry: geo.Default(),
		Events:   h.events,
		Store:    h.store,
		Observer: h.rec,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.engine = New(deps, Options{Location: edt, Now: now})
	return h
}

func (h *harness) say(t *testing.T, text string) Response {
	t.Helper()
	resp, err := h.engine.HandleTurn(context.Background(), "u1", text)
	require.NoError(t, err)
	return resp
}

func (h *harness) frame(t *testing.T) *session.Frame {
	t.Helper()
	f, ok, err := h.store.Store.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	return f
}

func eastVillage() []event.Event {
	return []event.Event{
		ev("ev-1", "Punk Show", "East Village", event.CategoryLiveMusic, false),
		ev("ev-2", "Poetry Slam", "East Village", event.CategoryCommunity, true),
		ev("ev-3", "Late Comedy", "East Village", event.CategoryComedy, false),
		ev("ev-4", "Gallery Night", "East Village", event.CategoryArt, true),
	}
}

func TestHandleTurn_AreaThenFree(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()...)

	resp := h.say(t, "East Village")
	assert.Equal(t, OutcomeShown, resp.Outcome)
	assert.Equal(t, nlu.IntentShowEvents, resp.Intent)
	assert.Equal(t, "East Village", resp.Area)
	assert.Equal(t, []string{"ev-1", "ev-2", "ev-3"}, resp.Shown)
	assert.Contains(t, resp.Text, "Here's what's on around East Village:")
	assert.Contains(t, resp.Text, "1. Punk Show")

	f := h.frame(t)
	assert.Equal(t, "East Village", f.Area)
	assert.Equal(t, []string{"East Village"}, f.Visited)
	assert.Len(t, f.Chosen, 3)
	assert.True(t, f.Filters.IsZero())

	resp = h.say(t, "free")
	assert.Equal(t, OutcomeShown, resp.Outcome)
	assert.Equal(t, nlu.IntentShowFreeOnly, resp.Intent)
	assert.Equal(t, []string{"ev-2", "ev-4"}, resp.Shown)
	assert.Contains(t, resp.Text, "(free)")
	assert.NotContains(t, resp.Text, "Punk Show")

	f = h.frame(t)
	assert.Equal(t, ranking.Filters{FreeOnly: true}, f.Filters)
	assert.Equal(t, []session.Pick{{ID: "ev-2", Name: "Poetry Slam"}, {ID: "ev-4", Name: "Gallery Night"}}, f.Chosen)
	assert.Equal(t, []string{"ev-1", "ev-2", "ev-3", "ev-4"}, f.Offered)
	assert.Nil(t, f.Pending)
	require.Len(t, f.History, 4)
	assert.Equal(t, session.RoleUser, f.History[2].Role)
	assert.Equal(t, "free", f.History[2].Text)
	assert.Equal(t, 2, h.store.replaces, "one write per turn")
}

func TestHandleTurn_DetailsByNumber(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()...)
	h.say(t, "East Village")

	resp := h.say(t, "2")
	assert.Equal(t, OutcomeDetails, resp.Outcome)
	assert.Equal(t, nlu.IntentShowDetails, resp.Intent)
	assert.Contains(t, resp.Text, "Poetry Slam")
	assert.Contains(t, resp.Text, "Price: free")
	assert.Contains(t, resp.Text, "Area: East Village")
	assert.Equal(t, []string{"ev-2"}, resp.Shown)

	assert.Len(t, h.frame(t).Chosen, 3, "details keep the list")

	resp = h.say(t, "punk show")
	assert.Equal(t, OutcomeDetails, resp.Outcome)
	assert.Contains(t, resp.Text, "Price: $20")
}

func TestHandleTurn_MoreExhaustsThenProposesUnvisitedAreas(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()...)

	h.say(t, "East Village")
	resp := h.say(t, "more")
	assert.Equal(t, []string{"ev-4"}, resp.Shown)

	resp = h.say(t, "more")
	assert.Equal(t, OutcomeProposed, resp.Outcome)
	assert.Contains(t, resp.Text, "Lower East Side")
	f := h.frame(t)
	require.NotNil(t, f.Pending)
	assert.Equal(t, "Lower East Side", f.Pending.Area)
	assert.Equal(t, []string{"East Village", "Lower East Side"}, f.Visited)

	resp = h.say(t, "no")
	assert.Equal(t, OutcomeReply, resp.Outcome)
	assert.Nil(t, h.frame(t).Pending)

	resp = h.say(t, "more")
	assert.Equal(t, OutcomeProposed, resp.Outcome)
	assert.Equal(t, "SoHo", h.frame(t).Pending.Area, "declined areas are not proposed again")

	h.say(t, "nope")
	h.say(t, "more")
	assert.Equal(t, "West Village", h.frame(t).Pending.Area)

	h.say(t, "no thanks")
	resp = h.say(t, "more")
	assert.Equal(t, OutcomeExhausted, resp.Outcome)
	assert.Equal(t, "That's all I've got around East Village tonight.", resp.Text)
	assert.Nil(t, h.frame(t).Pending)
}

func TestHandleTurn_NudgeChainSkipsVisitedAreas(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", ev("ev-paid", "Paid Comedy", "East Village", event.CategoryComedy, false))
	h.events.set("Lower East Side", ev("les-1", "LES Free Comedy", "Lower East Side", event.CategoryComedy, true))
	h.events.set("SoHo", ev("soho-1", "SoHo Free Comedy", "SoHo", event.CategoryComedy, true))

	resp := h.say(t, "free comedy in east village")
	assert.Equal(t, OutcomeProposed, resp.Outcome)
	assert.Equal(t, "Nothing free comedy in East Village right now, but Lower East Side has some. Want me to show you?", resp.Text)
	f := h.frame(t)
	require.NotNil(t, f.Pending)
	assert.Equal(t, "Lower East Side", f.Pending.Area)
	assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryComedy}, f.Pending.Filters)

	// The proposed area dries up and a match appears back in the area already seen.
	h.events.set("Lower East Side")
	h.events.set("East Village", ev("ev-free", "EV Free Comedy", "East Village", event.CategoryComedy, true))

	resp = h.say(t, "yes")
	assert.Equal(t, nlu.IntentNudgeAccept, resp.Intent)
	assert.Equal(t, OutcomeProposed, resp.Outcome)
	f = h.frame(t)
	assert.Equal(t, "SoHo", f.Pending.Area)
	assert.Equal(t, []string{"East Village", "Lower East Side", "SoHo"}, f.Visited)

	resp = h.say(t, "sure")
	assert.Equal(t, OutcomeShown, resp.Outcome)
	assert.Equal(t, "SoHo", resp.Area)
	assert.Equal(t, []string{"soho-1"}, resp.Shown)
	f = h.frame(t)
	assert.Nil(t, f.Pending)
	assert.Equal(t, "SoHo", f.Area)
	assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryComedy}, f.Filters)
}

func TestHandleTurn_FilteredMissSkipsEvergreen(t *testing.T) {
	pool, err := evergreen.Load("", event.NewNormalizer(geo.Default(), edt))
	require.NoError(t, err)
	h := newHarness(withEvergreen(pool))

	resp := h.say(t, "free stuff in east village")
	assert.Equal(t, OutcomeExhausted, resp.Outcome)
	assert.Equal(t, "East Village", resp.Area)
	assert.Empty(t, resp.Shown)
	assert.Equal(t, "Nothing free near East Village right now. Try another neighborhood or drop the filter.", resp.Text)

	// Asking for more walks the exhaustion chain, which does include evergreen picks.
	resp = h.say(t, "more")
	assert.Equal(t, OutcomeShown, resp.Outcome)
	require.Len(t, resp.Shown, 1)
	assert.Contains(t, resp.Text, "Mona's")
	assert.Contains(t, resp.Text, "(free)")
}

func TestHandleTurn_EmptyAreaShowsEvergreenPicks(t *testing.T) {
	pool, err := evergreen.Load("", event.NewNormalizer(geo.Default(), edt))
	require.NoError(t, err)
	h := newHarness(withEvergreen(pool))

	resp := h.say(t, "East Village")
	assert.Equal(t, OutcomeShown, resp.Outcome)
	assert.Len(t, resp.Shown, 3)
	assert.Contains(t, resp.Text, "McSorley's")

	resp = h.say(t, "more")
	assert.Equal(t, OutcomeProposed, resp.Outcome)
	assert.Equal(t, "Lower East Side", h.frame(t).Pending.Area)
}

func TestHandleTurn_AreaPrecedence(t *testing.T) {
	t.Run("explicit area overrides session", func(t *testing.T) {
		h := newHarness()
		h.events.set("East Village", eastVillage()...)
		h.events.set("Williamsburg", ev("wb-1", "Indie Band", "Williamsburg", event.CategoryLiveMusic, false))

		h.say(t, "East Village")
		resp := h.say(t, "Williamsburg")
		assert.Equal(t, "Williamsburg", resp.Area)
		assert.Equal(t, "Williamsburg", h.frame(t).Area)
		assert.Equal(t, "explicit", h.rec.last(StageResolve).AreaSource)
	})

	t.Run("text beats classifier guess", func(t *testing.T) {
		c := &stubClassifier{result: nlu.Classification{Intent: nlu.IntentShowEvents, AreaGuess: "Astoria"}}
		h := newHarness(withClassifier(c))
		h.events.set("Williamsburg", ev("wb-1", "Indie Band", "Williamsburg", event.CategoryLiveMusic, false))

		resp := h.say(t, "anything good near bedford ave tonight")
		assert.Equal(t, 1, c.calls)
		assert.Equal(t, "Williamsburg", resp.Area)
	})

	t.Run("classifier guess beats session", func(t *testing.T) {
		c := &stubClassifier{result: nlu.Classification{Intent: nlu.IntentShowEvents, AreaGuess: "astoria"}}
		h := newHarness(withClassifier(c))
		h.events.set("East Village", eastVillage()...)
		h.events.set("Astoria", ev("as-1", "Beer Garden Trivia", "Astoria", event.CategoryCommunity, false))

		h.say(t, "East Village")
		assert.Equal(t, 0, c.calls, "rules answer first")

		resp := h.say(t, "somewhere with a good view please")
		assert.Equal(t, "Astoria", resp.Area)
		assert.Equal(t, "guess", h.rec.last(StageResolve).AreaSource)
		assert.Contains(t, c.last.Summary, "Current area: East Village.")
		assert.Contains(t, c.last.Areas, "Astoria")
	})

	t.Run("invalid guess falls back to session", func(t *testing.T) {
		c := &stubClassifier{result: nlu.Classification{Intent: nlu.IntentShowEvents, AreaGuess: "Atlantis"}}
		h := newHarness(withClassifier(c))
		h.events.set("East Village", eastVillage()...)

		h.say(t, "East Village")
		resp := h.say(t, "somewhere with a good view please")
		assert.Equal(t, "East Village", resp.Area)
		assert.Equal(t, "session", h.rec.last(StageResolve).AreaSource)
	})
}

func TestHandleTurn_FilterPrecedence(t *testing.T) {
	t.Run("stashed filters apply once an area is named", func(t *testing.T) {
		h := newHarness()
		h.events.set("Bushwick", ev("bw-1", "Free Standup", "Bushwick", event.CategoryComedy, true))

		resp := h.say(t, "free comedy")
		assert.Equal(t, OutcomeAskArea, resp.Outcome)
		f := h.frame(t)
		require.NotNil(t, f.Pending)
		assert.Empty(t, f.Pending.Area)
		assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryComedy}, f.Pending.Filters)

		resp = h.say(t, "Bushwick")
		assert.Equal(t, OutcomeShown, resp.Outcome)
		assert.Equal(t, []string{"bw-1"}, resp.Shown)
		assert.Equal(t, "pending", h.rec.last(StageResolve).FilterSource)
		f = h.frame(t)
		assert.Nil(t, f.Pending)
		assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryComedy}, f.Filters)
	})

	t.Run("stashed compound filters stay strict", func(t *testing.T) {
		h := newHarness()
		h.events.set("Bushwick",
			ev("bw-1", "Free Gallery Walk", "Bushwick", event.CategoryArt, true),
			ev("bw-2", "Free Jazz Jam", "Bushwick", event.CategoryLiveMusic, true),
		)

		h.say(t, "free comedy")
		f := h.frame(t)
		require.NotNil(t, f.Pending)
		assert.True(t, f.Pending.Strict)

		resp := h.say(t, "Bushwick")
		assert.Equal(t, OutcomeExhausted, resp.Outcome)
		assert.Empty(t, resp.Shown)
		assert.Equal(t, "Nothing free comedy near Bushwick right now. Try another neighborhood or drop the filter.", resp.Text)

		direct := newHarness()
		direct.events.set("Bushwick", h.events.byArea["Bushwick"]...)
		resp = direct.say(t, "free comedy in bushwick")
		assert.Equal(t, OutcomeExhausted, resp.Outcome, "the detour answers like the one-line request")
	})

	t.Run("explicit filters override a stale stash", func(t *testing.T) {
		c := &stubClassifier{result: nlu.Classification{
			Intent:  nlu.IntentShowEvents,
			Filters: &ranking.Filters{Category: event.CategoryLiveMusic},
		}}
		h := newHarness(withClassifier(c))
		h.events.set("Williamsburg", ev("wb-1", "Indie Band", "Williamsburg", event.CategoryLiveMusic, false))

		h.say(t, "free comedy")
		resp := h.say(t, "any good concerts out in williamsburg tonight")
		assert.Equal(t, OutcomeShown, resp.Outcome)
		assert.Equal(t, "Williamsburg", resp.Area)
		assert.Equal(t, "explicit", h.rec.last(StageResolve).FilterSource)
		assert.Equal(t, ranking.Filters{Category: event.CategoryLiveMusic}, h.frame(t).Filters)
	})
}

func TestHandleTurn_AskAreaForNewUser(t *testing.T) {
	h := newHarness()
	resp := h.say(t, "more")
	assert.Equal(t, OutcomeAskArea, resp.Outcome)
	assert.Contains(t, resp.Text, "Which neighborhood")
	assert.Nil(t, h.frame(t).Pending)
}

func TestHandleTurn_RepliesClearPendingProposal(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()[:1]...)
	h.say(t, "East Village")
	h.say(t, "more")
	require.NotNil(t, h.frame(t).Pending)

	resp := h.say(t, "help")
	assert.Equal(t, nlu.IntentHelp, resp.Intent)
	assert.Contains(t, resp.Text, "New York")
	f := h.frame(t)
	assert.Nil(t, f.Pending)
	assert.Equal(t, "East Village", f.Area)
}

func TestHandleTurn_FailuresLeaveSessionUntouched(t *testing.T) {
	setup := func(t *testing.T, opts ...harnessOption) (*harness, *session.Frame) {
		h := newHarness(opts...)
		h.events.set("East Village", eastVillage()...)
		h.say(t, "East Village")
		return h, h.frame(t)
	}
	apology := func(t *testing.T, h *harness, text string, before *session.Frame) {
		t.Helper()
		resp, err := h.engine.HandleTurn(context.Background(), "u1", text)
		require.Error(t, err)
		assert.Equal(t, ApologyText, resp.Text)
		assert.Equal(t, OutcomeApology, resp.Outcome)
		after, ok, getErr := h.store.Store.Get(context.Background(), "u1")
		require.NoError(t, getErr)
		require.True(t, ok)
		assert.Equal(t, before, after)
		assert.Equal(t, OutcomeApology, h.rec.last(StageDispatch).Outcome)
	}

	t.Run("event source", func(t *testing.T) {
		h, before := setup(t)
		h.events.fail(errors.New("upstream down"))
		apology(t, h, "more", before)
		assert.Equal(t, 1, h.store.replaces)
	})

	t.Run("classifier", func(t *testing.T) {
		c := &stubClassifier{err: errors.New("model timeout")}
		h, before := setup(t, withClassifier(c))
		apology(t, h, "somewhere with a good view please", before)
	})

	t.Run("renderer", func(t *testing.T) {
		h := newHarness(withRenderer(failingRenderer{}))
		h.events.set("East Village", eastVillage()...)
		h.say(t, "help")
		before := h.frame(t)
		apology(t, h, "East Village", before)
	})

	t.Run("session read", func(t *testing.T) {
		h, before := setup(t)
		h.store.getErr = errors.New("redis down")
		resp, err := h.engine.HandleTurn(context.Background(), "u1", "more")
		require.Error(t, err)
		assert.Equal(t, ApologyText, resp.Text)
		h.store.getErr = nil
		assert.Equal(t, before, h.frame(t))
	})

	t.Run("session write", func(t *testing.T) {
		h, before := setup(t)
		h.store.replaceErr = errors.New("redis down")
		apology(t, h, "more", before)
	})
}

func TestHandleTurn_ObserverSeesEveryStage(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()...)
	h.say(t, "East Village")

	require.Len(t, h.rec.decisions, 3)
	assert.Equal(t, StageClassify, h.rec.decisions[0].Stage)
	assert.Equal(t, "area_only", h.rec.decisions[0].Rule)
	assert.Equal(t, StageResolve, h.rec.decisions[1].Stage)
	assert.Equal(t, "explicit", h.rec.decisions[1].AreaSource)
	assert.Equal(t, StageDispatch, h.rec.decisions[2].Stage)
	assert.Equal(t, OutcomeShown, h.rec.decisions[2].Outcome)
}

func TestHandleTurn_HistoryIsBounded(t *testing.T) {
	h := newHarness()
	h.events.set("East Village", eastVillage()...)
	for _, text := range []string{"East Village", "more", "1", "thanks"} {
		h.say(t, text)
	}
	f := h.frame(t)
	require.Len(t, f.History, session.DefaultHistoryLimit)
	assert.Equal(t, session.RoleAssistant, f.History[len(f.History)-1].Role)
	assert.Equal(t, "thanks", f.History[len(f.History)-2].Text)
}

func TestSummarize(t *testing.T) {
	f := &session.Frame{
		Area:    "Bushwick",
		Filters: ranking.Filters{FreeOnly: true},
		Pending: &session.Pending{Area: "Bed-Stuy"},
		Chosen:  []session.Pick{{ID: "a", Name: "Warehouse Party"}},
		History: []session.Turn{{Role: session.RoleUser, Text: "bushwick"}},
	}
	s := Summarize(f)
	assert.Contains(t, s, "Current area: Bushwick.")
	assert.Contains(t, s, "Active filters: free.")
	assert.Contains(t, s, "try Bed-Stuy")
	assert.Contains(t, s, "1. Warehouse Party")
	assert.Contains(t, s, "user: bushwick")
	assert.Empty(t, Summarize(nil))
}

func TestObservers_FanOut(t *testing.T) {
	var got []Stage
	obs := Observers{
		ObserverFunc(func(ctx context.Context, d Decision) { got = append(got, d.Stage) }),
		nil,
		LogObserver{},
		MetricsObserver{},
	}
	obs.Observe(context.Background(), Decision{Stage: StageDispatch, Intent: nlu.IntentHelp, Outcome: OutcomeReply})
	assert.Equal(t, []Stage{StageDispatch}, got)
}
