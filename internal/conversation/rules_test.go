package conversation

import (
	"testing"

	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/nlu"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRules(text string, frame *session.Frame) (Match, bool) {
	if frame == nil {
		frame = &session.Frame{}
	}
	in := Input{Text: text, Norm: normalize(text), Frame: frame, Registry: geo.Default()}
	for _, r := range DefaultRules() {
		if m, ok := r.Match(in); ok {
			m.Rule = r.Name
			return m, true
		}
	}
	return Match{}, false
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "whats free tonight", normalize("  What's FREE tonight?! "))
	assert.Equal(t, "#2", normalize("#2"))
	assert.Equal(t, "bed stuy", normalize("Bed-Stuy"))
	assert.Equal(t, "", normalize("?!"))
}

func TestRules(t *testing.T) {
	withPicks := &session.Frame{
		Area:   "East Village",
		Chosen: []session.Pick{{ID: "a", Name: "Jazz at Mona's"}, {ID: "b", Name: "Open Mic Comedy"}, {ID: "c", Name: "Punk Show"}},
	}
	withProposal := &session.Frame{
		Area:    "East Village",
		Pending: &session.Pending{Area: "Lower East Side", Reason: "filter_miss"},
	}

	tests := []struct {
		name   string
		text   string
		frame  *session.Frame
		rule   string
		intent nlu.Intent
		check  func(t *testing.T, m Match)
	}{
		{name: "help", text: "help", rule: "help", intent: nlu.IntentHelp},
		{name: "help with a question", text: "What can you do?", rule: "help", intent: nlu.IntentHelp},
		{
			name: "bare number", text: "2", frame: withPicks, rule: "numeric_reference", intent: nlu.IntentShowDetails,
			check: func(t *testing.T, m Match) {
				assert.Equal(t, 2, m.Ref)
				assert.Equal(t, "b", m.PickID)
			},
		},
		{
			name: "prefixed number", text: "tell me about #3", frame: withPicks, rule: "numeric_reference", intent: nlu.IntentShowDetails,
			check: func(t *testing.T, m Match) { assert.Equal(t, "c", m.PickID) },
		},
		{
			name: "accept proposal", text: "Yeah", frame: withProposal, rule: "pending_reply", intent: nlu.IntentNudgeAccept,
			check: func(t *testing.T, m Match) { assert.Equal(t, "Lower East Side", m.Area) },
		},
		{
			name: "decline proposal", text: "nah", frame: withProposal, rule: "pending_reply", intent: nlu.IntentEnd,
			check: func(t *testing.T, m Match) {
				assert.True(t, m.Decline)
				assert.NotEmpty(t, m.Reply)
			},
		},
		{name: "more", text: "what else?", rule: "more", intent: nlu.IntentShowMore},
		{
			name: "free", text: "anything free?", rule: "free", intent: nlu.IntentShowFreeOnly,
			check: func(t *testing.T, m Match) {
				require.NotNil(t, m.Filters)
				assert.Equal(t, ranking.Filters{FreeOnly: true}, *m.Filters)
			},
		},
		{
			name: "free category with area", text: "free comedy in Bushwick tonight", rule: "free_category", intent: nlu.IntentShowEvents,
			check: func(t *testing.T, m Match) {
				require.NotNil(t, m.Filters)
				assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryComedy}, *m.Filters)
				assert.True(t, m.Strict)
				assert.Equal(t, "Bushwick", m.Area)
			},
		},
		{
			name: "free category late", text: "free jazz late night", rule: "free_category", intent: nlu.IntentShowEvents,
			check: func(t *testing.T, m Match) {
				require.NotNil(t, m.Filters)
				assert.Equal(t, ranking.Late, m.Filters.TimeOfDay)
				assert.Empty(t, m.Area)
			},
		},
		{
			name: "pick by name", text: "open mic", frame: withPicks, rule: "pick_name", intent: nlu.IntentShowDetails,
			check: func(t *testing.T, m Match) { assert.Equal(t, "b", m.PickID) },
		},
		{
			name: "greeting", text: "hey!", rule: "smalltalk", intent: nlu.IntentEnd,
			check: func(t *testing.T, m Match) { assert.NotEmpty(t, m.Reply) },
		},
		{name: "thanks", text: "Thank you", rule: "smalltalk", intent: nlu.IntentEnd},
		{name: "off topic", text: "what's the weather tomorrow", rule: "off_topic", intent: nlu.IntentEnd},
		{
			name: "area only", text: "East Village", rule: "area_only", intent: nlu.IntentShowEvents,
			check: func(t *testing.T, m Match) {
				assert.Equal(t, "East Village", m.Area)
				assert.Nil(t, m.Filters)
			},
		},
		{
			name: "area alias", text: "les", rule: "area_only", intent: nlu.IntentShowEvents,
			check: func(t *testing.T, m Match) { assert.Equal(t, "Lower East Side", m.Area) },
		},
		{
			name: "area with category", text: "jazz in williamsburg", rule: "area_only", intent: nlu.IntentShowEvents,
			check: func(t *testing.T, m Match) {
				assert.Equal(t, "Williamsburg", m.Area)
				require.NotNil(t, m.Filters)
				assert.Equal(t, event.CategoryLiveMusic, m.Filters.Category)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := runRules(tt.text, tt.frame)
			require.True(t, ok)
			assert.Equal(t, tt.rule, m.Rule)
			assert.Equal(t, tt.intent, m.Intent)
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestRules_NoMatch(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		frame *session.Frame
	}{
		{name: "number without a list", text: "2"},
		{name: "number out of range", text: "7", frame: &session.Frame{Chosen: []session.Pick{{ID: "a", Name: "A"}}}},
		{name: "yes without a proposal", text: "yes"},
		{name: "long message", text: "I want to see something fun with my friends in the East Village later"},
		{name: "unknown place", text: "Atlantis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := runRules(tt.text, tt.frame)
			assert.False(t, ok, "matched %s", m.Rule)
		})
	}
}

func TestRules_HelpBeatsEverything(t *testing.T) {
	m, ok := runRules("help", &session.Frame{Pending: &session.Pending{Area: "SoHo"}})
	require.True(t, ok)
	assert.Equal(t, nlu.IntentHelp, m.Intent)
}

func TestExtractFilters(t *testing.T) {
	assert.Nil(t, ExtractFilters("east village"))

	f := ExtractFilters(normalize("free live music this evening"))
	require.NotNil(t, f)
	assert.Equal(t, ranking.Filters{FreeOnly: true, Category: event.CategoryLiveMusic, TimeOfDay: ranking.Evening}, *f)

	f = ExtractFilters("stand up comedy")
	require.NotNil(t, f)
	assert.Equal(t, event.CategoryComedy, f.Category)
	assert.False(t, f.FreeOnly)
}
