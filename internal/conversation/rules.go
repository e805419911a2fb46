package conversation

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/harunnryd/nightowl/internal/event"
	"github.com/harunnryd/nightowl/internal/geo"
	"github.com/harunnryd/nightowl/internal/nlu"
	"github.com/harunnryd/nightowl/internal/ranking"
	"github.com/harunnryd/nightowl/internal/session"
)

const maxAreaMessageWords = 4

// Input is what a rule sees: the raw text, its normalized form and the
// current frame (never nil; empty for a new user).
type Input struct {
	Text     string
	Norm     string
	Frame    *session.Frame
	Registry *geo.Registry
}

// Match is a rule's verdict. Filters is nil when the message states none.
type Match struct {
	Rule    string
	Intent  nlu.Intent
	Area    string
	Guess   string // classifier area guess, validated before use
	Filters *ranking.Filters
	Strict  bool
	Ref     int
	PickID  string
	Reply   string
	Decline bool
}

// Rule is one deterministic shortcut. Rules run in order; the first match wins.
type Rule struct {
	Name  string
	Match func(in Input) (Match, bool)
}

var (
	helpPhrases = phraseSet("help", "what can you do", "how does this work", "how do you work", "commands", "menu", "what do you do")

	affirmatives = phraseSet("yes", "y", "yeah", "yea", "yep", "yup", "sure", "ok", "okay", "sounds good", "lets go", "let's go", "do it", "why not", "go for it", "yes please", "sure thing")
	negatives    = phraseSet("no", "n", "nope", "nah", "no thanks", "no thank you", "not really", "pass")

	morePhrases = phraseSet("more", "more please", "show more", "show me more", "anything else", "what else", "next", "others", "more options", "something else", "keep going")
	freePhrases = phraseSet("free", "free stuff", "free things", "free events", "anything free", "free only", "only free", "whats free", "what's free", "free please", "something free", "free options")

	greetings = phraseSet("hi", "hello", "hey", "yo", "hiya", "good evening", "hey there", "hello there", "sup")
	thanks    = phraseSet("thanks", "thank you", "thx", "ty", "cheers", "thanks a lot", "thank you so much", "appreciate it")
	farewells = phraseSet("bye", "goodbye", "good night", "goodnight", "night", "see ya", "see you", "later", "cya", "im done", "i'm done", "thats all", "that's all")

	offTopic = []string{"weather", "stock", "bitcoin", "crypto", "homework", "write code", "python", "politics", "election", "recipe", "translate", "math problem"}

	detailPrefixes = []string{"tell me about", "more about", "details on", "details for", "details", "info on", "what about", "number", "option", "#"}
)

// categoryWords maps colloquial words to categories for compound requests.
var categoryWords = []struct {
	category event.Category
	words    []string
}{
	{event.CategoryComedy, []string{"comedy", "standup", "stand up", "improv", "funny"}},
	{event.CategoryLiveMusic, []string{"live music", "music", "jazz", "concert", "concerts", "band", "bands", "gig", "gigs"}},
	{event.CategoryArt, []string{"art", "gallery", "galleries", "museum", "museums", "exhibit", "exhibition"}},
	{event.CategoryNightlife, []string{"party", "parties", "club", "clubs", "dancing", "bar", "bars", "dj"}},
	{event.CategoryTheater, []string{"theater", "theatre", "play", "plays", "musical", "broadway", "drag"}},
	{event.CategoryFoodDrink, []string{"food", "drinks", "wine", "beer", "tasting", "cocktails", "happy hour"}},
	{event.CategoryCommunity, []string{"meetup", "meetups", "workshop", "workshops", "trivia", "talk", "talks", "reading", "readings"}},
}

var timeWords = []struct {
	tod   ranking.TimeOfDay
	words []string
}{
	{ranking.Late, []string{"late night", "late", "after midnight"}},
	{ranking.Afternoon, []string{"afternoon", "daytime"}},
	{ranking.Evening, []string{"evening", "this evening"}},
}

// DefaultRules is the pre-classifier, in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "help", Match: matchHelp},
		{Name: "numeric_reference", Match: matchNumericReference},
		{Name: "pending_reply", Match: matchPendingReply},
		{Name: "more", Match: matchMore},
		{Name: "free", Match: matchFree},
		{Name: "free_category", Match: matchFreeCategory},
		{Name: "pick_name", Match: matchPickName},
		{Name: "smalltalk", Match: matchSmalltalk},
		{Name: "off_topic", Match: matchOffTopic},
		{Name: "area_only", Match: matchAreaOnly},
	}
}

func matchHelp(in Input) (Match, bool) {
	if _, ok := helpPhrases[in.Norm]; ok {
		return Match{Intent: nlu.IntentHelp}, true
	}
	if strings.HasPrefix(in.Norm, "help ") {
		return Match{Intent: nlu.IntentHelp}, true
	}
	return Match{}, false
}

func matchNumericReference(in Input) (Match, bool) {
	if len(in.Frame.Chosen) == 0 {
		return Match{}, false
	}
	rest := in.Norm
	for _, p := range detailPrefixes {
		if strings.HasPrefix(rest, p) {
			rest = strings.TrimSpace(strings.TrimPrefix(rest, p))
			break
		}
	}
	rest = strings.TrimPrefix(rest, "#")
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > len(in.Frame.Chosen) {
		return Match{}, false
	}
	return Match{Intent: nlu.IntentShowDetails, Ref: n, PickID: in.Frame.Chosen[n-1].ID}, true
}

func matchPendingReply(in Input) (Match, bool) {
	p := in.Frame.Pending
	if p == nil || p.Area == "" {
		return Match{}, false
	}
	if _, ok := affirmatives[in.Norm]; ok {
		return Match{Intent: nlu.IntentNudgeAccept, Area: p.Area}, true
	}
	if _, ok := negatives[in.Norm]; ok {
		return Match{Intent: nlu.IntentEnd, Decline: true, Reply: "No problem. Name another neighborhood whenever you like."}, true
	}
	return Match{}, false
}

func matchMore(in Input) (Match, bool) {
	if _, ok := morePhrases[in.Norm]; ok {
		return Match{Intent: nlu.IntentShowMore}, true
	}
	return Match{}, false
}

func matchFree(in Input) (Match, bool) {
	if _, ok := freePhrases[in.Norm]; ok {
		return Match{Intent: nlu.IntentShowFreeOnly, Filters: &ranking.Filters{FreeOnly: true}}, true
	}
	return Match{}, false
}

// matchFreeCategory catches compound requests such as "free comedy in
// bushwick". These are strict: a category miss is not papered over.
func matchFreeCategory(in Input) (Match, bool) {
	if !containsWord(in.Norm, "free") {
		return Match{}, false
	}
	cat, ok := detectCategory(in.Norm)
	if !ok {
		return Match{}, false
	}
	f := ranking.Filters{FreeOnly: true, Category: cat, TimeOfDay: detectTimeOfDay(in.Norm)}
	m := Match{Intent: nlu.IntentShowEvents, Filters: &f, Strict: true}
	if a, ok := in.Registry.Resolve(in.Text, nil); ok {
		m.Area = a.Name
	}
	return m, true
}

func matchPickName(in Input) (Match, bool) {
	if len(in.Frame.Chosen) == 0 || len(in.Norm) < 4 {
		return Match{}, false
	}
	for _, p := range in.Frame.Chosen {
		name := normalize(p.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, in.Norm) || containsWord(in.Norm, name) {
			return Match{Intent: nlu.IntentShowDetails, PickID: p.ID}, true
		}
	}
	return Match{}, false
}

func matchSmalltalk(in Input) (Match, bool) {
	if _, ok := greetings[in.Norm]; ok {
		return Match{Intent: nlu.IntentEnd, Reply: "Hey! Tell me a neighborhood and I'll find something to do tonight."}, true
	}
	if _, ok := thanks[in.Norm]; ok {
		return Match{Intent: nlu.IntentEnd, Reply: "Anytime. Have a great night!"}, true
	}
	if _, ok := farewells[in.Norm]; ok {
		return Match{Intent: nlu.IntentEnd, Reply: "Have fun out there. Message me whenever you want more ideas."}, true
	}
	return Match{}, false
}

func matchOffTopic(in Input) (Match, bool) {
	for _, w := range offTopic {
		if containsWord(in.Norm, w) {
			return Match{Intent: nlu.IntentEnd, Reply: "I only know what's happening around town. Try a neighborhood, like \"East Village\" or \"free comedy in Williamsburg\"."}, true
		}
	}
	return Match{}, false
}

func matchAreaOnly(in Input) (Match, bool) {
	if in.Norm == "" || len(strings.Fields(in.Norm)) > maxAreaMessageWords {
		return Match{}, false
	}
	a, ok := in.Registry.Resolve(in.Text, nil)
	if !ok {
		return Match{}, false
	}
	return Match{Intent: nlu.IntentShowEvents, Area: a.Name, Filters: ExtractFilters(in.Norm)}, true
}

// ExtractFilters reads filters stated in free text, or nil when there are none.
func ExtractFilters(norm string) *ranking.Filters {
	f := ranking.Filters{FreeOnly: containsWord(norm, "free")}
	if cat, ok := detectCategory(norm); ok {
		f.Category = cat
	}
	f.TimeOfDay = detectTimeOfDay(norm)
	if f.IsZero() {
		return nil
	}
	return &f
}

func detectCategory(norm string) (event.Category, bool) {
	for _, entry := range categoryWords {
		for _, w := range entry.words {
			if containsWord(norm, w) {
				return entry.category, true
			}
		}
	}
	return "", false
}

func detectTimeOfDay(norm string) ranking.TimeOfDay {
	for _, entry := range timeWords {
		for _, w := range entry.words {
			if containsWord(norm, w) {
				return entry.tod
			}
		}
	}
	return ranking.AnyTime
}

func phraseSet(phrases ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		out[normalize(p)] = struct{}{}
	}
	return out
}

func containsWord(norm, phrase string) bool {
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}

// normalize lowercases and keeps letters, digits, '#' and single spaces.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '#':
			b.WriteRune(r)
			space = false
		case r == '\'' || r == '’':
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
