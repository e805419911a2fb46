package session

import (
	"strings"
	"time"

	"github.com/harunnryd/nightowl/internal/ranking"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the rolling conversation log.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"ts"`
}

// Pick is one event shown in the latest response, in display order.
type Pick struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pending holds an area proposal awaiting yes/no, or filters stashed while
// the user was asked for an area (Area empty). Strict travels with stashed
// filters so a compound request stays compound after the detour.
type Pending struct {
	Area    string          `json:"area,omitempty"`
	Filters ranking.Filters `json:"filters"`
	Strict  bool            `json:"strict,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Frame is the full per-user conversation state. A completed turn builds a
// new Frame and stores it with one Replace call; fields are never patched.
type Frame struct {
	UserID    string          `json:"user_id"`
	Area      string          `json:"area,omitempty"`
	Offered   []string        `json:"offered,omitempty"`
	Chosen    []Pick          `json:"chosen,omitempty"`
	Filters   ranking.Filters `json:"filters"`
	Pending   *Pending        `json:"pending,omitempty"`
	Visited   []string        `json:"visited,omitempty"`
	History   []Turn          `json:"history,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (f *Frame) HasOffered(id string) bool {
	for _, o := range f.Offered {
		if o == id {
			return true
		}
	}
	return false
}

func (f *Frame) HasVisited(area string) bool {
	for _, v := range f.Visited {
		if strings.EqualFold(v, area) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := *f
	out.Offered = append([]string(nil), f.Offered...)
	out.Chosen = append([]Pick(nil), f.Chosen...)
	out.Visited = append([]string(nil), f.Visited...)
	out.History = append([]Turn(nil), f.History...)
	if f.Pending != nil {
		p := *f.Pending
		out.Pending = &p
	}
	return &out
}

// AppendTurns returns history with turns added, keeping only the newest limit entries.
func AppendTurns(history []Turn, limit int, turns ...Turn) []Turn {
	out := make([]Turn, 0, len(history)+len(turns))
	out = append(out, history...)
	out = append(out, turns...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
