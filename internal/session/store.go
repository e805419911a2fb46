package session

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTTL          = 2 * time.Hour
	DefaultHistoryLimit = 6
)

// Store keeps one Frame per user. Reads treat frames older than the TTL as absent.
type Store interface {
	Get(ctx context.Context, userID string) (*Frame, bool, error)
	Replace(ctx context.Context, userID string, frame *Frame) error
	Touch(ctx context.Context, userID string, turn Turn) error
	Delete(ctx context.Context, userID string) error
	Sweep(ctx context.Context) (int, error)
}

type Options struct {
	TTL          time.Duration
	HistoryLimit int
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type memoryEntry struct {
	frame     *Frame
	expiresAt time.Time
}

// MemoryStore is the single-process backend.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	opts    Options
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    opts.withDefaults(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, false, nil
	}
	if !s.opts.Now().Before(e.expiresAt) {
		delete(s.entries, userID)
		return nil, false, nil
	}
	return e.frame.Clone(), true, nil
}

func (s *MemoryStore) Replace(ctx context.Context, userID string, frame *Frame) error {
	now := s.opts.Now()
	f := frame.Clone()
	f.UserID = userID
	f.UpdatedAt = now
	f.History = AppendTurns(nil, s.opts.HistoryLimit, f.History...)

	s.mu.Lock()
	s.entries[userID] = memoryEntry{frame: f, expiresAt: now.Add(s.opts.TTL)}
	s.mu.Unlock()
	return nil
}

// Touch appends a history entry and extends the TTL. An absent frame is created.
func (s *MemoryStore) Touch(ctx context.Context, userID string, turn Turn) error {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &Frame{UserID: userID}
	if e, ok := s.entries[userID]; ok && now.Before(e.expiresAt) {
		f = e.frame.Clone()
	}
	if turn.At.IsZero() {
		turn.At = now
	}
	f.History = AppendTurns(f.History, s.opts.HistoryLimit, turn)
	f.UpdatedAt = now
	s.entries[userID] = memoryEntry{frame: f, expiresAt: now.Add(s.opts.TTL)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired frames and returns how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
