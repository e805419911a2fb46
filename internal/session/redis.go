package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	owlErrors "github.com/harunnryd/nightowl/internal/errors"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "nightowl:session:"

// RedisStore keeps frames as JSON strings with a per-key expiry, so several
// daemons can share conversation state.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	opts   Options
}

func NewRedisStore(client redis.UniversalClient, prefix string, opts Options) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, opts: opts.withDefaults()}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Frame, bool, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, owlErrors.WrapWithCategory(err, "redis get session", owlErrors.ErrTransient)
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return &f, true, nil
}

func (s *RedisStore) Replace(ctx context.Context, userID string, frame *Frame) error {
	f := frame.Clone()
	f.UserID = userID
	f.UpdatedAt = s.opts.Now()
	f.History = AppendTurns(nil, s.opts.HistoryLimit, f.History...)
	return s.put(ctx, f)
}

func (s *RedisStore) put(ctx context.Context, f *Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", f.UserID, err)
	}
	if err := s.client.Set(ctx, s.key(f.UserID), data, s.opts.TTL).Err(); err != nil {
		return owlErrors.WrapWithCategory(err, "redis set session", owlErrors.ErrTransient)
	}
	return nil
}

// Touch is a read-modify-write; callers serialize turns per user.
func (s *RedisStore) Touch(ctx context.Context, userID string, turn Turn) error {
	f, ok, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		f = &Frame{UserID: userID}
	}
	now := s.opts.Now()
	if turn.At.IsZero() {
		turn.At = now
	}
	f.History = AppendTurns(f.History, s.opts.HistoryLimit, turn)
	f.UpdatedAt = now
	return s.put(ctx, f)
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return owlErrors.WrapWithCategory(err, "redis delete session", owlErrors.ErrTransient)
	}
	return nil
}

// Sweep is a no-op: Redis expires keys itself.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
