package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSaveTTL = 7 * 24 * time.Hour

// RedisSlots stores records under save:<session>:<slot> with a per-session
// index set. Every write refreshes the TTL of both.
type RedisSlots struct {
	rdb      *redis.Client
	ttl      time.Duration
	compress bool
}

type RedisOption func(*RedisSlots)

func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisSlots) { s.ttl = ttl }
}

func WithCompression(on bool) RedisOption {
	return func(s *RedisSlots) { s.compress = on }
}

func NewRedisSlots(rdb *redis.Client, opts ...RedisOption) *RedisSlots {
	s := &RedisSlots{rdb: rdb, ttl: defaultSaveTTL, compress: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSlots) keySlot(sessionID, slot string) string { return "save:" + sessionID + ":" + slot }
func (s *RedisSlots) keyIndex(sessionID string) string      { return "save:" + sessionID + ":slots" }

func (s *RedisSlots) Put(ctx context.Context, sessionID, slot string, record []byte) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	value := record
	if s.compress {
		packed, err := Compress(record)
		if err != nil {
			return err
		}
		value = packed
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keySlot(sessionID, slot), value, s.ttl)
	pipe.SAdd(ctx, s.keyIndex(sessionID), slot)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.keyIndex(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put %s/%s: %w", sessionID, slot, err)
	}
	return nil
}

func (s *RedisSlots) Get(ctx context.Context, sessionID, slot string) ([]byte, error) {
	if err := validateKeys(sessionID, slot); err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, s.keySlot(sessionID, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s/%s: %w", sessionID, slot, err)
	}
	return Decompress(raw)
}

// List returns the live slots; index members whose record expired are pruned.
func (s *RedisSlots) List(ctx context.Context, sessionID string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.keyIndex(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", sessionID, err)
	}
	out := make([]string, 0, len(members))
	for _, slot := range members {
		n, err := s.rdb.Exists(ctx, s.keySlot(sessionID, slot)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists %s/%s: %w", sessionID, slot, err)
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, s.keyIndex(sessionID), slot).Err()
			continue
		}
		out = append(out, slot)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisSlots) Delete(ctx context.Context, sessionID, slot string) error {
	if err := validateKeys(sessionID, slot); err != nil {
		return err
	}
	n, err := s.rdb.Del(ctx, s.keySlot(sessionID, slot)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s/%s: %w", sessionID, slot, err)
	}
	_ = s.rdb.SRem(ctx, s.keyIndex(sessionID), slot).Err()
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}
