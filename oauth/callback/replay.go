// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hashicorp/cap-oauth/oauth"
)

// DefaultReplayKeyPrefix prefixes the keys written by a RedisReplayGuard.
const DefaultReplayKeyPrefix = "cap-oauth:replay:"

// minReplayTTL is the shortest time an id is remembered.
const minReplayTTL = time.Second

// ReplayGuard records the ids of completed login attempts. Consume returns
// an error wrapping oauth.ErrStateReplayed when id was already consumed
// within its ttl. Implementations must be safe for concurrent use.
type ReplayGuard interface {
	Consume(ctx context.Context, id string, ttl time.Duration) error
}

func replayedError(op, id string) error {
	return fmt.Errorf("%s: attempt %q: %w: %w", op, id, oauth.ErrCorrelationMismatch, oauth.ErrStateReplayed)
}

// MemoryReplayGuard is a ReplayGuard for a single process.
type MemoryReplayGuard struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	nowFunc func() time.Time
}

var _ ReplayGuard = (*MemoryReplayGuard)(nil)

// NewMemoryReplayGuard creates a MemoryReplayGuard.
//
// Supported options: WithNow
func NewMemoryReplayGuard(opt ...oauth.Option) *MemoryReplayGuard {
	opts := getOpts(opt...)
	return &MemoryReplayGuard{
		seen:    map[string]time.Time{},
		nowFunc: opts.withNowFunc,
	}
}

// Consume implements ReplayGuard. Expired ids are forgotten.
func (g *MemoryReplayGuard) Consume(_ context.Context, id string, ttl time.Duration) error {
	const op = "MemoryReplayGuard.Consume"
	if id == "" {
		return fmt.Errorf("%s: id is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if ttl < minReplayTTL {
		ttl = minReplayTTL
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.nowFunc()
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[id]; ok {
		return replayedError(op, id)
	}
	g.seen[id] = now.Add(ttl)
	return nil
}

// RedisSetNX is the part of a redis client used by RedisReplayGuard.
// *redis.Client, *redis.ClusterClient and every redis.Cmdable satisfy it.
type RedisSetNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

var _ RedisSetNX = (redis.Cmdable)(nil)

// RedisReplayGuard is a ReplayGuard shared by every process using the same
// redis server.
type RedisReplayGuard struct {
	rdb    RedisSetNX
	prefix string
}

var _ ReplayGuard = (*RedisReplayGuard)(nil)

// NewRedisReplayGuard creates a RedisReplayGuard.
//
// Supported options: WithKeyPrefix
func NewRedisReplayGuard(rdb RedisSetNX, opt ...oauth.Option) (*RedisReplayGuard, error) {
	const op = "callback.NewRedisReplayGuard"
	if rdb == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, oauth.ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &RedisReplayGuard{rdb: rdb, prefix: opts.withKeyPrefix}, nil
}

// Consume implements ReplayGuard using SET NX with an expiry.
func (g *RedisReplayGuard) Consume(ctx context.Context, id string, ttl time.Duration) error {
	const op = "RedisReplayGuard.Consume"
	if id == "" {
		return fmt.Errorf("%s: id is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if ttl < minReplayTTL {
		ttl = minReplayTTL
	}
	ok, err := g.rdb.SetNX(ctx, g.prefix+id, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, oauth.ErrRemote, err)
	}
	if !ok {
		return replayedError(op, id)
	}
	return nil
}
