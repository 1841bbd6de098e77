// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-oauth/oauth"
)

func TestMemoryReplayGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("single-use", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		g := NewMemoryReplayGuard()
		require.NoError(g.Consume(ctx, "c_one", time.Minute))
		err := g.Consume(ctx, "c_one", time.Minute)
		assert.ErrorIs(err, oauth.ErrStateReplayed)
		assert.ErrorIs(err, oauth.ErrCorrelationMismatch)
		assert.NoError(g.Consume(ctx, "c_two", time.Minute))
	})
	t.Run("expiry", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		now := time.Now()
		g := NewMemoryReplayGuard(WithNow(func() time.Time { return now }))
		require.NoError(g.Consume(ctx, "c_one", time.Minute))

		now = now.Add(30 * time.Second)
		assert.ErrorIs(g.Consume(ctx, "c_one", time.Minute), oauth.ErrStateReplayed)

		now = now.Add(31 * time.Second)
		assert.NoError(g.Consume(ctx, "c_one", time.Minute))
	})
	t.Run("minimum-ttl", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		now := time.Now()
		g := NewMemoryReplayGuard(WithNow(func() time.Time { return now }))
		require.NoError(g.Consume(ctx, "c_one", -time.Second))

		now = now.Add(500 * time.Millisecond)
		assert.ErrorIs(g.Consume(ctx, "c_one", 0), oauth.ErrStateReplayed)
	})
	t.Run("empty-id", func(t *testing.T) {
		assert := assert.New(t)
		g := NewMemoryReplayGuard()
		assert.ErrorIs(g.Consume(ctx, "", time.Minute), oauth.ErrInvalidParameter)
	})
}

// testSetNX is an in-memory RedisSetNX.
type testSetNX struct {
	mu   sync.Mutex
	ttls map[string]time.Duration
	err  error
}

func newTestSetNX() *testSetNX {
	return &testSetNX{ttls: map[string]time.Duration{}}
}

func (r *testSetNX) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return redis.NewBoolResult(false, r.err)
	}
	if _, ok := r.ttls[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	r.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedisReplayGuard(t *testing.T) {
	t.Parallel()
	t.Run("nil-client", func(t *testing.T) {
		assert := assert.New(t)
		g, err := NewRedisReplayGuard(nil)
		assert.ErrorIs(err, oauth.ErrNilParameter)
		assert.Nil(g)
	})

	t.Run("set-nx", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ctx := context.Background()
		rdb := newTestSetNX()
		g, err := NewRedisReplayGuard(rdb, WithKeyPrefix("test:"))
		require.NoError(err)

		require.NoError(g.Consume(ctx, "c_one", time.Minute))
		err = g.Consume(ctx, "c_one", time.Minute)
		assert.ErrorIs(err, oauth.ErrStateReplayed)
		assert.ErrorIs(err, oauth.ErrCorrelationMismatch)
		assert.NoError(g.Consume(ctx, "c_two", 0))

		assert.Equal(time.Minute, rdb.ttls["test:c_one"])
		assert.Equal(minReplayTTL, rdb.ttls["test:c_two"])
		assert.ErrorIs(g.Consume(ctx, "", time.Minute), oauth.ErrInvalidParameter)

		rdb.err = errors.New("connection refused")
		err = g.Consume(ctx, "c_three", time.Minute)
		assert.ErrorIs(err, oauth.ErrRemote)
		assert.NotErrorIs(err, oauth.ErrStateReplayed)
	})

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("set TEST_REDIS_URL to run the redis replay guard tests")
	}
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	redisOpts, err := redis.ParseURL(redisURL)
	require.NoError(err)
	rdb := redis.NewClient(redisOpts)
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := "cap-oauth-test:" + t.Name() + ":"
	g, err := NewRedisReplayGuard(rdb, WithKeyPrefix(prefix))
	require.NoError(err)

	id, err := oauth.NewID("c")
	require.NoError(err)
	t.Cleanup(func() { rdb.Del(context.Background(), prefix+id) })

	require.NoError(g.Consume(ctx, id, time.Minute))
	err = g.Consume(ctx, id, time.Minute)
	assert.ErrorIs(err, oauth.ErrStateReplayed)

	ttl, err := rdb.TTL(ctx, prefix+id).Result()
	require.NoError(err)
	assert.True(ttl > 0 && ttl <= time.Minute)

	assert.ErrorIs(g.Consume(ctx, "", time.Minute), oauth.ErrInvalidParameter)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	other, err := oauth.NewID("c")
	require.NoError(err)
	assert.ErrorIs(g.Consume(canceled, other, time.Minute), oauth.ErrRemote)
}
