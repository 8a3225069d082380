package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemory_FixedWindow(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	m := NewMemory(WithClock(c.now))
	ctx := context.Background()
	key := InvestKey("ada")
	rule := Rule{Name: "invest", Max: 5, Window: 15 * time.Minute}

	for i := 0; i < rule.Max; i++ {
		d, err := m.Allow(ctx, key, rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d", i+1)
		assert.Equal(t, rule.Max-i-1, d.Remaining)
	}

	c.t = c.t.Add(5 * time.Minute)
	d, err := m.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10*time.Minute, d.ResetIn)
	assert.Equal(t, 0, m.Remaining(key, rule.Max))
	assert.Equal(t, 10*time.Minute, m.TimeUntilReset(key))

	c.t = c.t.Add(10 * time.Minute)
	assert.Equal(t, rule.Max, m.Remaining(key, rule.Max))
	assert.Equal(t, time.Duration(0), m.TimeUntilReset(key))

	d, err = m.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, rule.Window, d.ResetIn)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rule := Rule{Name: "test", Max: 1, Window: time.Hour}

	d, _ := m.Allow(ctx, APIKey("invest", "u1"), rule)
	assert.True(t, d.Allowed)
	d, _ = m.Allow(ctx, APIKey("invest", "u1"), rule)
	assert.False(t, d.Allowed)
	d, _ = m.Allow(ctx, APIKey("invest", "u2"), rule)
	assert.True(t, d.Allowed)
	d, _ = m.Allow(ctx, APIKey("withdraw", "u1"), rule)
	assert.True(t, d.Allowed)
	d, _ = m.Allow(ctx, InvestKey("u1"), rule)
	assert.True(t, d.Allowed)
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rule := Rule{Name: "test", Max: 1, Window: time.Hour}

	_, _ = m.Allow(ctx, "k", rule)
	d, _ := m.Allow(ctx, "k", rule)
	require.False(t, d.Allowed)

	require.NoError(t, m.Reset(ctx, "k"))
	d, _ = m.Allow(ctx, "k", rule)
	assert.True(t, d.Allowed)
}

func TestMemory_CleanupAndBound(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	m := NewMemory(WithClock(c.now), WithShards(1), WithMaxKeysPerShard(3))
	ctx := context.Background()
	rule := Rule{Name: "test", Max: 5, Window: time.Minute}

	for i := 0; i < 3; i++ {
		_, _ = m.Allow(ctx, fmt.Sprintf("k%d", i), rule)
		c.t = c.t.Add(time.Second)
	}
	assert.Equal(t, 3, m.Len())

	// full shard evicts the entry closest to reset
	_, _ = m.Allow(ctx, "k3", rule)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, time.Duration(0), m.TimeUntilReset("k0"))
	assert.NotZero(t, m.TimeUntilReset("k3"))

	c.t = c.t.Add(2 * time.Minute)
	assert.Equal(t, 3, m.Cleanup())
	assert.Equal(t, 0, m.Len())
}

func TestMemory_RunStopsWithContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedis_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := NewRedis(client, "rl", logger.NewNoOpLogger())
	ctx := context.Background()
	rule := Rule{Name: "invest", Max: 2, Window: time.Minute}
	key := InvestKey("investor-1")

	d, err := r.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Minute, d.ResetIn)

	d, err = r.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = r.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	wait, err := r.TimeUntilReset(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, wait)

	mr.FastForward(time.Minute)
	d, err = r.Allow(ctx, key, rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, r.Reset(ctx, key))
	assert.False(t, mr.Exists("rl:"+key))
}

func TestRedis_RestoresLostExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, mr.Set("rl:k", "3"))

	r := NewRedis(client, "rl", logger.NewNoOpLogger())
	d, err := r.Allow(context.Background(), "k", Rule{Name: "t", Max: 10, Window: time.Minute})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 6, d.Remaining)
	assert.Equal(t, time.Minute, mr.TTL("rl:k"))
}

func TestRedis_BackendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectIncr("rl:k").SetErr(fmt.Errorf("connection refused"))

	r := NewRedis(db, "rl", logger.NewNoOpLogger())
	_, err := r.Allow(context.Background(), "k", Rule{Name: "t", Max: 1, Window: time.Minute})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDependency, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvestRuleDefaults(t *testing.T) {
	r := InvestRule(0, 0)
	assert.Equal(t, 10, r.Max)
	assert.Equal(t, time.Minute, r.Window)
	assert.Equal(t, "invest", r.Name)
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{1500 * time.Millisecond, "2 seconds"},
		{59 * time.Second, "59 seconds"},
		{60 * time.Second, "1 minute"},
		{61 * time.Second, "2 minutes"},
		{15 * time.Minute, "15 minutes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWait(tt.in), tt.in.String())
	}
}
