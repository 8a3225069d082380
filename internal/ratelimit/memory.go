package ratelimit

import (
	"context"
	"sync"
	"time"

	"financing-workers/internal/common/metrics"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultShards          = 16
	DefaultMaxKeysPerShard = 4096
)

type entry struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Memory keeps counters in a sharded map. Each shard holds at most
// maxKeys entries; when full, expired entries are dropped first and then
// the entry closest to its reset.
type Memory struct {
	shards  []*shard
	maxKeys int
	now     func() time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func WithShards(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.shards = make([]*shard, n)
		}
	}
}

func WithMaxKeysPerShard(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxKeys = n
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		shards:  make([]*shard, DefaultShards),
		maxKeys: DefaultMaxKeysPerShard,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

// Allow records an attempt for key under rule.
func (m *Memory) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	now := m.now()
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		if !ok && len(s.entries) >= m.maxKeys {
			s.evict(now)
		}
		e = &entry{count: 1, resetAt: now.Add(rule.Window)}
		s.entries[key] = e
		return Decision{Allowed: true, Remaining: rule.Max - 1, ResetIn: rule.Window}, nil
	}

	resetIn := e.resetAt.Sub(now)
	if e.count >= rule.Max {
		metrics.RateLimitRejections.WithLabelValues(rule.Name).Inc()
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}
	e.count++
	return Decision{Allowed: true, Remaining: rule.Max - e.count, ResetIn: resetIn}, nil
}

// evict frees at least one slot. Called with the shard lock held.
func (s *shard) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	freed := false
	for k, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, k)
			freed = true
			continue
		}
		if oldestKey == "" || e.resetAt.Before(oldest) {
			oldestKey, oldest = k, e.resetAt
		}
	}
	if !freed && oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// Remaining is how many attempts key has left under max.
func (m *Memory) Remaining(key string, max int) int {
	now := m.now()
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		return max
	}
	if left := max - e.count; left > 0 {
		return left
	}
	return 0
}

// TimeUntilReset is zero for unknown or expired keys.
func (m *Memory) TimeUntilReset(key string) time.Duration {
	now := m.now()
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		return 0
	}
	return e.resetAt.Sub(now)
}

func (m *Memory) Reset(_ context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Cleanup drops expired entries and returns how many were removed.
func (m *Memory) Cleanup() int {
	now := m.now()
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !now.Before(e.resetAt) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// Len is the number of tracked keys.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
