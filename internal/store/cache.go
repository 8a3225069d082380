package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTimeout bounds a single cache call when none is configured.
const DefaultCacheTimeout = 250 * time.Millisecond

// CachedStore is a read-through Redis cache in front of another Store for a
// fixed set of collections. Writes go to the inner store first and then drop
// the cached entry. Cache failures never fail a call, and each cache call is
// bounded by its own timeout so a slow cache cannot hold up the inner store.
type CachedStore struct {
	inner       Store
	cache       redis.Cmdable
	prefix      string
	ttl         time.Duration
	timeout     time.Duration
	collections map[string]bool
	log         logger.Logger
}

func NewCachedStore(inner Store, cache redis.Cmdable, prefix string, ttl, timeout time.Duration, collections []string, log logger.Logger) *CachedStore {
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	if timeout <= 0 {
		timeout = DefaultCacheTimeout
	}
	return &CachedStore{
		inner:       inner,
		cache:       cache,
		prefix:      prefix,
		ttl:         ttl,
		timeout:     timeout,
		collections: set,
		log:         log.WithFields(map[string]interface{}{"component": "store-cache"}),
	}
}

func (s *CachedStore) cacheKey(collection, key string) string {
	return fmt.Sprintf("%s:cache:%s:%s", s.prefix, collection, key)
}

func (s *CachedStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	if !s.collections[collection] {
		return s.inner.Get(ctx, collection, key)
	}

	ck := s.cacheKey(collection, key)
	raw, err := s.cacheGet(ctx, ck)
	switch {
	case err == nil:
		var doc Document
		if jerr := json.Unmarshal(raw, &doc); jerr == nil {
			metrics.StoreCacheLookups.WithLabelValues(collection, "hit").Inc()
			return &doc, nil
		}
	case !stderrors.Is(err, redis.Nil):
		s.log.Warn("cache read failed", map[string]interface{}{"key": ck, "error": err.Error()})
	}
	metrics.StoreCacheLookups.WithLabelValues(collection, "miss").Inc()

	doc, err := s.inner.Get(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	if b, jerr := json.Marshal(doc); jerr == nil {
		if cerr := s.cacheSet(ctx, ck, b); cerr != nil {
			s.log.Warn("cache fill failed", map[string]interface{}{"key": ck, "error": cerr.Error()})
		}
	}
	return doc, nil
}

func (s *CachedStore) Set(ctx context.Context, collection, key string, data interface{}, expectedVersion int64) (int64, error) {
	version, err := s.inner.Set(ctx, collection, key, data, expectedVersion)
	if s.collections[collection] {
		// a conflict also means the cached copy may be stale
		ck := s.cacheKey(collection, key)
		if derr := s.cacheDel(ctx, ck); derr != nil {
			s.log.Warn("cache invalidation failed", map[string]interface{}{"key": ck, "error": derr.Error()})
		}
	}
	return version, err
}

func (s *CachedStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	return s.inner.List(ctx, collection, filter)
}

func (s *CachedStore) cacheGet(ctx context.Context, ck string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.cache.Get(ctx, ck).Bytes()
}

func (s *CachedStore) cacheSet(ctx context.Context, ck string, b []byte) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.cache.Set(ctx, ck, b, s.ttl).Err()
}

func (s *CachedStore) cacheDel(ctx context.Context, ck string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.cache.Del(ctx, ck).Err()
}
