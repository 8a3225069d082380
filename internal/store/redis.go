package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"financing-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"

	fieldData    = "data"
	fieldVersion = "version"

	maxUpsertAttempts = 3
)

// RedisStore keeps each document in a hash with data and version fields and
// tracks collection membership in a set.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	log     logger.Logger
}

func NewRedisStore(client *redis.Client, prefix string, timeout time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
		log:     log.WithFields(map[string]interface{}{"component": "store", "backend": backendRedis}),
	}
}

func (s *RedisStore) docKey(collection, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, collection, key)
}

func (s *RedisStore) indexKey(collection string) string {
	return fmt.Sprintf("%s:idx:%s", s.prefix, collection)
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.docKey(collection, key)).Result()
	if err != nil {
		return nil, classify(backendRedis, err)
	}
	return toDocument(collection, key, fields)
}

func toDocument(collection, key string, fields map[string]string) (*Document, error) {
	data, ok := fields[fieldData]
	if !ok {
		return nil, notFound(collection, key)
	}
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return nil, classify(backendRedis, fmt.Errorf("corrupt version on %s/%s: %w", collection, key, err))
	}
	return &Document{Key: key, Data: []byte(data), Version: version}, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, data interface{}, expectedVersion int64) (int64, error) {
	if err := checkVersion(expectedVersion); err != nil {
		return 0, err
	}
	payload, err := encode(data)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	docKey := s.docKey(collection, key)
	var next int64

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, docKey, fieldVersion).Int64()
		if stderrors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if expectedVersion != AnyVersion && current != expectedVersion {
			return ErrConflict
		}
		next = current + 1

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, docKey, fieldData, string(payload), fieldVersion, next)
			pipe.SAdd(ctx, s.indexKey(collection), key)
			return nil
		})
		return err
	}

	attempts := 1
	if expectedVersion == AnyVersion {
		attempts = maxUpsertAttempts
	}
	for i := 0; i < attempts; i++ {
		err = s.client.Watch(ctx, txf, docKey)
		if !stderrors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil:
		return next, nil
	case stderrors.Is(err, ErrConflict), stderrors.Is(err, redis.TxFailedErr):
		s.log.Debug("conditional write rejected", map[string]interface{}{
			"collection":      collection,
			"key":             key,
			"expectedVersion": expectedVersion,
		})
		return 0, conflict(collection, key)
	default:
		return 0, classify(backendRedis, err)
	}
}

func (s *RedisStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	keys, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, classify(backendRedis, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, k))
		}
		return nil
	})
	if err != nil {
		return nil, classify(backendRedis, err)
	}

	var docs []Document
	for i, cmd := range cmds {
		doc, err := toDocument(collection, keys[i], cmd.Val())
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ok, err := matches(doc.Data, filter)
		if err != nil {
			return nil, classify(backendRedis, err)
		}
		if ok {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}
