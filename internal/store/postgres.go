package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
)

const backendPostgres = "postgres"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	key TEXT NOT NULL,
	data JSONB NOT NULL,
	version BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, key)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops);
`

const (
	queryGet = `SELECT data, version FROM documents WHERE collection = $1 AND key = $2`

	queryCreate = `INSERT INTO documents (collection, key, data, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (collection, key) DO NOTHING`

	queryCompareAndSet = `UPDATE documents SET data = $3, version = version + 1, updated_at = NOW()
		WHERE collection = $1 AND key = $2 AND version = $4`

	queryUpsert = `INSERT INTO documents (collection, key, data, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1, updated_at = NOW()
		RETURNING version`

	queryList = `SELECT key, data, version FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY key`
)

// PostgresStore keeps documents in a single JSONB table.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
	log     logger.Logger
}

func NewPostgresStore(db *sql.DB, timeout time.Duration, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:      db,
		timeout: timeout,
		log:     log.WithFields(map[string]interface{}{"component": "store", "backend": backendPostgres}),
	}
}

// Migrate creates the documents table if it is missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return classify(backendPostgres, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		data    []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, queryGet, collection, key).Scan(&data, &version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(collection, key)
	}
	if err != nil {
		return nil, classify(backendPostgres, err)
	}
	return &Document{Key: key, Data: data, Version: version}, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, key string, data interface{}, expectedVersion int64) (int64, error) {
	if err := checkVersion(expectedVersion); err != nil {
		return 0, err
	}
	payload, err := encode(data)
	if err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	switch {
	case expectedVersion == AnyVersion:
		var version int64
		if err := s.db.QueryRowContext(ctx, queryUpsert, collection, key, string(payload)).Scan(&version); err != nil {
			return 0, classify(backendPostgres, err)
		}
		return version, nil

	case expectedVersion == 0:
		res, err := s.db.ExecContext(ctx, queryCreate, collection, key, string(payload))
		if err != nil {
			return 0, classify(backendPostgres, err)
		}
		if err := s.expectOneRow(res, collection, key); err != nil {
			return 0, err
		}
		return 1, nil

	default:
		res, err := s.db.ExecContext(ctx, queryCompareAndSet, collection, key, string(payload), expectedVersion)
		if err != nil {
			return 0, classify(backendPostgres, err)
		}
		if err := s.expectOneRow(res, collection, key); err != nil {
			return 0, err
		}
		return expectedVersion + 1, nil
	}
}

func (s *PostgresStore) expectOneRow(res sql.Result, collection, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(backendPostgres, err)
	}
	if n == 0 {
		s.log.Debug("conditional write rejected", map[string]interface{}{
			"collection": collection,
			"key":        key,
		})
		return conflict(collection, key)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if filter == nil {
		filter = Filter{}
	}
	containment, err := json.Marshal(filter)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "Invalid filter", err.Error())
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryList, collection, string(containment))
	if err != nil {
		return nil, classify(backendPostgres, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.Key, &data, &d.Version); err != nil {
			return nil, classify(backendPostgres, err)
		}
		d.Data = data
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(backendPostgres, err)
	}
	return docs, nil
}
