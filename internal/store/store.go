// Package store is a versioned document store. Every document carries a
// monotonically increasing version used for compare-and-set writes.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/metrics"
)

var (
	ErrNotFound = stderrors.New("document not found")
	ErrConflict = stderrors.New("version conflict")
)

// AnyVersion makes Set an unconditional upsert.
const AnyVersion int64 = -1

// DefaultTimeout bounds a single store call when none is configured.
const DefaultTimeout = 5 * time.Second

// Document is a stored JSON value with its version.
type Document struct {
	Key     string          `json:"key"`
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version"`
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v interface{}) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Key, err)
	}
	return nil
}

// Filter matches documents whose top-level fields equal the given values.
type Filter map[string]interface{}

// Store is implemented by every backend.
//
// Set semantics by expectedVersion:
//   - 0 creates the document and fails with a conflict if it exists
//   - n > 0 replaces it only if the stored version is n
//   - AnyVersion writes unconditionally
//
// Set returns the new version.
type Store interface {
	Get(ctx context.Context, collection, key string) (*Document, error)
	Set(ctx context.Context, collection, key string, data interface{}, expectedVersion int64) (int64, error)
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Load fetches and decodes a document, returning its version.
func Load(ctx context.Context, s Store, collection, key string, v interface{}) (int64, error) {
	doc, err := s.Get(ctx, collection, key)
	if err != nil {
		return 0, err
	}
	if err := doc.Decode(v); err != nil {
		return 0, errors.NewInternalError(err)
	}
	return doc.Version, nil
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a failed conditional write.
func IsConflict(err error) bool {
	return stderrors.Is(err, ErrConflict)
}

func notFound(collection, key string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
}

func conflict(collection, key string) error {
	metrics.StoreConflicts.WithLabelValues(collection).Inc()
	return errors.NewConflictError(collection+"/"+key, ErrConflict)
}

func encode(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "Document is not serializable", err.Error())
	}
	return b, nil
}

func checkVersion(expected int64) error {
	if expected < AnyVersion {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "Invalid expected version", fmt.Sprintf("%d", expected))
	}
	return nil
}

// classify turns a backend failure into a typed dependency error.
// Deadline overruns are reported as store timeouts.
func classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	code := errors.ErrCodeStoreUnavailable
	if stderrors.Is(err, context.DeadlineExceeded) {
		code = errors.ErrCodeStoreTimeout
	}
	metrics.StoreErrors.WithLabelValues(backend, string(code)).Inc()
	return errors.NewDependencyError(code, backend, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// matches reports whether every filter field equals the same field of body.
func matches(body json.RawMessage, filter Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}
	for name, want := range filter {
		got, ok := fields[name]
		if !ok {
			return false, nil
		}
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return false, err
		}
		var a, b interface{}
		if err := json.Unmarshal(got, &a); err != nil {
			return false, err
		}
		if err := json.Unmarshal(wantJSON, &b); err != nil {
			return false, err
		}
		if !equalJSON(a, b) {
			return false, nil
		}
	}
	return true, nil
}

func equalJSON(a, b interface{}) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
