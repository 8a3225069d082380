package searchauditlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financing-workers/internal/audit"
	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/ratelimit"
	"financing-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSearcher struct {
	SearchFunc func(ctx context.Context, q audit.Query) (*audit.SearchResult, error)
}

func (m *MockSearcher) Search(ctx context.Context, q audit.Query) (*audit.SearchResult, error) {
	return m.SearchFunc(ctx, q)
}

type recordingSink struct {
	mu      sync.Mutex
	actions []models.AdminAction
}

func (r *recordingSink) Record(_ context.Context, a models.AdminAction) error {
	r.mu.Lock()
	r.actions = append(r.actions, a)
	r.mu.Unlock()
	return nil
}

var now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	st := store.NewRedisStore(client, "test", time.Second, logger.NewNoOpLogger())

	for id, role := range map[string]models.Role{"apr-1": models.RoleApprover, "rev-1": models.RoleReviewer} {
		_, err := st.Set(context.Background(), models.CollectionAdminProfiles, id, models.AdminProfile{
			ID: id, Name: id, Role: role, IsActive: true,
		}, 0)
		require.NoError(t, err)
	}
	_, err := st.Set(context.Background(), models.CollectionAdminProfiles, "apr-2", models.AdminProfile{
		ID: "apr-2", Name: "apr-2", Role: models.RoleApprover, IsActive: false,
	}, 0)
	require.NoError(t, err)
	return st
}

func TestHandler_Execute_Searches(t *testing.T) {
	since := now.Add(-24 * time.Hour)
	searcher := &MockSearcher{
		SearchFunc: func(_ context.Context, q audit.Query) (*audit.SearchResult, error) {
			assert.Equal(t, "rev-1", q.AdminID)
			assert.Equal(t, models.ActionRejectApplication, q.Action)
			assert.Equal(t, since, q.Since)
			assert.True(t, q.Until.IsZero())
			assert.Equal(t, 10, q.Size)
			return &audit.SearchResult{Total: 1, Actions: []models.AdminAction{
				{ID: "act-1", AdminID: "rev-1", Action: models.ActionRejectApplication, ResourceID: "app-1"},
			}}, nil
		},
	}
	sink := &recordingSink{}
	h := NewHandler(LoadConfig(), searcher, newStore(t), ratelimit.NewMemory(), sink, logger.NewTestLogger(t))
	h.now = func() time.Time { return now }

	output, err := h.Execute(context.Background(), &Input{
		AdminID: "apr-1", ActorID: "rev-1", Action: string(models.ActionRejectApplication), Since: &since, Size: 10,
	})

	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Equal(t, int64(1), output.Total)
	require.Len(t, output.Actions, 1)
	assert.Equal(t, "act-1", output.Actions[0].ID)

	require.Len(t, sink.actions, 1)
	assert.Equal(t, models.ActionAccessAuditLogs, sink.actions[0].Action)
	assert.Equal(t, "apr-1", sink.actions[0].AdminID)
	assert.Equal(t, "rev-1", sink.actions[0].Details["actorId"])
}

func TestHandler_Execute_Refusals(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(context.Context, audit.Query) (*audit.SearchResult, error) {
			t.Fatal("search must not run")
			return nil, nil
		},
	}
	st := newStore(t)

	tests := []struct {
		name    string
		adminID string
		code    apperrors.ErrorCode
		message string
	}{
		{"unknown admin", "ghost", apperrors.ErrCodeAdminNotFound, MsgAdminNotFound},
		{"inactive admin", "apr-2", apperrors.ErrCodePermissionDenied, MsgAdminInactive},
		{"reviewer lacks access", "rev-1", apperrors.ErrCodePermissionDenied, MsgNotPermitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), searcher, st, nil, nil, logger.NewTestLogger(t))
			output, err := h.Execute(context.Background(), &Input{AdminID: tt.adminID})
			require.NoError(t, err)
			assert.False(t, output.Success)
			assert.Equal(t, string(tt.code), output.ErrorCode)
			assert.Equal(t, tt.message, output.Message)
		})
	}
}

func TestHandler_Execute_RateLimited(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(context.Context, audit.Query) (*audit.SearchResult, error) {
			return &audit.SearchResult{}, nil
		},
	}
	limiter := ratelimit.NewMemory(ratelimit.WithClock(func() time.Time { return now }))
	config := LoadConfig()
	config.Rule = ratelimit.Rule{Name: "api", Max: 2, Window: time.Minute}
	h := NewHandler(config, searcher, newStore(t), limiter, nil, logger.NewTestLogger(t))

	for i := 0; i < 2; i++ {
		output, err := h.Execute(context.Background(), &Input{AdminID: "apr-1"})
		require.NoError(t, err)
		require.True(t, output.Success)
	}

	output, err := h.Execute(context.Background(), &Input{AdminID: "apr-1"})
	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Equal(t, string(apperrors.ErrCodeRateLimited), output.ErrorCode)
	assert.Equal(t, "Too many audit searches. Try again in 1 minute.", output.Message)
	assert.Equal(t, 60, output.RetryAfterSeconds)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("inverted range", func(t *testing.T) {
		h := NewHandler(LoadConfig(), &MockSearcher{}, newStore(t), nil, nil, logger.NewTestLogger(t))
		since, until := now, now.Add(-time.Hour)
		_, err := h.Execute(context.Background(), &Input{AdminID: "apr-1", Since: &since, Until: &until})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("cluster unavailable", func(t *testing.T) {
		searcher := &MockSearcher{
			SearchFunc: func(context.Context, audit.Query) (*audit.SearchResult, error) {
				return nil, apperrors.NewDependencyError(apperrors.ErrCodeExternalService, "elasticsearch", errors.New("503 Service Unavailable"))
			},
		}
		sink := &recordingSink{}
		h := NewHandler(LoadConfig(), searcher, newStore(t), nil, sink, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), &Input{AdminID: "apr-1"})
		assert.Equal(t, apperrors.KindDependency, apperrors.KindOf(err))
		assert.Empty(t, sink.actions)
	})
}
