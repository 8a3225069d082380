package reassignreviewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"financing-workers/internal/assignment"
	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockReassigner struct {
	ReassignFunc func(ctx context.Context, req assignment.ReassignRequest) (*models.Assignment, error)
	HistoryFunc  func(ctx context.Context, applicationID string) ([]models.AssignmentHistory, error)
}

func (m *MockReassigner) Reassign(ctx context.Context, req assignment.ReassignRequest) (*models.Assignment, error) {
	return m.ReassignFunc(ctx, req)
}

func (m *MockReassigner) History(ctx context.Context, applicationID string) ([]models.AssignmentHistory, error) {
	if m.HistoryFunc == nil {
		return nil, nil
	}
	return m.HistoryFunc(ctx, applicationID)
}

var now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, r Reassigner) *Handler {
	h := NewHandler(LoadConfig(), r, logger.NewTestLogger(t))
	h.now = func() time.Time { return now }
	return h
}

func TestHandler_Execute_Reassigns(t *testing.T) {
	r := &MockReassigner{
		ReassignFunc: func(_ context.Context, req assignment.ReassignRequest) (*models.Assignment, error) {
			assert.Equal(t, "mgr-1", req.PerformedBy)
			assert.Equal(t, "On leave", req.Reason)
			return &models.Assignment{
				ID: "asg-1", ApplicationID: req.ApplicationID, AssignedTo: req.ToAdminID,
				Status: models.AssignmentPending, DueDate: now.Add(-time.Hour),
			}, nil
		},
		HistoryFunc: func(context.Context, string) ([]models.AssignmentHistory, error) {
			return []models.AssignmentHistory{
				{Action: models.HistoryAssigned, ToAdminID: "rev-1"},
				{Action: models.HistoryReassigned, FromAdminID: "rev-1", ToAdminID: "rev-2"},
			}, nil
		},
	}

	output, err := newTestHandler(t, r).Execute(context.Background(), &Input{
		ApplicationID: "app-001", ToAdminID: "rev-2", PerformedBy: "mgr-1", Reason: "On leave",
	})

	require.NoError(t, err)
	assert.True(t, output.Reassigned)
	assert.Equal(t, "rev-2", output.ReviewerID)
	assert.Equal(t, "rev-1", output.PreviousReviewerID)
	assert.Equal(t, 2, output.HistoryCount)
	assert.Equal(t, "overdue", output.SLAState)
}

func TestHandler_Execute_RefusalCompletesJob(t *testing.T) {
	r := &MockReassigner{
		ReassignFunc: func(context.Context, assignment.ReassignRequest) (*models.Assignment, error) {
			return nil, apperrors.NewStateError(apperrors.ErrCodePermissionDenied, "You do not have permission to reassign reviews")
		},
	}

	output, err := newTestHandler(t, r).Execute(context.Background(), &Input{ApplicationID: "app-001", ToAdminID: "rev-2", PerformedBy: "rev-1"})

	require.NoError(t, err)
	assert.False(t, output.Reassigned)
	assert.Equal(t, string(apperrors.ErrCodePermissionDenied), output.ErrorCode)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("same reviewer", func(t *testing.T) {
		r := &MockReassigner{
			ReassignFunc: func(context.Context, assignment.ReassignRequest) (*models.Assignment, error) {
				return nil, apperrors.NewValidationError(apperrors.ErrCodeValidationFailed, assignment.MsgSameReviewer, "rev-2")
			},
		}
		_, err := newTestHandler(t, r).Execute(context.Background(), &Input{ApplicationID: "app-001", ToAdminID: "rev-2", PerformedBy: "mgr-1"})
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("history failure keeps the result", func(t *testing.T) {
		r := &MockReassigner{
			ReassignFunc: func(_ context.Context, req assignment.ReassignRequest) (*models.Assignment, error) {
				return &models.Assignment{ID: "asg-1", AssignedTo: req.ToAdminID, DueDate: now.Add(48 * time.Hour)}, nil
			},
			HistoryFunc: func(context.Context, string) ([]models.AssignmentHistory, error) {
				return nil, errors.New("connection reset")
			},
		}
		output, err := newTestHandler(t, r).Execute(context.Background(), &Input{ApplicationID: "app-001", ToAdminID: "rev-2", PerformedBy: "mgr-1"})
		require.NoError(t, err)
		assert.True(t, output.Reassigned)
		assert.Equal(t, "on_time", output.SLAState)
		assert.Zero(t, output.HistoryCount)
	})
}

func TestHandler_Execute_MovesWorkload(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	st := store.NewRedisStore(client, "test", time.Second, logger.NewNoOpLogger())

	seed := func(p models.AdminProfile) {
		p.Name = p.ID
		p.IsActive = true
		_, err := st.Set(ctx, models.CollectionAdminProfiles, p.ID, p, 0)
		require.NoError(t, err)
	}
	seed(models.AdminProfile{ID: "mgr-1", Role: models.RoleManager})
	seed(models.AdminProfile{ID: "rev-1", Role: models.RoleReviewer, CurrentWorkload: 1})
	seed(models.AdminProfile{ID: "rev-2", Role: models.RoleReviewer})
	_, err := st.Set(ctx, models.CollectionAssignments, "app-001", models.Assignment{
		ID: "asg-1", ApplicationID: "app-001", AssignedTo: "rev-1", AssignedBy: "system",
		Status: models.AssignmentPending, Priority: models.PriorityMedium, DueDate: now.Add(72 * time.Hour),
	}, 0)
	require.NoError(t, err)

	svc := assignment.NewService(st, nil, logger.NewNoOpLogger(), assignment.WithClock(func() time.Time { return now }))
	output, err := newTestHandler(t, svc).Execute(ctx, &Input{
		ApplicationID: "app-001", ToAdminID: "rev-2", PerformedBy: "mgr-1", Reason: "Rebalancing",
	})
	require.NoError(t, err)
	require.True(t, output.Reassigned, output.Message)
	assert.Equal(t, "rev-1", output.PreviousReviewerID)
	assert.Equal(t, 1, output.HistoryCount)

	workload := func(id string) int {
		var p models.AdminProfile
		_, err := store.Load(ctx, st, models.CollectionAdminProfiles, id, &p)
		require.NoError(t, err)
		return p.CurrentWorkload
	}
	assert.Equal(t, 0, workload("rev-1"))
	assert.Equal(t, 1, workload("rev-2"))
}
