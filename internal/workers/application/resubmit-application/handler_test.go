package resubmitapplication

import (
	"context"
	"testing"
	"time"

	"financing-workers/internal/approval"
	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, store.Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	s := store.NewRedisStore(client, "test", time.Second, log)
	svc := approval.NewService(s, nil, nil, approval.Config{}, log)
	return NewHandler(LoadConfig(), svc, log), s
}

func seedApplication(t *testing.T, s store.Store, status models.ApplicationStatus, allowResubmit *bool) {
	app := models.Application{
		ID:                      "app-001",
		BusinessID:              "biz-001",
		BusinessName:            "Kano Agro Ltd",
		RequestedAmount:         decimal.NewFromInt(2_000_000),
		ContractType:            models.ContractMurabaha,
		Status:                  status,
		RejectionReason:         "Incomplete financials",
		RejectionAllowsResubmit: allowResubmit,
		SubmittedAt:             time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	_, err := s.Set(context.Background(), models.CollectionApplications, app.ID, app, 0)
	require.NoError(t, err)
}

func TestHandler_Execute_Resubmits(t *testing.T) {
	h, s := newTestHandler(t)
	seedApplication(t, s, models.StatusRejected, models.Bool(true))

	output, err := h.Execute(context.Background(), &Input{ApplicationID: "app-001", BusinessID: "biz-001"})
	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Equal(t, "rejected", output.PreviousStatus)
	assert.Equal(t, "pending", output.Status)

	var app models.Application
	_, err = store.Load(context.Background(), s, models.CollectionApplications, "app-001", &app)
	require.NoError(t, err)
	assert.Equal(t, 1, app.ResubmissionCount)
	assert.Empty(t, app.RejectionReason)
}

func TestHandler_Execute_Refusals(t *testing.T) {
	tests := []struct {
		name          string
		status        models.ApplicationStatus
		allowResubmit *bool
		businessID    string
		code          string
	}{
		{"permanent rejection", models.StatusRejected, models.Bool(false), "biz-001", "INVALID_STATUS_TRANSITION"},
		{"under review", models.StatusReview, nil, "biz-001", "INVALID_STATUS_TRANSITION"},
		{"someone else's application", models.StatusMoreInfo, nil, "biz-999", "PERMISSION_DENIED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s := newTestHandler(t)
			seedApplication(t, s, tt.status, tt.allowResubmit)

			output, err := h.Execute(context.Background(), &Input{ApplicationID: "app-001", BusinessID: tt.businessID})
			require.NoError(t, err)
			assert.False(t, output.Success)
			assert.Equal(t, tt.code, output.ErrorCode)
		})
	}
}

func TestHandler_Execute_UnknownTarget(t *testing.T) {
	h, s := newTestHandler(t)
	seedApplication(t, s, models.StatusMoreInfo, nil)

	_, err := h.Execute(context.Background(), &Input{ApplicationID: "app-001", BusinessID: "biz-001", TargetStatus: "archived"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestHandler_Execute_AdminTargetsRefused(t *testing.T) {
	for _, target := range []string{"approved", "review", "rejected"} {
		t.Run(target, func(t *testing.T) {
			h, s := newTestHandler(t)
			seedApplication(t, s, models.StatusReview, nil)

			output, err := h.Execute(context.Background(), &Input{ApplicationID: "app-001", BusinessID: "biz-001", TargetStatus: target})
			require.NoError(t, err)
			assert.False(t, output.Success)
			assert.Equal(t, "INVALID_STATUS_TRANSITION", output.ErrorCode)

			var app models.Application
			_, err = store.Load(context.Background(), s, models.CollectionApplications, "app-001", &app)
			require.NoError(t, err)
			assert.Equal(t, models.StatusReview, app.Status)
		})
	}
}
