package reconcileinvestment

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/investment"
	"financing-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockReconciler struct {
	ReconcileFunc        func(ctx context.Context, investmentID string) (*investment.ReconcileResult, error)
	ReconcilePendingFunc func(ctx context.Context, olderThan time.Duration) (*investment.ReconcileSummary, error)
}

func (m *MockReconciler) Reconcile(ctx context.Context, investmentID string) (*investment.ReconcileResult, error) {
	return m.ReconcileFunc(ctx, investmentID)
}

func (m *MockReconciler) ReconcilePending(ctx context.Context, olderThan time.Duration) (*investment.ReconcileSummary, error) {
	return m.ReconcilePendingFunc(ctx, olderThan)
}

func TestHandler_Execute_Single(t *testing.T) {
	tests := []struct {
		name        string
		result      *investment.ReconcileResult
		err         error
		wantFound   bool
		wantReview  bool
		wantErrKind apperrors.Kind
	}{
		{
			name:      "rolled forward",
			result:    &investment.ReconcileResult{InvestmentID: "i-1", FromStage: models.StageWalletDebited, Stage: models.StageCompleted},
			wantFound: true,
		},
		{
			name:       "needs review",
			result:     &investment.ReconcileResult{InvestmentID: "i-1", FromStage: models.StagePending, Stage: models.StageNeedsReview},
			wantFound:  true,
			wantReview: true,
		},
		{
			name: "unknown investment",
			err:  apperrors.NewStateError(apperrors.ErrCodeInvestmentNotFound, "Investment not found"),
		},
		{
			name:        "store down",
			err:         apperrors.NewDependencyError(apperrors.ErrCodeStoreUnavailable, "postgres", errors.New("connection refused")),
			wantErrKind: apperrors.KindDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &MockReconciler{
				ReconcileFunc: func(_ context.Context, id string) (*investment.ReconcileResult, error) {
					assert.Equal(t, "i-1", id)
					return tt.result, tt.err
				},
			}
			h := NewHandler(LoadConfig(), rec, logger.NewTestLogger(t))

			output, err := h.Execute(context.Background(), &Input{InvestmentID: "i-1"})
			if tt.wantErrKind != "" {
				assert.Equal(t, tt.wantErrKind, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, output.Found)
			assert.Equal(t, tt.wantReview, output.NeedsReview)
			assert.Equal(t, "i-1", output.InvestmentID)
		})
	}
}

func TestHandler_Execute_Sweep(t *testing.T) {
	var gotOlderThan time.Duration
	rec := &MockReconciler{
		ReconcilePendingFunc: func(_ context.Context, olderThan time.Duration) (*investment.ReconcileSummary, error) {
			gotOlderThan = olderThan
			return &investment.ReconcileSummary{
				Examined: 3,
				Failed:   1,
				Outcomes: map[models.JournalStage]int{
					models.StageCompleted:   1,
					models.StageNeedsReview: 1,
				},
			}, nil
		},
	}
	h := NewHandler(LoadConfig(), rec, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, gotOlderThan)
	assert.Equal(t, 3, output.Examined)
	assert.Equal(t, 1, output.Failed)
	assert.Equal(t, map[string]int{"completed": 1, "needs_review": 1}, output.Outcomes)
	assert.True(t, output.NeedsReview)

	_, err = h.Execute(context.Background(), &Input{OlderThanSeconds: 900})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, gotOlderThan)
}
