package validatestatustransition

import (
	"context"
	"testing"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "pending to review",
			input: &Input{CurrentStatus: "pending", ProposedStatus: "review"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, output.Valid)
				assert.Equal(t, "Under Review", output.StatusLabel)
				assert.Equal(t, []string{"review", "rejected", "more-info"}, output.ValidNextStatuses)
				assert.False(t, output.IsTerminal)
			},
		},
		{
			name:  "pending straight to approved",
			input: &Input{CurrentStatus: "pending", ProposedStatus: "approved"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.False(t, output.Valid)
				assert.Contains(t, output.Error, "Allowed transitions: review, rejected, more-info")
			},
		},
		{
			name: "approval without documents",
			input: &Input{
				CurrentStatus:        "review",
				ProposedStatus:       "approved",
				HasRequiredDocuments: models.Bool(false),
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.False(t, output.Valid)
				assert.Equal(t, "Cannot approve: required documents not submitted", output.Error)
			},
		},
		{
			name:  "same status warns",
			input: &Input{CurrentStatus: "review", ProposedStatus: "review"},
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, output.Valid)
				assert.Equal(t, "Status unchanged", output.Warning)
			},
		},
		{
			name:  "business resubmission",
			input: &Input{CurrentStatus: "rejected", ProposedStatus: "pending", Actor: ActorBusiness},
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, output.Valid)
				assert.True(t, output.IsResubmission)
				assert.True(t, output.RequiresBusinessAction)
			},
		},
		{
			name: "permanent rejection is terminal",
			input: &Input{
				CurrentStatus:           "rejected",
				ProposedStatus:          "review",
				RejectionAllowsResubmit: models.Bool(false),
			},
			validateOutput: func(t *testing.T, output *Output) {
				assert.False(t, output.Valid)
				assert.True(t, output.IsTerminal)
				assert.Empty(t, output.ValidNextStatuses)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := newTestHandler(t).Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, output)
		})
	}
}

func TestHandler_Execute_UnknownStatus(t *testing.T) {
	_, err := newTestHandler(t).Execute(context.Background(), &Input{CurrentStatus: "archived", ProposedStatus: "review"})
	require.Error(t, err)

	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidStatus, stdErr.Code)
	assert.Equal(t, apperrors.KindValidation, stdErr.Kind)
}
