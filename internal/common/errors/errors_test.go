package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_KindsAndRetry(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		kind      Kind
		retryable bool
		retries   int
	}{
		{"validation", NewValidationError(ErrCodeInvalidContractType, "Unsupported contract type", "salam"), KindValidation, false, 0},
		{"state", NewStateError(ErrCodeInsufficientBalance, "Insufficient balance"), KindState, false, 0},
		{"conflict", NewConflictError("wallets/u1", nil), KindConflict, true, 3},
		{"timeout", NewDependencyError(ErrCodeStoreTimeout, "store", context.DeadlineExceeded), KindDependency, true, 2},
		{"unavailable", NewDependencyError(ErrCodeStoreUnavailable, "store", fmt.Errorf("dial tcp")), KindDependency, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.retries, ConvertToBPMNError(tt.err).Retries)
		})
	}
}

func TestStandardError_PublicMessageHidesDependencyDetail(t *testing.T) {
	err := NewDependencyError(ErrCodeStoreUnavailable, "postgres", fmt.Errorf("password authentication failed for user admin"))

	assert.Equal(t, genericPublicMessage, err.PublicMessage())
	assert.Contains(t, err.Details, "password authentication failed")

	bpmn := ConvertToBPMNError(err)
	assert.Equal(t, genericPublicMessage, bpmn.Message)
	assert.NotContains(t, bpmn.Message, "password")
}

func TestStandardError_UnwrapAndAs(t *testing.T) {
	cause := context.DeadlineExceeded
	wrapped := fmt.Errorf("loading wallet: %w", NewTimeoutError("store", cause))

	stdErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTimeout, stdErr.Code)
	assert.True(t, stderrors.Is(wrapped, context.DeadlineExceeded))
	assert.Equal(t, KindDependency, KindOf(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.True(t, IsConflict(fmt.Errorf("x: %w", NewConflictError("opportunities/o1", nil))))
}

func TestNormalize_PlainError(t *testing.T) {
	stdErr := Normalize(fmt.Errorf("boom"))

	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "boom", stdErr.Details)
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	bpmn := ConvertToBPMNError(NewConflictError("wallets/u1", nil))
	vars := bpmn.ToErrorVariables()

	assert.Equal(t, "VERSION_CONFLICT", vars["errorCode"])
	assert.Equal(t, true, vars["retryable"])
	assert.Equal(t, "conflict", vars["errorKind"])
	assert.Equal(t, "VERSION_CONFLICT", vars["originalErrorCode"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONCURRENCY", GetErrorCategory(ErrCodeVersionConflict))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStoreTimeout))
	assert.Equal(t, "AUTHORIZATION", GetErrorCategory(ErrCodeSeparationOfDuties))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidContractType))
	assert.Equal(t, "SINK", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInsufficientBalance))
}
