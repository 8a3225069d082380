package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"financing-workers/internal/common/config"
	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

type recorderCall struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	processed []recorderCall
	durations int
}

func (f *fakeRecorder) RecordJobProcessed(_ context.Context, taskType, status string) {
	f.processed = append(f.processed, recorderCall{taskType, status})
}

func (f *fakeRecorder) RecordJobDuration(context.Context, string, time.Duration, string) {
	f.durations++
}

func TestCamundaWorker_HandleRecordsOutcome(t *testing.T) {
	rec := &fakeRecorder{}
	called := false
	w := NewWorker(nil, "validate-status-transition", config.WorkerConfig{Enabled: true}, func(worker.JobClient, entities.Job) {
		called = true
	}, rec, logger.NewTestLogger(t))

	w.Handle(nil, entities.Job{})

	assert.True(t, called)
	assert.Equal(t, []recorderCall{{"validate-status-transition", outcomeNone}}, rec.processed)
	assert.Equal(t, 1, rec.durations)
}

func TestCamundaWorker_DisabledDoesNotOpen(t *testing.T) {
	w := NewWorker(nil, "distribute-profit", config.WorkerConfig{Enabled: false}, nil, nil, logger.NewNoOpLogger())
	w.Start()
	w.Stop()
	assert.Nil(t, w.worker)
}

func TestRetryConfig_Delay(t *testing.T) {
	r := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, r.Delay(0))
	assert.Equal(t, 2*time.Second, r.Delay(1))
	assert.Equal(t, 4*time.Second, r.Delay(2))
	assert.Equal(t, 5*time.Second, r.Delay(3))
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		err  error
		code apperrors.ErrorCode
		kind apperrors.Kind
	}{
		{errors.New("rpc error: code = DeadlineExceeded desc = deadline exceeded"), apperrors.ErrCodeTimeout, apperrors.KindDependency},
		{errors.New("rpc error: code = Unavailable desc = connection refused"), apperrors.ErrCodeExternalService, apperrors.KindDependency},
		{errors.New("rpc error: code = NotFound desc = job not found"), apperrors.ErrCodeExternalService, apperrors.KindState},
	}
	for _, tt := range tests {
		stdErr, ok := apperrors.As(mapZeebeError(tt.err, "complete", 1))
		if assert.True(t, ok, tt.err.Error()) {
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.kind, stdErr.Kind)
		}
	}
	assert.True(t, isRetryableZeebeError(errors.New("Unavailable: broker unreachable")))
	assert.False(t, isRetryableZeebeError(errors.New("invalid argument")))
}
