// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"financing-workers/internal/common/config"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is the signature every worker's Handle method has.
type JobHandler func(client worker.JobClient, job entities.Job)

// Recorder receives one call per finished job.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeThrown    = "bpmn_error"
	outcomeNone      = "unreported"
)

type CamundaWorker struct {
	client   zbc.Client
	worker   worker.JobWorker
	handler  JobHandler
	recorder Recorder
	cfg      config.WorkerConfig
	log      logger.Logger
	taskType string
}

func NewWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler JobHandler,
	recorder Recorder,
	log logger.Logger,
) *CamundaWorker {
	return &CamundaWorker{
		client:   client,
		handler:  handler,
		recorder: recorder,
		cfg:      cfg,
		log:      log.WithFields(map[string]interface{}{"taskType": taskType}),
		taskType: taskType,
	}
}

// Start opens the job worker. A disabled worker is logged and skipped.
func (w *CamundaWorker) Start() {
	if !w.cfg.Enabled {
		w.log.Info("worker disabled", nil)
		return
	}

	w.worker = w.client.NewJobWorker().
		JobType(w.taskType).
		Handler(w.Handle).
		MaxJobsActive(w.cfg.MaxJobsActive).
		Timeout(config.GetDuration(w.cfg.Timeout)).
		Open()

	w.log.Info("worker started", map[string]interface{}{
		"maxJobsActive": w.cfg.MaxJobsActive,
		"timeout_ms":    w.cfg.Timeout,
	})
}

// Handle runs the handler for one job and records how it was reported.
func (w *CamundaWorker) Handle(client worker.JobClient, job entities.Job) {
	metrics.WorkerJobsActive.WithLabelValues(w.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(w.taskType).Dec()

	rc := &recordingClient{JobClient: client, outcome: outcomeNone}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("handler panicked", map[string]interface{}{
				"jobKey": job.Key,
				"panic":  fmt.Sprint(r),
			})
			rc.outcome = outcomeFailed
			_, err := client.NewFailJobCommand().
				JobKey(job.Key).
				Retries(job.Retries - 1).
				ErrorMessage(fmt.Sprintf("handler panic: %v", r)).
				Send(context.Background())
			if err != nil {
				w.log.Error("failed to fail job after panic", map[string]interface{}{"error": err.Error()})
			}
		}
		w.record(rc.outcome, time.Since(start))
	}()

	w.handler(rc, job)
}

func (w *CamundaWorker) record(outcome string, elapsed time.Duration) {
	metrics.WorkerJobDuration.WithLabelValues(w.taskType).Observe(elapsed.Seconds())
	switch outcome {
	case outcomeCompleted:
		metrics.WorkerJobsCompleted.WithLabelValues(w.taskType).Inc()
	default:
		metrics.WorkerJobsFailed.WithLabelValues(w.taskType, outcome).Inc()
	}
	if w.recorder != nil {
		ctx := context.Background()
		w.recorder.RecordJobProcessed(ctx, w.taskType, outcome)
		w.recorder.RecordJobDuration(ctx, w.taskType, elapsed, outcome)
	}
}

func (w *CamundaWorker) Stop() {
	if w.worker == nil {
		return
	}
	w.log.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// recordingClient notes which command the handler built last.
type recordingClient struct {
	worker.JobClient
	outcome string
}

func (c *recordingClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = outcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *recordingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = outcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *recordingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = outcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}
