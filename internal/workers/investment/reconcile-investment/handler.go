package reconcileinvestment

import (
	"context"
	"time"

	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/investment"
	"financing-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "reconcile-investment"
)

type Reconciler interface {
	Reconcile(ctx context.Context, investmentID string) (*investment.ReconcileResult, error)
	ReconcilePending(ctx context.Context, olderThan time.Duration) (*investment.ReconcileSummary, error)
}

type Handler struct {
	config     *Config
	reconciler Reconciler
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, reconciler Reconciler, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reconciler: reconciler,
		errors:     errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, h.config.Activity, &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.InvestmentID == "" {
		return h.sweep(ctx, input)
	}

	res, err := h.reconciler.Reconcile(ctx, input.InvestmentID)
	if err != nil {
		if stdErr, ok := errors.As(err); ok && stdErr.Code == errors.ErrCodeInvestmentNotFound {
			return &Output{Found: false, InvestmentID: input.InvestmentID}, nil
		}
		return nil, err
	}

	return &Output{
		Found:        true,
		InvestmentID: res.InvestmentID,
		FromStage:    string(res.FromStage),
		Stage:        string(res.Stage),
		NeedsReview:  res.Stage == models.StageNeedsReview,
	}, nil
}

func (h *Handler) sweep(ctx context.Context, input *Input) (*Output, error) {
	olderThan := h.config.ReconcileAfter
	if input.OlderThanSeconds > 0 {
		olderThan = time.Duration(input.OlderThanSeconds) * time.Second
	}

	summary, err := h.reconciler.ReconcilePending(ctx, olderThan)
	if err != nil {
		return nil, err
	}

	outcomes := make(map[string]int, len(summary.Outcomes))
	for stage, n := range summary.Outcomes {
		outcomes[string(stage)] = n
	}
	h.logger.Info("reconciliation sweep finished", map[string]interface{}{
		"examined": summary.Examined,
		"failed":   summary.Failed,
	})

	return &Output{
		Found:       summary.Examined > 0,
		Examined:    summary.Examined,
		Failed:      summary.Failed,
		Outcomes:    outcomes,
		NeedsReview: summary.Outcomes[models.StageNeedsReview] > 0,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
