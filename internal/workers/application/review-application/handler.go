package reviewapplication

import (
	"context"

	"financing-workers/internal/approval"
	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "review-application"
)

// Reviewer applies admin decisions.
type Reviewer interface {
	Review(ctx context.Context, req approval.ReviewRequest) (*approval.Outcome, error)
}

type Handler struct {
	config   *Config
	reviewer Reviewer
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, reviewer Reviewer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		reviewer: reviewer,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
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

// Execute applies the decision. A refused decision completes the job with
// success=false so the process can branch on it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.reviewer.Review(ctx, input.request())
	if err != nil {
		return nil, err
	}

	h.logger.Info("review processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"adminId":       input.AdminID,
		"action":        input.Action,
		"success":       outcome.Success,
		"status":        string(outcome.Status),
		"dualAuth":      outcome.DualAuthorizationRequired,
	})
	return outputFrom(outcome), nil
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
