package resubmitapplication

import (
	"context"

	"financing-workers/internal/approval"
	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "resubmit-application"
)

type Resubmitter interface {
	Resubmit(ctx context.Context, req approval.ResubmitRequest) (*approval.Outcome, error)
}

type Handler struct {
	config      *Config
	resubmitter Resubmitter
	errors      *errors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, resubmitter Resubmitter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		resubmitter: resubmitter,
		errors:      errors.NewErrorHandler(log),
		logger:      log,
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
	outcome, err := h.resubmitter.Resubmit(ctx, approval.ResubmitRequest{
		ApplicationID: input.ApplicationID,
		BusinessID:    input.BusinessID,
		Target:        models.ApplicationStatus(input.TargetStatus),
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		Success:        outcome.Success,
		Message:        outcome.Message,
		ErrorCode:      string(outcome.Code),
		PreviousStatus: string(outcome.PreviousStatus),
		Status:         string(outcome.Status),
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
