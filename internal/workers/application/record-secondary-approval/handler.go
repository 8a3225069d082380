package recordsecondaryapproval

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
	TaskType = "record-secondary-approval"
)

type SecondaryApprover interface {
	RecordSecondaryApproval(ctx context.Context, req approval.SecondaryRequest) (*approval.Outcome, error)
}

type Handler struct {
	config   *Config
	approver SecondaryApprover
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, approver SecondaryApprover, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		approver: approver,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.approver.RecordSecondaryApproval(ctx, approval.SecondaryRequest{
		ApplicationID: input.ApplicationID,
		AdminID:       input.AdminID,
		Approve:       input.Approve,
		Notes:         input.Notes,
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Success {
		h.logger.Warn("secondary approval refused", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"adminId":       input.AdminID,
			"code":          string(outcome.Code),
		})
	}

	return &Output{
		Success:   outcome.Success,
		Message:   outcome.Message,
		ErrorCode: string(outcome.Code),
		Status:    string(outcome.Status),
		Approved:  outcome.Success && outcome.Status == models.StatusApproved,
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
