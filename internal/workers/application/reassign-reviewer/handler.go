package reassignreviewer

import (
	"context"
	"time"

	"financing-workers/internal/assignment"
	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "reassign-reviewer"
)

type Reassigner interface {
	Reassign(ctx context.Context, req assignment.ReassignRequest) (*models.Assignment, error)
	History(ctx context.Context, applicationID string) ([]models.AssignmentHistory, error)
}

type Handler struct {
	config     *Config
	reassigner Reassigner
	now        func() time.Time
	errors     *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, reassigner Reassigner, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reassigner: reassigner,
		now:        time.Now,
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

// Execute moves the open assignment to another reviewer. Missing admins,
// missing permission and a full target complete the job with reassigned=false.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	a, err := h.reassigner.Reassign(ctx, assignment.ReassignRequest{
		ApplicationID: input.ApplicationID,
		ToAdminID:     input.ToAdminID,
		PerformedBy:   input.PerformedBy,
		Reason:        input.Reason,
	})
	if err != nil {
		if stdErr, ok := errors.As(err); ok && stdErr.Kind == errors.KindState {
			h.logger.Warn("reviewer not reassigned", map[string]interface{}{
				"applicationId": input.ApplicationID,
				"toAdminId":     input.ToAdminID,
				"reason":        stdErr.Message,
			})
			return &Output{Reassigned: false, ErrorCode: string(stdErr.Code), Message: stdErr.Message}, nil
		}
		return nil, err
	}

	out := &Output{
		Reassigned:   true,
		AssignmentID: a.ID,
		ReviewerID:   a.AssignedTo,
		SLAState:     string(assignment.CheckSLAStatus(*a, h.now()).State),
	}

	// history is informational; the reassignment already happened
	history, err := h.reassigner.History(ctx, input.ApplicationID)
	if err != nil {
		h.logger.Warn("assignment history unavailable", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"error":         err.Error(),
		})
		return out, nil
	}
	out.HistoryCount = len(history)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Action == models.HistoryReassigned {
			out.PreviousReviewerID = history[i].FromAdminID
			break
		}
	}
	return out, nil
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
