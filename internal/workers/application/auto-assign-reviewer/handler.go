package autoassignreviewer

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
	TaskType = "auto-assign-reviewer"
)

type Assigner interface {
	AutoAssign(ctx context.Context, req assignment.AutoAssignRequest) (*models.Assignment, error)
	WorkloadStats(ctx context.Context) (*assignment.WorkloadSummary, error)
}

type Handler struct {
	config   *Config
	assigner Assigner
	now      func() time.Time
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, assigner Assigner, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		assigner: assigner,
		now:      time.Now,
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

// Execute assigns a reviewer. When nobody is eligible or everyone is at
// capacity the job still completes, with assigned=false.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	assignedBy := input.AssignedBy
	if assignedBy == "" {
		assignedBy = h.config.DefaultAssigner
	}

	a, err := h.assigner.AutoAssign(ctx, assignment.AutoAssignRequest{
		ApplicationID:  input.ApplicationID,
		AssignedBy:     assignedBy,
		Priority:       models.Priority(input.Priority),
		Specialization: input.Specialization,
		DueDate:        input.DueDate,
		Notes:          input.Notes,
	})
	if err != nil {
		if stdErr, ok := errors.As(err); ok && stdErr.Kind == errors.KindState {
			h.logger.Warn("no reviewer assigned", map[string]interface{}{
				"applicationId": input.ApplicationID,
				"reason":        stdErr.Message,
			})
			out := &Output{Assigned: false, ErrorCode: string(stdErr.Code), Message: stdErr.Message}
			h.attachWorkload(ctx, out)
			return out, nil
		}
		return nil, err
	}

	due := a.DueDate
	return &Output{
		Assigned:     true,
		AssignmentID: a.ID,
		ReviewerID:   a.AssignedTo,
		Priority:     string(a.Priority),
		DueDate:      &due,
		SLAState:     string(assignment.CheckSLAStatus(*a, h.now()).State),
	}, nil
}

// attachWorkload adds reviewer load totals so the process can escalate.
func (h *Handler) attachWorkload(ctx context.Context, out *Output) {
	sum, err := h.assigner.WorkloadStats(ctx)
	if err != nil {
		h.logger.Warn("workload stats unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	if sum == nil {
		return
	}
	out.Workload = &Workload{
		Reviewers:          len(sum.Reviewers),
		AvailableReviewers: sum.Available,
		TotalCurrent:       sum.TotalCurrent,
		TotalCapacity:      sum.TotalCapacity,
	}
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
