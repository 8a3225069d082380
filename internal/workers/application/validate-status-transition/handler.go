package validatestatustransition

import (
	"context"

	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/statemachine"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-status-transition"
)

type Handler struct {
	config *Config
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		errors: errors.NewErrorHandler(log),
		logger: log,
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

// Execute checks the transition. An invalid transition is a normal result;
// only unknown statuses are errors.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	current, err := statemachine.ParseStatus(input.CurrentStatus)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidStatus, "Unknown current status", err.Error())
	}
	proposed, err := statemachine.ParseStatus(input.ProposedStatus)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidStatus, "Unknown proposed status", err.Error())
	}

	sc := statemachine.Context{
		RejectionAllowsResubmit: input.RejectionAllowsResubmit,
		HasRequiredDocuments:    input.HasRequiredDocuments,
		DueDiligenceComplete:    input.DueDiligenceComplete,
		HasRejectionReason:      input.HasRejectionReason,
	}

	var res statemachine.Result
	if input.Actor == ActorBusiness {
		res = statemachine.ValidateBusinessTransition(current, proposed, sc)
	} else {
		res = statemachine.ValidateTransition(current, proposed, sc)
	}

	if !res.Valid {
		h.logger.Info("transition refused", map[string]interface{}{
			"from":   string(current),
			"to":     string(proposed),
			"reason": res.Error,
		})
	}

	return &Output{
		Valid:                  res.Valid,
		Error:                  res.Error,
		Warning:                res.Warning,
		IsResubmission:         res.IsResubmission,
		StatusLabel:            statemachine.Label(proposed),
		ValidNextStatuses:      statusNames(statemachine.ValidNextStatuses(current, sc)),
		IsTerminal:             statemachine.IsTerminal(current, sc),
		RequiresBusinessAction: statemachine.RequiresBusinessAction(current, sc),
	}, nil
}

func statusNames(statuses []models.ApplicationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
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
