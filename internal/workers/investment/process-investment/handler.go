package processinvestment

import (
	"context"
	"fmt"
	"math"

	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/investment"
	"financing-workers/internal/ratelimit"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "process-investment"
)

type Processor interface {
	ProcessInvestment(ctx context.Context, req investment.Request) (*investment.Result, error)
}

type Handler struct {
	config    *Config
	processor Processor
	limiter   ratelimit.Limiter
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, processor Processor, limiter ratelimit.Limiter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		processor: processor,
		limiter:   limiter,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
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
	input.defaultIdempotencyKey(job)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute applies the investment after the per-investor limit. A limiter
// backend failure is returned so the job is retried.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Amount.IsPositive() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidAmount,
			"Investment amount must be positive", input.Amount.String())
	}

	if h.limiter != nil {
		decision, err := h.limiter.Allow(ctx, ratelimit.InvestKey(input.InvestorID), h.config.Rule)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			h.logger.Warn("investment rate limited", map[string]interface{}{
				"investorId": input.InvestorID,
				"resetIn":    decision.ResetIn.String(),
			})
			return &Output{
				Success:           false,
				ErrorCode:         string(errors.ErrCodeRateLimited),
				Message:           fmt.Sprintf("Too many investment attempts. Try again in %s.", ratelimit.FormatWait(decision.ResetIn)),
				RetryAfterSeconds: int(math.Ceil(decision.ResetIn.Seconds())),
			}, nil
		}
	}

	result, err := h.processor.ProcessInvestment(ctx, investment.Request{
		InvestorID:     input.InvestorID,
		InvestorType:   input.InvestorType,
		OpportunityID:  input.OpportunityID,
		Amount:         input.Amount,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	if result.Success {
		h.logger.Info("investment processed", map[string]interface{}{
			"investmentId": result.InvestmentID,
			"replayed":     result.Replayed,
		})
	}

	return &Output{
		Success:      result.Success,
		Message:      result.Message,
		ErrorCode:    string(result.Code),
		InvestmentID: result.InvestmentID,
		Projection:   result.Projection,
		Replayed:     result.Replayed,
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
