package distributeprofit

import (
	"context"
	"fmt"

	"financing-workers/internal/common/camunda"
	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"
	"financing-workers/internal/profit"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "distribute-profit"
)

type Distributor interface {
	Distribute(in profit.Input) (*models.ProfitDistribution, error)
}

type Handler struct {
	config      *Config
	distributor Distributor
	errors      *errors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, distributor Distributor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		distributor: distributor,
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

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	if input.PeriodStart != "" || input.PeriodEnd != "" {
		if !profit.ValidateReportingPeriod(input.PeriodStart, input.PeriodEnd) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidReportingRange,
				"Invalid reporting period",
				fmt.Sprintf("periodStart=%q periodEnd=%q", input.PeriodStart, input.PeriodEnd))
		}
	}

	ct := models.ContractType(input.ContractType)
	dist, err := h.distributor.Distribute(profit.Input{
		ContractType:            ct,
		NetProfit:               input.NetProfit,
		TotalInvestment:         input.TotalInvestment,
		BusinessSharePercentage: input.BusinessSharePercentage,
		Investments:             input.Investments,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		OpportunityID:  input.OpportunityID,
		ContractName:   profit.ContractDisplayName(ct),
		Distribution:   dist,
		InvestorROI:    profit.CalculateROI(input.TotalInvestment, dist.InvestorShare),
		InvestorsCount: len(dist.DistributionPerInvestor),
	}
	if input.Revenue != nil && input.Expenses != nil {
		margin := profit.CalculateProfitMargin(*input.Revenue, *input.Expenses)
		output.ProfitMargin = &margin
	}

	h.logger.Info("profit distributed", map[string]interface{}{
		"opportunityId": input.OpportunityID,
		"contractType":  input.ContractType,
		"investorShare": dist.InvestorShare.String(),
		"businessShare": dist.BusinessShare.String(),
	})
	return output, nil
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
