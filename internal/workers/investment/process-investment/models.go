package processinvestment

import (
	"fmt"

	"financing-workers/internal/investment"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/shopspring/decimal"
)

type Input struct {
	InvestorID     string          `json:"investorId" validate:"required"`
	InvestorType   string          `json:"investorType,omitempty" validate:"omitempty,oneof=individual institutional"`
	OpportunityID  string          `json:"opportunityId" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty" validate:"max=128"`
}

// defaultIdempotencyKey keys a request without its own key on the job's
// element instance, which stays the same across redeliveries and retries.
func (in *Input) defaultIdempotencyKey(job entities.Job) {
	if in.IdempotencyKey != "" {
		return
	}
	in.IdempotencyKey = fmt.Sprintf("job:%d:%d", job.GetProcessInstanceKey(), job.GetElementInstanceKey())
}

type Output struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	ErrorCode    string                 `json:"errorCode,omitempty"`
	InvestmentID string                 `json:"investmentId,omitempty"`
	Projection   *investment.Projection `json:"projection,omitempty"`
	Replayed     bool                   `json:"replayed,omitempty"`
	// RetryAfterSeconds is set when the investor was rate limited.
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`
}
