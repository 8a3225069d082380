package distributeprofit

import (
	"financing-workers/internal/models"
	"financing-workers/internal/profit"

	"github.com/shopspring/decimal"
)

type Input struct {
	OpportunityID           string              `json:"opportunityId,omitempty"`
	ContractType            string              `json:"contractType" validate:"required"`
	NetProfit               decimal.Decimal     `json:"netProfit"`
	TotalInvestment         decimal.Decimal     `json:"totalInvestment"`
	BusinessSharePercentage decimal.Decimal     `json:"businessSharePercentage"`
	Investments             []profit.Investment `json:"investments" validate:"required,min=1,dive"`
	PeriodStart             string              `json:"periodStart,omitempty"`
	PeriodEnd               string              `json:"periodEnd,omitempty"`
	// Revenue and Expenses are optional; both are needed for a margin.
	Revenue  *decimal.Decimal `json:"revenue,omitempty"`
	Expenses *decimal.Decimal `json:"expenses,omitempty"`
}

type Output struct {
	OpportunityID  string                     `json:"opportunityId,omitempty"`
	ContractName   string                     `json:"contractName"`
	Distribution   *models.ProfitDistribution `json:"distribution"`
	InvestorROI    decimal.Decimal            `json:"investorRoi"`
	ProfitMargin   *decimal.Decimal           `json:"profitMargin,omitempty"`
	InvestorsCount int                        `json:"investorsCount"`
}
