// internal/models/profit.go
package models

import "github.com/shopspring/decimal"

// InvestorDistribution is one investor's allocation of a period's result.
type InvestorDistribution struct {
	InvestorID       string          `json:"investorId"`
	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	ProfitShare      decimal.Decimal `json:"profitShare"`
	Percentage       decimal.Decimal `json:"percentage"`
}

// ProfitDistribution is the computed allocation of a net profit or loss.
type ProfitDistribution struct {
	ContractType            ContractType           `json:"contractType"`
	TotalDistributable      decimal.Decimal        `json:"totalDistributable"`
	BusinessShare           decimal.Decimal        `json:"businessShare"`
	InvestorShare           decimal.Decimal        `json:"investorShare"`
	DistributionPerInvestor []InvestorDistribution `json:"distributionPerInvestor"`
}
