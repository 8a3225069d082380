// Package profit allocates a reporting period's net profit or loss between a
// business and its investors according to the financing contract.
package profit

import (
	"fmt"
	"strings"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rates are the fixed-return contract terms.
type Rates struct {
	MurabahaMarkup decimal.Decimal `json:"murabahaMarkup"`
	IjaraLease     decimal.Decimal `json:"ijaraLease"`
}

// DefaultRates is 15% murabaha markup and 12% ijara lease.
func DefaultRates() Rates {
	return Rates{
		MurabahaMarkup: decimal.RequireFromString("0.15"),
		IjaraLease:     decimal.RequireFromString("0.12"),
	}
}

// RatesFromConfig converts configured fractions, falling back to the defaults for non-positive values.
func RatesFromConfig(murabaha, ijara float64) Rates {
	r := DefaultRates()
	if murabaha > 0 {
		r.MurabahaMarkup = decimal.NewFromFloat(murabaha)
	}
	if ijara > 0 {
		r.IjaraLease = decimal.NewFromFloat(ijara)
	}
	return r
}

// Investment is one investor's capital in the financed business.
type Investment struct {
	InvestorID string          `json:"investorId"`
	Amount     decimal.Decimal `json:"amount"`
}

// Input is a distribution request for one reporting period.
type Input struct {
	ContractType            models.ContractType `json:"contractType"`
	NetProfit               decimal.Decimal     `json:"netProfit"`
	TotalInvestment         decimal.Decimal     `json:"totalInvestment"`
	BusinessSharePercentage decimal.Decimal     `json:"businessSharePercentage"`
	Investments             []Investment        `json:"investments"`
}

type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Distribute computes the split. Input errors are validation errors.
func (c *Calculator) Distribute(in Input) (*models.ProfitDistribution, error) {
	if !in.TotalInvestment.IsPositive() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidAmount,
			"Total investment must be positive", in.TotalInvestment.String())
	}
	if in.BusinessSharePercentage.IsNegative() || in.BusinessSharePercentage.GreaterThan(hundred) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidAmount,
			"Business share percentage must be between 0 and 100", in.BusinessSharePercentage.String())
	}

	var (
		d   *models.ProfitDistribution
		err error
	)
	switch in.ContractType {
	case models.ContractMusharaka, models.ContractIstisna:
		d = proportional(in)
	case models.ContractMudaraba:
		d = mudaraba(in)
	case models.ContractMurabaha:
		d = fixedReturn(in, c.rates.MurabahaMarkup)
	case models.ContractIjara:
		d = fixedReturn(in, c.rates.IjaraLease)
	default:
		err = errors.NewValidationError(errors.ErrCodeInvalidContractType,
			"Unsupported contract type", fmt.Sprintf("contractType=%q", in.ContractType))
	}
	if err != nil {
		return nil, err
	}
	d.ContractType = in.ContractType
	return d, nil
}

// proportional shares profit and loss alike by the agreed ratio, then by capital.
func proportional(in Input) *models.ProfitDistribution {
	businessShare := in.NetProfit.Mul(in.BusinessSharePercentage).Div(hundred)
	investorShare := in.NetProfit.Mul(hundred.Sub(in.BusinessSharePercentage)).Div(hundred)

	return &models.ProfitDistribution{
		TotalDistributable:      in.NetProfit,
		BusinessShare:           businessShare,
		InvestorShare:           investorShare,
		DistributionPerInvestor: byCapital(in, investorShare),
	}
}

// mudaraba leaves losses entirely with the capital providers.
func mudaraba(in Input) *models.ProfitDistribution {
	if in.NetProfit.IsPositive() {
		return proportional(in)
	}
	return &models.ProfitDistribution{
		TotalDistributable:      in.NetProfit,
		BusinessShare:           decimal.Zero,
		InvestorShare:           in.NetProfit,
		DistributionPerInvestor: byCapital(in, in.NetProfit),
	}
}

// fixedReturn pays each investor amount*rate; the business keeps the rest.
func fixedReturn(in Input, rate decimal.Decimal) *models.ProfitDistribution {
	per := make([]models.InvestorDistribution, 0, len(in.Investments))
	total := decimal.Zero
	for _, inv := range in.Investments {
		share := inv.Amount.Mul(rate)
		total = total.Add(share)
		per = append(per, models.InvestorDistribution{
			InvestorID:       inv.InvestorID,
			InvestmentAmount: inv.Amount,
			ProfitShare:      share,
			Percentage:       percentage(inv.Amount, in.TotalInvestment),
		})
	}
	return &models.ProfitDistribution{
		TotalDistributable:      in.NetProfit,
		BusinessShare:           in.NetProfit.Sub(total),
		InvestorShare:           total,
		DistributionPerInvestor: per,
	}
}

func byCapital(in Input, pool decimal.Decimal) []models.InvestorDistribution {
	per := make([]models.InvestorDistribution, 0, len(in.Investments))
	for _, inv := range in.Investments {
		per = append(per, models.InvestorDistribution{
			InvestorID:       inv.InvestorID,
			InvestmentAmount: inv.Amount,
			ProfitShare:      pool.Mul(inv.Amount).Div(in.TotalInvestment),
			Percentage:       percentage(inv.Amount, in.TotalInvestment),
		})
	}
	return per
}

func percentage(part, total decimal.Decimal) decimal.Decimal {
	return part.Mul(hundred).Div(total)
}

// CalculateProfitMargin is (revenue-expenses)/revenue as a percentage; 0 for zero revenue.
func CalculateProfitMargin(revenue, expenses decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return revenue.Sub(expenses).Mul(hundred).Div(revenue)
}

// CalculateROI is profit/investment as a percentage; 0 for zero investment.
func CalculateROI(investment, profit decimal.Decimal) decimal.Decimal {
	if investment.IsZero() {
		return decimal.Zero
	}
	return profit.Mul(hundred).Div(investment)
}

var periodLayouts = []string{time.RFC3339, "2006-01-02", models.DeadlineLayout}

func parsePeriodDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateReportingPeriod reports whether both dates parse and start is before end.
func ValidateReportingPeriod(start, end string) bool {
	s, ok := parsePeriodDate(start)
	if !ok {
		return false
	}
	e, ok := parsePeriodDate(end)
	if !ok {
		return false
	}
	return s.Before(e)
}

var contractNames = map[models.ContractType]string{
	models.ContractMusharaka: "Musharaka (Partnership)",
	models.ContractMudaraba:  "Mudaraba (Profit Sharing)",
	models.ContractMurabaha:  "Murabaha (Cost Plus)",
	models.ContractIjara:     "Ijara (Lease)",
	models.ContractIstisna:   "Istisna (Manufacturing)",
}

// ContractDisplayName returns a human label, or the raw value for unknown types.
func ContractDisplayName(ct models.ContractType) string {
	if name, ok := contractNames[ct]; ok {
		return name
	}
	return string(ct)
}
