package investment

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Projection is the expected return range of an investment over its term.
type Projection struct {
	MinReturn  decimal.Decimal `json:"minReturn"`
	MaxReturn  decimal.Decimal `json:"maxReturn"`
	AvgMonthly decimal.Decimal `json:"avgMonthly"`
}

// CalculateReturns projects returns from percentage bounds. avgMonthly is zero
// for a non-positive term.
func CalculateReturns(amount, returnMin, returnMax decimal.Decimal, termMonths int) Projection {
	minReturn := amount.Mul(returnMin).Div(hundred)
	maxReturn := amount.Mul(returnMax).Div(hundred)

	avgMonthly := decimal.Zero
	if termMonths > 0 {
		avgMonthly = minReturn.Add(maxReturn).Div(two).Div(decimal.NewFromInt(int64(termMonths)))
	}
	return Projection{MinReturn: minReturn, MaxReturn: maxReturn, AvgMonthly: avgMonthly}
}
