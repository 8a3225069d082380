package profit

import (
	"testing"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func TestDistribute_MusharakaSingleInvestor(t *testing.T) {
	c := NewCalculator(DefaultRates())

	out, err := c.Distribute(Input{
		ContractType:            models.ContractMusharaka,
		NetProfit:               d("1000"),
		TotalInvestment:         d("500"),
		BusinessSharePercentage: d("40"),
		Investments:             []Investment{{InvestorID: "x", Amount: d("500")}},
	})
	require.NoError(t, err)

	assertDecimal(t, "400", out.BusinessShare)
	assertDecimal(t, "600", out.InvestorShare)
	require.Len(t, out.DistributionPerInvestor, 1)
	assertDecimal(t, "600", out.DistributionPerInvestor[0].ProfitShare)
	assertDecimal(t, "100", out.DistributionPerInvestor[0].Percentage)
}

func TestDistribute_MusharakaLossIsShared(t *testing.T) {
	c := NewCalculator(DefaultRates())

	out, err := c.Distribute(Input{
		ContractType:            models.ContractMusharaka,
		NetProfit:               d("-1000"),
		TotalInvestment:         d("1000"),
		BusinessSharePercentage: d("30"),
		Investments:             []Investment{{InvestorID: "x", Amount: d("1000")}},
	})
	require.NoError(t, err)

	assertDecimal(t, "-300", out.BusinessShare)
	assertDecimal(t, "-700", out.InvestorShare)
}

func TestDistribute_MudarabaLossAllToInvestors(t *testing.T) {
	c := NewCalculator(DefaultRates())

	out, err := c.Distribute(Input{
		ContractType:            models.ContractMudaraba,
		NetProfit:               d("-200"),
		TotalInvestment:         d("1000"),
		BusinessSharePercentage: d("40"),
		Investments:             []Investment{{InvestorID: "x", Amount: d("1000")}},
	})
	require.NoError(t, err)

	assertDecimal(t, "0", out.BusinessShare)
	assertDecimal(t, "-200", out.InvestorShare)
	assertDecimal(t, "-200", out.DistributionPerInvestor[0].ProfitShare)
}

func TestDistribute_MudarabaZeroProfit(t *testing.T) {
	c := NewCalculator(DefaultRates())

	out, err := c.Distribute(Input{
		ContractType:            models.ContractMudaraba,
		NetProfit:               d("0"),
		TotalInvestment:         d("1000"),
		BusinessSharePercentage: d("40"),
		Investments:             []Investment{{InvestorID: "x", Amount: d("1000")}},
	})
	require.NoError(t, err)
	assertDecimal(t, "0", out.BusinessShare)
	assertDecimal(t, "0", out.InvestorShare)
}

func TestDistribute_ProfitSharingSumsMatch(t *testing.T) {
	c := NewCalculator(DefaultRates())
	investments := []Investment{
		{InvestorID: "a", Amount: d("333.33")},
		{InvestorID: "b", Amount: d("1250")},
		{InvestorID: "c", Amount: d("7")},
		{InvestorID: "d", Amount: d("409.67")},
	}
	total := decimal.Zero
	for _, inv := range investments {
		total = total.Add(inv.Amount)
	}
	tolerance := d("0.000001")

	for _, ct := range []models.ContractType{models.ContractMusharaka, models.ContractMudaraba, models.ContractIstisna} {
		for _, np := range []string{"1000", "12345.67", "0.01"} {
			out, err := c.Distribute(Input{
				ContractType:            ct,
				NetProfit:               d(np),
				TotalInvestment:         total,
				BusinessSharePercentage: d("35"),
				Investments:             investments,
			})
			require.NoError(t, err)

			sum := decimal.Zero
			pct := decimal.Zero
			for _, p := range out.DistributionPerInvestor {
				sum = sum.Add(p.ProfitShare)
				pct = pct.Add(p.Percentage)
			}
			assert.True(t, sum.Sub(out.InvestorShare).Abs().LessThan(tolerance), "%s %s: Σ=%s investorShare=%s", ct, np, sum, out.InvestorShare)
			assert.True(t, pct.Sub(d("100")).Abs().LessThan(tolerance), "%s %s: Σ%%=%s", ct, np, pct)
			assertDecimal(t, np, out.BusinessShare.Add(out.InvestorShare), ct)
		}
	}
}

func TestDistribute_FixedReturnContracts(t *testing.T) {
	c := NewCalculator(DefaultRates())
	investments := []Investment{
		{InvestorID: "a", Amount: d("1000")},
		{InvestorID: "b", Amount: d("3000")},
	}

	out, err := c.Distribute(Input{
		ContractType:            models.ContractMurabaha,
		NetProfit:               d("1000"),
		TotalInvestment:         d("4000"),
		BusinessSharePercentage: d("50"),
		Investments:             investments,
	})
	require.NoError(t, err)
	assertDecimal(t, "150", out.DistributionPerInvestor[0].ProfitShare)
	assertDecimal(t, "450", out.DistributionPerInvestor[1].ProfitShare)
	assertDecimal(t, "600", out.InvestorShare)
	assertDecimal(t, "400", out.BusinessShare)
	assertDecimal(t, "75", out.DistributionPerInvestor[1].Percentage)

	out, err = c.Distribute(Input{
		ContractType:            models.ContractIjara,
		NetProfit:               d("100"),
		TotalInvestment:         d("4000"),
		BusinessSharePercentage: d("50"),
		Investments:             investments,
	})
	require.NoError(t, err)
	assertDecimal(t, "480", out.InvestorShare)
	assertDecimal(t, "-380", out.BusinessShare)
}

func TestDistribute_ConfiguredRates(t *testing.T) {
	c := NewCalculator(RatesFromConfig(0.2, 0))

	out, err := c.Distribute(Input{
		ContractType:    models.ContractMurabaha,
		NetProfit:       d("500"),
		TotalInvestment: d("1000"),
		Investments:     []Investment{{InvestorID: "a", Amount: d("1000")}},
	})
	require.NoError(t, err)
	assertDecimal(t, "200", out.InvestorShare)

	out, err = c.Distribute(Input{
		ContractType:    models.ContractIjara,
		NetProfit:       d("500"),
		TotalInvestment: d("1000"),
		Investments:     []Investment{{InvestorID: "a", Amount: d("1000")}},
	})
	require.NoError(t, err)
	assertDecimal(t, "120", out.InvestorShare)
}

func TestDistribute_ValidationErrors(t *testing.T) {
	c := NewCalculator(DefaultRates())

	tests := []struct {
		name    string
		in      Input
		message string
		code    apperrors.ErrorCode
	}{
		{
			name:    "zero total investment",
			in:      Input{ContractType: models.ContractMusharaka, TotalInvestment: d("0")},
			message: "Total investment must be positive",
			code:    apperrors.ErrCodeInvalidAmount,
		},
		{
			name:    "negative share",
			in:      Input{ContractType: models.ContractMusharaka, TotalInvestment: d("1"), BusinessSharePercentage: d("-1")},
			message: "Business share percentage must be between 0 and 100",
			code:    apperrors.ErrCodeInvalidAmount,
		},
		{
			name:    "share above 100",
			in:      Input{ContractType: models.ContractMusharaka, TotalInvestment: d("1"), BusinessSharePercentage: d("100.01")},
			message: "Business share percentage must be between 0 and 100",
			code:    apperrors.ErrCodeInvalidAmount,
		},
		{
			name:    "unknown contract",
			in:      Input{ContractType: "salam", TotalInvestment: d("1"), BusinessSharePercentage: d("10")},
			message: "Unsupported contract type",
			code:    apperrors.ErrCodeInvalidContractType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Distribute(tt.in)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindValidation, stdErr.Kind)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.message, stdErr.Message)
		})
	}
}

func TestHelpers(t *testing.T) {
	assertDecimal(t, "25", CalculateProfitMargin(d("1000"), d("750")))
	assertDecimal(t, "0", CalculateProfitMargin(d("0"), d("750")))
	assertDecimal(t, "15", CalculateROI(d("1000"), d("150")))
	assertDecimal(t, "0", CalculateROI(d("0"), d("150")))

	assert.True(t, ValidateReportingPeriod("2026-01-01", "2026-03-31"))
	assert.False(t, ValidateReportingPeriod("2026-03-31", "2026-01-01"))
	assert.False(t, ValidateReportingPeriod("2026-01-01", "2026-01-01"))
	assert.False(t, ValidateReportingPeriod("yesterday", "2026-01-01"))

	assert.Equal(t, "Ijara (Lease)", ContractDisplayName(models.ContractIjara))
	assert.Equal(t, "salam", ContractDisplayName("salam"))
}
