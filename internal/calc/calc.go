package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/egtbills/tbill-yields/internal/logger"
)

// DaysInYear is the day-count basis of the published yields
const DaysInYear = 365

var (
	hundred    = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(DaysInYear)
	four       = decimal.NewFromInt(4)
)

// ErrInvalidInput is matched by every validation error
var ErrInvalidInput = errors.New("invalid calculator input")

// InputError names the offending input
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// PrimaryInput describes a bill bought at auction and held to maturity
type PrimaryInput struct {
	FaceValue decimal.Decimal
	YieldRate decimal.Decimal // annual, percent
	Tenor     int             // days
	TaxRate   decimal.Decimal // percent of the profit
}

// PrimaryResult is the return of a held-to-maturity bill
type PrimaryResult struct {
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	GrossReturn   decimal.Decimal `json:"gross_return"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	NetReturn     decimal.Decimal `json:"net_return"`
	TotalPayout   decimal.Decimal `json:"total_payout"`
	// RealProfitPercent is the net return relative to the purchase price
	RealProfitPercent decimal.Decimal `json:"real_profit_percent"`
}

// Primary computes the return of a bill bought at the auction yield
func Primary(in PrimaryInput) (*PrimaryResult, error) {
	if err := validatePositive("face value", in.FaceValue); err != nil {
		return nil, err
	}
	if err := validatePositive("yield", in.YieldRate); err != nil {
		return nil, err
	}
	if in.Tenor <= 0 {
		return nil, invalid(&InputError{Field: "tenor", Reason: "must be a positive number of days"})
	}
	if err := validateTaxRate(in.TaxRate); err != nil {
		return nil, err
	}

	price := Price(in.FaceValue, in.YieldRate, in.Tenor)
	gross := in.FaceValue.Sub(price)
	tax := gross.Mul(in.TaxRate).Div(hundred)
	net := gross.Sub(tax)

	result := &PrimaryResult{
		PurchasePrice:     price,
		GrossReturn:       gross,
		TaxAmount:         tax,
		NetReturn:         net,
		TotalPayout:       in.FaceValue,
		RealProfitPercent: percentOf(net, price),
	}
	logger.Debug("primary yield calculated", logger.Fields{
		"tenor":      in.Tenor,
		"net_return": net.StringFixed(2),
	})
	return result, nil
}

// SecondaryInput describes a bill sold before maturity
type SecondaryInput struct {
	FaceValue      decimal.Decimal
	OriginalYield  decimal.Decimal
	OriginalTenor  int
	HoldingDays    int
	SecondaryYield decimal.Decimal // prevailing yield for the remaining days
	TaxRate        decimal.Decimal
}

// SecondaryResult is the outcome of an early sale. GrossProfit is negative on a loss.
type SecondaryResult struct {
	OriginalPurchasePrice decimal.Decimal `json:"original_purchase_price"`
	SalePrice             decimal.Decimal `json:"sale_price"`
	RemainingDays         int             `json:"remaining_days"`
	GrossProfit           decimal.Decimal `json:"gross_profit"`
	TaxAmount             decimal.Decimal `json:"tax_amount"`
	NetProfit             decimal.Decimal `json:"net_profit"`
	// PeriodYield is the net profit relative to the original price, for the holding period
	PeriodYield decimal.Decimal `json:"period_yield"`
}

// Secondary prices an early sale at the prevailing yield. Losses are not taxed.
func Secondary(in SecondaryInput) (*SecondaryResult, error) {
	for _, v := range []struct {
		field string
		value decimal.Decimal
	}{
		{"face value", in.FaceValue},
		{"original yield", in.OriginalYield},
		{"secondary yield", in.SecondaryYield},
	} {
		if err := validatePositive(v.field, v.value); err != nil {
			return nil, err
		}
	}
	if in.OriginalTenor <= 0 {
		return nil, invalid(&InputError{Field: "tenor", Reason: "must be a positive number of days"})
	}
	if err := validateTaxRate(in.TaxRate); err != nil {
		return nil, err
	}
	if in.HoldingDays < 1 || in.HoldingDays >= in.OriginalTenor {
		return nil, invalid(&InputError{
			Field:  "holding days",
			Reason: fmt.Sprintf("must be between 1 and %d", in.OriginalTenor-1),
		})
	}

	original := Price(in.FaceValue, in.OriginalYield, in.OriginalTenor)
	remaining := in.OriginalTenor - in.HoldingDays
	sale := Price(in.FaceValue, in.SecondaryYield, remaining)
	gross := sale.Sub(original)
	tax := decimal.Max(decimal.Zero, gross.Mul(in.TaxRate).Div(hundred))
	net := gross.Sub(tax)

	return &SecondaryResult{
		OriginalPurchasePrice: original,
		SalePrice:             sale,
		RemainingDays:         remaining,
		GrossProfit:           gross,
		TaxAmount:             tax,
		NetProfit:             net,
		PeriodYield:           percentOf(net, original),
	}, nil
}

// CustodyResult is the bank's fee for holding bills
type CustodyResult struct {
	AnnualFee          decimal.Decimal `json:"annual_fee"`
	QuarterlyDeduction decimal.Decimal `json:"quarterly_deduction"`
}

// CustodyFee applies an annual percentage fee to the total face value held.
// Banks deduct it quarterly.
func CustodyFee(totalFaceValue, feePercent decimal.Decimal) (*CustodyResult, error) {
	if err := validatePositive("total face value", totalFaceValue); err != nil {
		return nil, err
	}
	if feePercent.IsNegative() {
		return nil, invalid(&InputError{Field: "fee", Reason: "must not be negative"})
	}

	annual := totalFaceValue.Mul(feePercent).Div(hundred)
	return &CustodyResult{
		AnnualFee:          annual,
		QuarterlyDeduction: annual.Div(four),
	}, nil
}

// Price is the discounted price of face value at an annual yield over days
func Price(face, yieldRate decimal.Decimal, days int) decimal.Decimal {
	factor := yieldRate.Div(hundred).Mul(decimal.NewFromInt(int64(days))).Div(daysInYear)
	return face.Div(decimal.NewFromInt(1).Add(factor))
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func validatePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return invalid(&InputError{Field: field, Reason: "must be positive"})
	}
	return nil
}

func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return invalid(&InputError{Field: "tax rate", Reason: "must be between 0 and 100"})
	}
	return nil
}

func invalid(err *InputError) error {
	logger.Warn("calculator input rejected", logger.Fields{"field": err.Field}, err)
	return err
}
