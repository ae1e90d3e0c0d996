package domain

import "github.com/shopspring/decimal"

// TaxType selects how a category's tax amount is applied to a transaction sum
type TaxType string

const (
	// TaxTypeGeneral deducts the tax from every movement regardless of sign
	TaxTypeGeneral TaxType = "general_tax"
	// TaxTypeExpense inflates expenses (negative sums) and leaves income untouched
	TaxTypeExpense TaxType = "expense_tax"
)

// Valid reports whether t is one of the two known tax types
func (t TaxType) Valid() bool {
	switch t {
	case TaxTypeGeneral, TaxTypeExpense:
		return true
	}
	return false
}

// Tax precision constants
const (
	SumPrecision = 2
)

var (
	MinTaxAmount = decimal.Zero
	MaxTaxAmount = decimal.RequireFromString("99.99")

	hundred = decimal.NewFromInt(100)
)

// TaxRule is the part of a category the calculator depends on
type TaxRule struct {
	Amount decimal.Decimal
	Type   TaxType
}

// ComputeAfterTax applies rule to sum and rounds the result to cents.
//
//	general_tax: sum - sum*amount/100
//	expense_tax: sum + sum*amount/100 when sum < 0, otherwise sum
func ComputeAfterTax(sum decimal.Decimal, rule TaxRule) (decimal.Decimal, error) {
	var result decimal.Decimal
	switch rule.Type {
	case TaxTypeGeneral:
		result = sum.Sub(sum.Mul(rule.Amount).Div(hundred))
	case TaxTypeExpense:
		if sum.IsNegative() {
			result = sum.Add(sum.Mul(rule.Amount).Div(hundred))
		} else {
			result = sum
		}
	default:
		return decimal.Zero, ErrInvalidTaxType
	}
	return result.Round(SumPrecision), nil
}
