package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeAfterTax(t *testing.T) {
	tests := []struct {
		name     string
		sum      string
		amount   string
		taxType  TaxType
		expected string
	}{
		{"general tax on income", "100", "10", TaxTypeGeneral, "90"},
		{"general tax on expense", "-100", "10", TaxTypeGeneral, "-90"},
		{"general tax zero rate", "250.50", "0", TaxTypeGeneral, "250.50"},
		{"general tax max rate", "100", "99.99", TaxTypeGeneral, "0.01"},
		{"expense tax on expense", "-100", "10", TaxTypeExpense, "-110"},
		{"expense tax on income", "100", "10", TaxTypeExpense, "100"},
		{"expense tax on zero", "0", "10", TaxTypeExpense, "0"},
		{"general tax rounds to cents", "10.01", "15", TaxTypeGeneral, "8.51"},
		{"expense tax rounds to cents", "-33.33", "7.5", TaxTypeExpense, "-35.83"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := TaxRule{Amount: decimal.RequireFromString(tt.amount), Type: tt.taxType}
			got, err := ComputeAfterTax(decimal.RequireFromString(tt.sum), rule)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			want := decimal.RequireFromString(tt.expected)
			if !got.Equal(want) {
				t.Errorf("ComputeAfterTax(%s, %s%% %s) = %s, want %s", tt.sum, tt.amount, tt.taxType, got, want)
			}
		})
	}
}

func TestComputeAfterTax_GeneralFormulaHoldsForRange(t *testing.T) {
	sums := []string{"-1000", "-0.01", "0", "0.01", "1", "12345.67"}
	amounts := []string{"0", "0.01", "5", "21", "50", "99.99"}

	for _, s := range sums {
		for _, a := range amounts {
			sum := decimal.RequireFromString(s)
			amount := decimal.RequireFromString(a)
			got, err := ComputeAfterTax(sum, TaxRule{Amount: amount, Type: TaxTypeGeneral})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			want := sum.Sub(sum.Mul(amount).Div(decimal.NewFromInt(100))).Round(2)
			if !got.Equal(want) {
				t.Errorf("sum=%s amount=%s: got %s, want %s", s, a, got, want)
			}
		}
	}
}

func TestComputeAfterTax_UnknownType(t *testing.T) {
	_, err := ComputeAfterTax(decimal.NewFromInt(100), TaxRule{Amount: decimal.NewFromInt(10), Type: "vat"})
	if !errors.Is(err, ErrInvalidTaxType) {
		t.Errorf("Expected ErrInvalidTaxType, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected error to be a validation error, got %v", err)
	}
}

func TestTaxTypeValid(t *testing.T) {
	if !TaxTypeGeneral.Valid() || !TaxTypeExpense.Valid() {
		t.Error("Expected both known tax types to be valid")
	}
	if TaxType("").Valid() || TaxType("GeneralTax").Valid() {
		t.Error("Expected unknown tax types to be invalid")
	}
}
