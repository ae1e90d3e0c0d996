package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxCategoryNameLength    = 100
	MaxTransactionNameLength = 100
)

type Category struct {
	ID        int32           `json:"id"`
	Name      string          `json:"name"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	TaxType   TaxType         `json:"taxType"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *time.Time      `json:"deletedAt,omitempty"`
}

// IsDeleted reports whether the category has been soft-deleted
func (c *Category) IsDeleted() bool {
	return c.DeletedAt != nil
}

// TaxRule returns the tax rule transactions in this category are subject to
func (c *Category) TaxRule() TaxRule {
	return TaxRule{Amount: c.TaxAmount, Type: c.TaxType}
}

// NormalizeName trims name and checks it is non-empty and at most maxLen runes
func NormalizeName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// ValidateTaxRule checks the tax amount range, its precision of at most two
// decimal places, and the tax type
func ValidateTaxRule(rule TaxRule) error {
	if rule.Amount.LessThan(MinTaxAmount) || rule.Amount.GreaterThan(MaxTaxAmount) {
		return ErrTaxAmountOutOfRange
	}
	// trailing zeros such as 10.500 are still two places
	if !rule.Amount.Equal(rule.Amount.Round(2)) {
		return ErrTaxAmountOutOfRange
	}
	if !rule.Type.Valid() {
		return ErrInvalidTaxType
	}
	return nil
}

// DeleteMode tells how a category was removed
type DeleteMode string

const (
	DeleteModeHard DeleteMode = "hard"
	DeleteModeSoft DeleteMode = "soft"
)

// DeleteModeFor returns the delete mode for a category with the given number
// of associated transactions
func DeleteModeFor(transactionCount int) DeleteMode {
	if transactionCount == 0 {
		return DeleteModeHard
	}
	return DeleteModeSoft
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, id int32) (*Category, error)
	// GetActiveByName only considers categories that are not soft-deleted
	GetActiveByName(ctx context.Context, name string) (*Category, error)
	GetAllActive(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, category *Category) (*Category, error)
	HardDelete(ctx context.Context, id int32) error
	SoftDelete(ctx context.Context, id int32, deletedAt time.Time) error
	LoadTransactions(ctx context.Context, categoryID int32) ([]*Transaction, error)
}
