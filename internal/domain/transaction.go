package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RetentionWindow is how long a transaction must exist before it may be deleted
const RetentionWindow = 14 * 24 * time.Hour

type Transaction struct {
	ID          int32           `json:"id"`
	Name        string          `json:"name"`
	Sum         decimal.Decimal `json:"sum"`
	SumAfterTax decimal.Decimal `json:"sumAfterTax"`
	CategoryID  int32           `json:"categoryId"`
	ReceiptPath *string         `json:"receiptPath,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Deletable reports whether the retention window has elapsed at now.
// A transaction exactly RetentionWindow old is deletable.
func (t *Transaction) Deletable(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= RetentionWindow
}

// TransactionFilter narrows a transaction search. Zero fields do not filter.
type TransactionFilter struct {
	Start       *time.Time
	End         *time.Time
	CategoryIDs []int32
	NamePrefix  string
	NameSuffix  string
	TaxType     *TaxType
	Page        int32
	PageSize    int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize converts bounds to UTC and applies pagination defaults
func (f TransactionFilter) Normalize() (TransactionFilter, error) {
	if f.Start != nil {
		start := f.Start.UTC()
		f.Start = &start
	}
	if f.End != nil {
		end := f.End.UTC()
		f.End = &end
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, ErrInvalidPeriod
	}
	if f.TaxType != nil && !f.TaxType.Valid() {
		return f, ErrInvalidTaxType
	}
	if f.Page < 0 || f.PageSize < 0 {
		return f, ErrInvalidPage
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f, nil
}

// Offset returns the number of rows to skip for the filter's page. It is
// computed in int64 so a huge page number cannot wrap negative.
func (f TransactionFilter) Offset() int64 {
	if f.Page < 1 {
		return 0
	}
	return int64(f.Page-1) * int64(f.PageSize)
}

// PageBounds returns the slice bounds of the filter's page within n matched rows
func (f TransactionFilter) PageBounds(n int) (int, int) {
	total := int64(n)
	start := min(f.Offset(), total)
	end := min(start+int64(f.PageSize), total)
	return int(start), int(end)
}

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

// NewPaginatedTransactions wraps one page of results
func NewPaginatedTransactions(data []*Transaction, filter TransactionFilter, total int64) *PaginatedTransactions {
	totalPages := int32(0)
	if filter.PageSize > 0 {
		totalPages = int32((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	}
	if data == nil {
		data = []*Transaction{}
	}
	return &PaginatedTransactions{
		Data:       data,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// SumAfterTax adds up the after-tax sums of transactions
func SumAfterTax(transactions []*Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(t.SumAfterTax)
	}
	return total
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) (*Transaction, error)
	GetByID(ctx context.Context, id int32) (*Transaction, error)
	// GetByName returns the oldest transaction with the exact name
	GetByName(ctx context.Context, name string) (*Transaction, error)
	GetAll(ctx context.Context) ([]*Transaction, error)
	Update(ctx context.Context, transaction *Transaction) (*Transaction, error)
	HardDelete(ctx context.Context, id int32) error
	SelectInPeriod(ctx context.Context, period Period) ([]*Transaction, error)
	Search(ctx context.Context, filter TransactionFilter) (*PaginatedTransactions, error)
	SetReceipt(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*Transaction, error)
}
