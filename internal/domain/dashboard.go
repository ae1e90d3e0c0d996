package domain

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one row of a category report
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// CategoryReport maps category name to the sum of after-tax amounts in a period.
// Categories without transactions in the period are absent.
type CategoryReport map[string]decimal.Decimal

// Rows returns the report sorted by category name
func (r CategoryReport) Rows() []CategoryTotal {
	rows := make([]CategoryTotal, 0, len(r))
	for name, total := range r {
		rows = append(rows, CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// Total returns the sum over all categories
func (r CategoryReport) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r {
		total = total.Add(v)
	}
	return total
}

// DashboardSummary contains the headline figures for one month
type DashboardSummary struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	CompanyBalance decimal.Decimal `json:"companyBalance"`
	MonthProfit    decimal.Decimal `json:"monthProfit"`
	Categories     []CategoryTotal `json:"categories"`
}

type ReportRepository interface {
	SumAfterTaxByCategory(ctx context.Context, period Period) (CategoryReport, error)
}
