package sqlite

import (
	"context"
	"database/sql"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ReportRepository implements domain.ReportRepository using SQLite
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SumAfterTaxByCategory groups after-tax sums in period by category name.
// Amounts are stored as text and summed in decimal arithmetic.
func (r *ReportRepository) SumAfterTaxByCategory(ctx context.Context, period domain.Period) (domain.CategoryReport, error) {
	where, args := periodClause("t.created_at", period)
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, t.sum_after_tax
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE `+where, args...)
	if err != nil {
		return nil, domain.StorageError("select category report", err)
	}
	defer rows.Close()

	report := make(domain.CategoryReport)
	for rows.Next() {
		var name, amount string
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, domain.StorageError("scan category report", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, domain.StorageError("parse category report", err)
		}
		total, ok := report[name]
		if !ok {
			total = decimal.Zero
		}
		report[name] = total.Add(value)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("select category report", err)
	}
	return report, nil
}
