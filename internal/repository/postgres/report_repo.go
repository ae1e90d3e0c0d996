package postgres

import (
	"context"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository implements domain.ReportRepository using PostgreSQL
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// SumAfterTaxByCategory groups after-tax sums in period by category name,
// soft-deleted categories included
func (r *ReportRepository) SumAfterTaxByCategory(ctx context.Context, period domain.Period) (domain.CategoryReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.name, SUM(t.sum_after_tax)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE `+periodClause("t.created_at", period)+`
		GROUP BY c.name`, period.Start, period.End)
	if err != nil {
		return nil, domain.StorageError("select category report", err)
	}
	defer rows.Close()

	report := make(domain.CategoryReport)
	for rows.Next() {
		var (
			name  string
			total pgtype.Numeric
		)
		if err := rows.Scan(&name, &total); err != nil {
			return nil, domain.StorageError("scan category report", err)
		}
		report[name] = pgNumericToDecimal(total)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("select category report", err)
	}
	return report, nil
}
