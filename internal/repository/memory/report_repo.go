package memory

import (
	"context"
	"fmt"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ReportRepository implements domain.ReportRepository on a Store
type ReportRepository struct {
	store *Store
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(store *Store) *ReportRepository {
	return &ReportRepository{store: store}
}

func (r *ReportRepository) SumAfterTaxByCategory(ctx context.Context, period domain.Period) (domain.CategoryReport, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := make(domain.CategoryReport)
	for _, t := range s.transactions {
		if !period.Contains(t.CreatedAt) {
			continue
		}
		c, ok := s.categories[t.CategoryID]
		if !ok {
			return nil, domain.StorageError("category report", fmt.Errorf("transaction %d references missing category %d", t.ID, t.CategoryID))
		}
		total, ok := report[c.Name]
		if !ok {
			total = decimal.Zero
		}
		report[c.Name] = total.Add(t.SumAfterTax)
	}
	return report, nil
}
