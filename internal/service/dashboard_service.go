package service

import (
	"context"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DashboardService assembles the headline figures for one month
type DashboardService struct {
	transactions *TransactionService
	reportRepo   domain.ReportRepository
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(transactions *TransactionService, reportRepo domain.ReportRepository) *DashboardService {
	return &DashboardService{transactions: transactions, reportRepo: reportRepo}
}

// GetSummary loads balance, month profit and the month's category totals
// concurrently. The first failure cancels the remaining reads.
func (s *DashboardService) GetSummary(ctx context.Context, year, month int) (*domain.DashboardSummary, error) {
	period, err := domain.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}

	var (
		balance decimal.Decimal
		profit  decimal.Decimal
		totals  domain.CategoryReport
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.transactions.GetCompanyBalance(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		profit, err = s.transactions.GetMonthProfit(ctx, month, year)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.reportRepo.SumAfterTaxByCategory(ctx, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		Year:           year,
		Month:          month,
		CompanyBalance: balance,
		MonthProfit:    profit,
		Categories:     totals.Rows(),
	}, nil
}
