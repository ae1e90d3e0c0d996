package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/ofx"
	"github.com/rs/zerolog/log"
)

// ImportLineError reports a statement line that could not be imported
type ImportLineError struct {
	FITID string `json:"fitid"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportResult summarizes one statement import
type ImportResult struct {
	Created      int               `json:"created"`
	Skipped      int               `json:"skipped"`
	Errors       []ImportLineError `json:"errors"`
	Transactions []int32           `json:"transactionIds"`
}

// ImportService turns bank statements into transactions
type ImportService struct {
	transactions   *TransactionService
	categoryRepo   domain.CategoryRepository
	eventPublisher event.Publisher
}

// NewImportService creates a new ImportService
func NewImportService(transactions *TransactionService, categoryRepo domain.CategoryRepository) *ImportService {
	return &ImportService{transactions: transactions, categoryRepo: categoryRepo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ImportService) SetEventPublisher(publisher event.Publisher) {
	s.eventPublisher = publisher
}

// ImportOFX creates one transaction per statement line, all in categoryID.
// Like any other write, the transactions are created now; the posting date in
// the statement does not move them past the retention window. Lines repeating a FITID already seen in the
// same file are skipped. A line failing validation is reported and does not
// stop the import; storage failures do.
func (s *ImportService) ImportOFX(ctx context.Context, r io.Reader, categoryID int32) (*ImportResult, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.IsDeleted() {
		return nil, domain.ErrCategoryNotFound
	}

	lines, err := ofx.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	result := &ImportResult{Errors: []ImportLineError{}, Transactions: []int32{}}
	seen := make(map[string]bool, len(lines))

	for _, line := range lines {
		if line.FITID != "" {
			if seen[line.FITID] {
				result.Skipped++
				continue
			}
			seen[line.FITID] = true
		}

		created, err := s.transactions.Create(ctx, TransactionInput{
			Name:       line.Name,
			Sum:        line.Amount,
			CategoryID: categoryID,
		})
		if err != nil {
			if !errors.Is(err, domain.ErrValidation) {
				return nil, err
			}
			result.Errors = append(result.Errors, ImportLineError{FITID: line.FITID, Name: line.Name, Error: err.Error()})
			continue
		}
		result.Created++
		result.Transactions = append(result.Transactions, created.ID)
	}

	log.Info().
		Int32("category_id", categoryID).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", len(result.Errors)).
		Msg("Imported OFX statement")

	if s.eventPublisher != nil && result.Created > 0 {
		s.eventPublisher.Publish(event.TransactionsImported(result))
	}
	return result, nil
}
