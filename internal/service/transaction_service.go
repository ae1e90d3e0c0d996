package service

import (
	"context"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/storage"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TransactionService handles transaction business logic and the balance and
// profit aggregates built on it
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	objectStore     storage.ObjectStore
	eventPublisher  event.Publisher
	now             func() time.Time
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(transactionRepo domain.TransactionRepository, categoryRepo domain.CategoryRepository) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TransactionService) SetEventPublisher(publisher event.Publisher) {
	s.eventPublisher = publisher
}

// SetObjectStore lets Delete remove the receipt object of a deleted transaction
func (s *TransactionService) SetObjectStore(store storage.ObjectStore) {
	s.objectStore = store
}

func (s *TransactionService) publishEvent(evt event.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(evt)
	}
}

// TransactionInput holds the caller-editable fields of a transaction
type TransactionInput struct {
	Name       string
	Sum        decimal.Decimal
	CategoryID int32
}

// resolveCategory loads the category a transaction will reference. A
// soft-deleted category is only acceptable when it is already the
// transaction's category (keepID).
func (s *TransactionService) resolveCategory(ctx context.Context, categoryID, keepID int32) (*domain.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.IsDeleted() && category.ID != keepID {
		return nil, domain.ErrCategoryNotFound
	}
	return category, nil
}

// Create validates input, computes the after-tax sum and persists the transaction
func (s *TransactionService) Create(ctx context.Context, input TransactionInput) (*domain.Transaction, error) {
	return s.Record(ctx, input, timestamp(s.now))
}

// Record is Create with an explicit creation time. Only the demo seeder uses
// it; createdAt of API and import writes always comes from the service clock.
func (s *TransactionService) Record(ctx context.Context, input TransactionInput, createdAt time.Time) (*domain.Transaction, error) {
	name, err := domain.NormalizeName(input.Name, domain.MaxTransactionNameLength)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, input.CategoryID, 0)
	if err != nil {
		return nil, err
	}

	sum := input.Sum.Round(domain.SumPrecision)
	afterTax, err := domain.ComputeAfterTax(sum, category.TaxRule())
	if err != nil {
		return nil, err
	}

	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	created, err := s.transactionRepo.Create(ctx, &domain.Transaction{
		Name:        name,
		Sum:         sum,
		SumAfterTax: afterTax,
		CategoryID:  category.ID,
		CreatedAt:   createdAt,
		UpdatedAt:   timestamp(s.now),
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(event.TransactionCreated(created))
	return created, nil
}

// Find returns a transaction by ID
func (s *TransactionService) Find(ctx context.Context, id int32) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}

// FindAll returns every transaction ordered by creation time
func (s *TransactionService) FindAll(ctx context.Context) ([]*domain.Transaction, error) {
	return s.transactionRepo.GetAll(ctx)
}

// FindByName returns the oldest transaction with exactly this name
func (s *TransactionService) FindByName(ctx context.Context, name string) (*domain.Transaction, error) {
	return s.transactionRepo.GetByName(ctx, name)
}

// Update replaces name, sum and category and recomputes the after-tax sum
func (s *TransactionService) Update(ctx context.Context, id int32, input TransactionInput) (*domain.Transaction, error) {
	existing, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := domain.NormalizeName(input.Name, domain.MaxTransactionNameLength)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, input.CategoryID, existing.CategoryID)
	if err != nil {
		return nil, err
	}

	sum := input.Sum.Round(domain.SumPrecision)
	afterTax, err := domain.ComputeAfterTax(sum, category.TaxRule())
	if err != nil {
		return nil, err
	}

	updated, err := s.transactionRepo.Update(ctx, &domain.Transaction{
		ID:          existing.ID,
		Name:        name,
		Sum:         sum,
		SumAfterTax: afterTax,
		CategoryID:  category.ID,
		ReceiptPath: existing.ReceiptPath,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   timestamp(s.now),
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(event.TransactionUpdated(updated))
	return updated, nil
}

// Delete removes a transaction once the retention window has elapsed
func (s *TransactionService) Delete(ctx context.Context, id int32) error {
	transaction, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !transaction.Deletable(s.now().UTC()) {
		return domain.ErrRetentionWindow
	}

	if err := s.transactionRepo.HardDelete(ctx, id); err != nil {
		return err
	}

	if transaction.ReceiptPath != nil && s.objectStore != nil {
		if err := s.objectStore.Delete(ctx, *transaction.ReceiptPath); err != nil {
			log.Warn().
				Err(err).
				Int32("transaction_id", id).
				Str("receipt_path", *transaction.ReceiptPath).
				Msg("Failed to delete receipt of deleted transaction")
		}
	}

	s.publishEvent(event.TransactionDeleted(transaction))
	return nil
}

// GetCompanyBalance sums the after-tax amounts of all transactions
func (s *TransactionService) GetCompanyBalance(ctx context.Context) (decimal.Decimal, error) {
	transactions, err := s.transactionRepo.GetAll(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.SumAfterTax(transactions), nil
}

// GetMonthTransactions returns transactions created in the given calendar month (UTC)
func (s *TransactionService) GetMonthTransactions(ctx context.Context, month, year int) ([]*domain.Transaction, error) {
	period, err := domain.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.SelectInPeriod(ctx, period)
}

// GetMonthProfit sums the after-tax amounts of the given calendar month
func (s *TransactionService) GetMonthProfit(ctx context.Context, month, year int) (decimal.Decimal, error) {
	transactions, err := s.GetMonthTransactions(ctx, month, year)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.SumAfterTax(transactions), nil
}

// GetPeriodTransactions returns transactions created in [start, end]
func (s *TransactionService) GetPeriodTransactions(ctx context.Context, start, end time.Time) ([]*domain.Transaction, error) {
	period, err := domain.NewClosedPeriod(start, end)
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.SelectInPeriod(ctx, period)
}

// GetPeriodProfit sums the after-tax amounts of transactions created in [start, end]
func (s *TransactionService) GetPeriodProfit(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	transactions, err := s.GetPeriodTransactions(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.SumAfterTax(transactions), nil
}

// Search returns one page of transactions matching filter
func (s *TransactionService) Search(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.Search(ctx, filter)
}
