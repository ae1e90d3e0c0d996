package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
)

var errCategoryReferenced = errors.New("category is referenced by transactions")

// TransactionRepository implements domain.TransactionRepository on a Store
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[transaction.CategoryID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	stored := copyTransaction(transaction)
	stored.ID = s.nextTransactionID
	s.nextTransactionID++
	s.transactions[stored.ID] = stored
	return copyTransaction(stored), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int32) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTransaction(t), nil
}

func (r *TransactionRepository) GetByName(ctx context.Context, name string) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.sortedTransactions(func(t *domain.Transaction) bool { return t.Name == name })
	if len(matches) == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return matches[0], nil
}

func (r *TransactionRepository) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedTransactions(nil), nil
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[transaction.ID]; !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if _, ok := s.categories[transaction.CategoryID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	stored := copyTransaction(transaction)
	s.transactions[stored.ID] = stored
	return copyTransaction(stored), nil
}

func (r *TransactionRepository) HardDelete(ctx context.Context, id int32) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (r *TransactionRepository) SelectInPeriod(ctx context.Context, period domain.Period) ([]*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedTransactions(func(t *domain.Transaction) bool {
		return period.Contains(t.CreatedAt)
	}), nil
}

// Search returns one page of transactions matching filter. filter must be normalized.
func (r *TransactionRepository) Search(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	categoryIDs := make(map[int32]bool, len(filter.CategoryIDs))
	for _, id := range filter.CategoryIDs {
		categoryIDs[id] = true
	}

	matched := s.sortedTransactions(func(t *domain.Transaction) bool {
		if filter.Start != nil && t.CreatedAt.Before(*filter.Start) {
			return false
		}
		if filter.End != nil && t.CreatedAt.After(*filter.End) {
			return false
		}
		if len(categoryIDs) > 0 && !categoryIDs[t.CategoryID] {
			return false
		}
		if !strings.HasPrefix(t.Name, filter.NamePrefix) || !strings.HasSuffix(t.Name, filter.NameSuffix) {
			return false
		}
		if filter.TaxType != nil {
			c, ok := s.categories[t.CategoryID]
			if !ok || c.TaxType != *filter.TaxType {
				return false
			}
		}
		return true
	})

	total := int64(len(matched))
	start, end := filter.PageBounds(len(matched))
	return domain.NewPaginatedTransactions(matched[start:end], filter, total), nil
}

func (r *TransactionRepository) SetReceipt(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if receiptPath != nil {
		path := *receiptPath
		t.ReceiptPath = &path
	} else {
		t.ReceiptPath = nil
	}
	t.UpdatedAt = updatedAt.UTC()
	return copyTransaction(t), nil
}
