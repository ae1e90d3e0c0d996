// Package memory implements the domain repositories in process memory. It
// applies the same constraints as the SQL schema: active category names are
// unique and transactions must reference an existing category.
package memory

import (
	"sort"
	"sync"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
)

// Store holds all rows. Repositories built on the same Store see each other's data.
type Store struct {
	mu                sync.RWMutex
	categories        map[int32]*domain.Category
	transactions      map[int32]*domain.Transaction
	nextCategoryID    int32
	nextTransactionID int32
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		categories:        make(map[int32]*domain.Category),
		transactions:      make(map[int32]*domain.Transaction),
		nextCategoryID:    1,
		nextTransactionID: 1,
	}
}

func copyCategory(c *domain.Category) *domain.Category {
	cp := *c
	if c.DeletedAt != nil {
		deletedAt := *c.DeletedAt
		cp.DeletedAt = &deletedAt
	}
	return &cp
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	if t.ReceiptPath != nil {
		path := *t.ReceiptPath
		cp.ReceiptPath = &path
	}
	return &cp
}

// sortedTransactions returns copies ordered by creation time then ID. Callers hold mu.
func (s *Store) sortedTransactions(keep func(*domain.Transaction) bool) []*domain.Transaction {
	result := make([]*domain.Transaction, 0)
	for _, t := range s.transactions {
		if keep == nil || keep(t) {
			result = append(result, copyTransaction(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// nameTaken reports whether an active category other than selfID uses name. Callers hold mu.
func (s *Store) nameTaken(name string, selfID int32) bool {
	for _, c := range s.categories {
		if c.ID != selfID && c.DeletedAt == nil && c.Name == name {
			return true
		}
	}
	return false
}
