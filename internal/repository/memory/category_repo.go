package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository on a Store
type CategoryRepository struct {
	store *Store
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.DeletedAt == nil && s.nameTaken(category.Name, 0) {
		return nil, domain.ErrCategoryNameTaken
	}
	stored := copyCategory(category)
	stored.ID = s.nextCategoryID
	s.nextCategoryID++
	s.categories[stored.ID] = stored
	return copyCategory(stored), nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return copyCategory(c), nil
}

func (r *CategoryRepository) GetActiveByName(ctx context.Context, name string) (*domain.Category, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.DeletedAt == nil && c.Name == name {
			return copyCategory(c), nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

func (r *CategoryRepository) GetAllActive(ctx context.Context) ([]*domain.Category, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.DeletedAt == nil {
			result = append(result, copyCategory(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	if category.DeletedAt == nil && s.nameTaken(category.Name, category.ID) {
		return nil, domain.ErrCategoryNameTaken
	}
	stored := copyCategory(category)
	s.categories[stored.ID] = stored
	return copyCategory(stored), nil
}

// HardDelete removes a category. Like the SQL schema it refuses while
// transactions still reference the category.
func (r *CategoryRepository) HardDelete(ctx context.Context, id int32) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, t := range s.transactions {
		if t.CategoryID == id {
			return domain.StorageError("delete category", errCategoryReferenced)
		}
	}
	delete(s.categories, id)
	return nil
}

func (r *CategoryRepository) SoftDelete(ctx context.Context, id int32, deletedAt time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	deletedAt = deletedAt.UTC()
	c.DeletedAt = &deletedAt
	c.UpdatedAt = deletedAt
	return nil
}

func (r *CategoryRepository) LoadTransactions(ctx context.Context, categoryID int32) ([]*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedTransactions(func(t *domain.Transaction) bool {
		return t.CategoryID == categoryID
	}), nil
}
