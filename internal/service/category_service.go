package service

import (
	"context"
	"errors"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/shopspring/decimal"
)

// CategoryService handles category business logic
type CategoryService struct {
	categoryRepo   domain.CategoryRepository
	eventPublisher event.Publisher
	now            func() time.Time
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo domain.CategoryRepository) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *CategoryService) SetEventPublisher(publisher event.Publisher) {
	s.eventPublisher = publisher
}

func (s *CategoryService) publishEvent(evt event.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(evt)
	}
}

// CategoryInput holds the caller-editable fields of a category
type CategoryInput struct {
	Name      string
	TaxAmount decimal.Decimal
	TaxType   domain.TaxType
}

// DeleteCheck describes what Delete would do to a category
type DeleteCheck struct {
	Mode             domain.DeleteMode `json:"mode"`
	TransactionCount int               `json:"transactionCount"`
}

// validate checks input and returns the normalized name. existing is the
// category being updated, nil for a new one. The uniqueness check ignores
// existing and is skipped when existing is soft-deleted, since only active
// names must be unique.
func (s *CategoryService) validate(ctx context.Context, existing *domain.Category, input CategoryInput) (string, error) {
	name, err := domain.NormalizeName(input.Name, domain.MaxCategoryNameLength)
	if err != nil {
		return "", err
	}
	if err := domain.ValidateTaxRule(domain.TaxRule{Amount: input.TaxAmount, Type: input.TaxType}); err != nil {
		return "", err
	}

	if existing != nil && existing.IsDeleted() {
		return name, nil
	}

	holder, err := s.categoryRepo.GetActiveByName(ctx, name)
	switch {
	case err == nil:
		if existing == nil || holder.ID != existing.ID {
			return "", domain.ErrCategoryNameTaken
		}
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}
	return name, nil
}

// Create validates and persists a new category
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	name, err := s.validate(ctx, nil, input)
	if err != nil {
		return nil, err
	}

	now := timestamp(s.now)
	created, err := s.categoryRepo.Create(ctx, &domain.Category{
		Name:      name,
		TaxAmount: input.TaxAmount,
		TaxType:   input.TaxType,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(event.CategoryCreated(created))
	return created, nil
}

// Find returns a category by ID, including soft-deleted ones
func (s *CategoryService) Find(ctx context.Context, id int32) (*domain.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// FindAll returns the active categories ordered by name
func (s *CategoryService) FindAll(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.GetAllActive(ctx)
}

// Update replaces the editable fields of a category. createdAt and deletedAt
// are kept.
func (s *CategoryService) Update(ctx context.Context, id int32, input CategoryInput) (*domain.Category, error) {
	existing, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.validate(ctx, existing, input)
	if err != nil {
		return nil, err
	}

	updated, err := s.categoryRepo.Update(ctx, &domain.Category{
		ID:        existing.ID,
		Name:      name,
		TaxAmount: input.TaxAmount,
		TaxType:   input.TaxType,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: timestamp(s.now),
		DeletedAt: existing.DeletedAt,
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(event.CategoryUpdated(updated))
	return updated, nil
}

// CanDelete reports how Delete would remove the category
func (s *CategoryService) CanDelete(ctx context.Context, id int32) (*DeleteCheck, error) {
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	transactions, err := s.categoryRepo.LoadTransactions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DeleteCheck{
		Mode:             domain.DeleteModeFor(len(transactions)),
		TransactionCount: len(transactions),
	}, nil
}

// Delete removes a category. A category without transactions is removed
// permanently; otherwise it is soft-deleted so historical transactions keep
// resolving it.
func (s *CategoryService) Delete(ctx context.Context, id int32) (domain.DeleteMode, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	transactions, err := s.categoryRepo.LoadTransactions(ctx, id)
	if err != nil {
		return "", err
	}

	mode := domain.DeleteModeFor(len(transactions))
	if mode == domain.DeleteModeHard {
		err = s.categoryRepo.HardDelete(ctx, id)
	} else {
		deletedAt := timestamp(s.now)
		err = s.categoryRepo.SoftDelete(ctx, id, deletedAt)
		category.DeletedAt = &deletedAt
	}
	if err != nil {
		return "", err
	}

	s.publishEvent(event.CategoryDeleted(category, mode == domain.DeleteModeSoft))
	return mode, nil
}
