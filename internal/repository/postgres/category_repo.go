package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const categoryColumns = `id, name, tax_amount, tax_type, created_at, updated_at, deleted_at`

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a category. A name clash with an active category is rejected
// by the partial unique index and reported as ErrCategoryNameTaken.
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	taxAmount, err := decimalToPgNumeric(category.TaxAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tax amount: %w", domain.ErrValidation, err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, tax_amount, tax_type, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+categoryColumns,
		category.Name, taxAmount, string(category.TaxType),
		category.CreatedAt.UTC(), category.UpdatedAt.UTC(), timeToPgTimestamptz(category.DeletedAt),
	)
	created, err := scanCategory(row)
	if err != nil {
		return nil, mapError(err, "insert category", nil, domain.ErrCategoryNameTaken, nil)
	}
	return created, nil
}

// GetByID retrieves a category by ID, including soft-deleted ones
func (r *CategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	category, err := scanCategory(row)
	if err != nil {
		return nil, mapError(err, "select category", domain.ErrCategoryNotFound, nil, nil)
	}
	return category, nil
}

// GetActiveByName retrieves the active category with exactly this name
func (r *CategoryRepository) GetActiveByName(ctx context.Context, name string) (*domain.Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1 AND deleted_at IS NULL`, name)
	category, err := scanCategory(row)
	if err != nil {
		return nil, mapError(err, "select category by name", domain.ErrCategoryNotFound, nil, nil)
	}
	return category, nil
}

// GetAllActive retrieves active categories ordered by name
func (r *CategoryRepository) GetAllActive(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE deleted_at IS NULL ORDER BY name, id`)
	if err != nil {
		return nil, domain.StorageError("select categories", err)
	}
	defer rows.Close()

	result := make([]*domain.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, domain.StorageError("scan category", err)
		}
		result = append(result, category)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("select categories", err)
	}
	return result, nil
}

// Update replaces name, tax rule and timestamps of a category
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	taxAmount, err := decimalToPgNumeric(category.TaxAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tax amount: %w", domain.ErrValidation, err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $2, tax_amount = $3, tax_type = $4, created_at = $5, updated_at = $6, deleted_at = $7
		WHERE id = $1
		RETURNING `+categoryColumns,
		category.ID, category.Name, taxAmount, string(category.TaxType),
		category.CreatedAt.UTC(), category.UpdatedAt.UTC(), timeToPgTimestamptz(category.DeletedAt),
	)
	updated, err := scanCategory(row)
	if err != nil {
		return nil, mapError(err, "update category", domain.ErrCategoryNotFound, domain.ErrCategoryNameTaken, nil)
	}
	return updated, nil
}

// HardDelete removes a category row
func (r *CategoryRepository) HardDelete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return domain.StorageError("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// SoftDelete marks a category deleted at deletedAt
func (r *CategoryRepository) SoftDelete(ctx context.Context, id int32, deletedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, deletedAt.UTC())
	if err != nil {
		return domain.StorageError("soft delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// LoadTransactions returns the transactions referencing a category
func (r *CategoryRepository) LoadTransactions(ctx context.Context, categoryID int32) ([]*domain.Transaction, error) {
	return queryTransactions(ctx, r.pool, "select category transactions",
		`SELECT `+transactionColumns+` FROM transactions WHERE category_id = $1 ORDER BY created_at, id`, categoryID)
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var (
		c         domain.Category
		taxAmount pgtype.Numeric
		taxType   string
		deletedAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &c.Name, &taxAmount, &taxType, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	c.TaxAmount = pgNumericToDecimal(taxAmount)
	c.TaxType = domain.TaxType(taxType)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.DeletedAt = pgTimestamptzToTime(deletedAt)
	return &c, nil
}
