package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
)

const categoryColumns = `id, name, tax_amount, tax_type, created_at, updated_at, deleted_at`

// CategoryRepository implements domain.CategoryRepository using SQLite
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts a category and returns it with its assigned ID
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, tax_amount, tax_type, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+categoryColumns,
		category.Name,
		category.TaxAmount.String(),
		string(category.TaxType),
		formatTime(category.CreatedAt),
		formatTime(category.UpdatedAt),
		nullTime(category.DeletedAt),
	)
	created, err := scanCategory(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrCategoryNameTaken
		}
		return nil, domain.StorageError("insert category", err)
	}
	return created, nil
}

// GetByID retrieves a category by ID, including soft-deleted ones
func (r *CategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	category, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, domain.ErrCategoryNotFound, "select category")
	}
	return category, nil
}

// GetActiveByName retrieves the active category with exactly this name
func (r *CategoryRepository) GetActiveByName(ctx context.Context, name string) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ? AND deleted_at IS NULL`, name)
	category, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, domain.ErrCategoryNotFound, "select category by name")
	}
	return category, nil
}

// GetAllActive retrieves active categories ordered by name
func (r *CategoryRepository) GetAllActive(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE deleted_at IS NULL ORDER BY name, id`)
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
	row := r.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = ?, tax_amount = ?, tax_type = ?, created_at = ?, updated_at = ?, deleted_at = ?
		WHERE id = ?
		RETURNING `+categoryColumns,
		category.Name,
		category.TaxAmount.String(),
		string(category.TaxType),
		formatTime(category.CreatedAt),
		formatTime(category.UpdatedAt),
		nullTime(category.DeletedAt),
		category.ID,
	)
	updated, err := scanCategory(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrCategoryNameTaken
		}
		return nil, notFound(err, domain.ErrCategoryNotFound, "update category")
	}
	return updated, nil
}

// HardDelete removes a category row
func (r *CategoryRepository) HardDelete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return domain.StorageError("delete category", err)
	}
	return expectAffected(res, domain.ErrCategoryNotFound, "delete category")
}

// SoftDelete marks a category deleted at deletedAt
func (r *CategoryRepository) SoftDelete(ctx context.Context, id int32, deletedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		formatTime(deletedAt), formatTime(deletedAt), id)
	if err != nil {
		return domain.StorageError("soft delete category", err)
	}
	return expectAffected(res, domain.ErrCategoryNotFound, "soft delete category")
}

// LoadTransactions returns the transactions referencing a category
func (r *CategoryRepository) LoadTransactions(ctx context.Context, categoryID int32) ([]*domain.Transaction, error) {
	return queryTransactions(ctx, r.db, "select category transactions",
		`SELECT `+transactionColumns+` FROM transactions WHERE category_id = ? ORDER BY created_at, id`, categoryID)
}

func scanCategory(row scanner) (*domain.Category, error) {
	var (
		c         domain.Category
		taxAmount string
		taxType   string
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		err       error
	)
	if err := row.Scan(&c.ID, &c.Name, &taxAmount, &taxType, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if c.TaxAmount, err = parseDecimal(taxAmount); err != nil {
		return nil, fmt.Errorf("category %d tax_amount: %w", c.ID, err)
	}
	c.TaxType = domain.TaxType(taxType)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("category %d created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("category %d updated_at: %w", c.ID, err)
	}
	if c.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("category %d deleted_at: %w", c.ID, err)
	}
	return &c, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func expectAffected(res sql.Result, notFoundErr error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StorageError(op, err)
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
