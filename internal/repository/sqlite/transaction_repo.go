package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
)

const transactionColumns = `id, name, sum, sum_after_tax, category_id, receipt_path, created_at, updated_at`

// TransactionRepository implements domain.TransactionRepository using SQLite
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction and returns it with its assigned ID
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (name, sum, sum_after_tax, category_id, receipt_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+transactionColumns,
		transaction.Name,
		transaction.Sum.String(),
		transaction.SumAfterTax.String(),
		transaction.CategoryID,
		nullString(transaction.ReceiptPath),
		formatTime(transaction.CreatedAt),
		formatTime(transaction.UpdatedAt),
	)
	created, err := scanTransaction(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, domain.StorageError("insert transaction", err)
	}
	return created, nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int32) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "select transaction")
	}
	return transaction, nil
}

// GetByName returns the oldest transaction with exactly this name
func (r *TransactionRepository) GetByName(ctx context.Context, name string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE name = ?
		ORDER BY created_at, id
		LIMIT 1`, name)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "select transaction by name")
	}
	return transaction, nil
}

// GetAll retrieves all transactions ordered by creation time
func (r *TransactionRepository) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	return queryTransactions(ctx, r.db, "select transactions",
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at, id`)
}

// Update replaces a transaction row
func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET name = ?, sum = ?, sum_after_tax = ?, category_id = ?, receipt_path = ?, created_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+transactionColumns,
		transaction.Name,
		transaction.Sum.String(),
		transaction.SumAfterTax.String(),
		transaction.CategoryID,
		nullString(transaction.ReceiptPath),
		formatTime(transaction.CreatedAt),
		formatTime(transaction.UpdatedAt),
		transaction.ID,
	)
	updated, err := scanTransaction(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, notFound(err, domain.ErrTransactionNotFound, "update transaction")
	}
	return updated, nil
}

// HardDelete removes a transaction row
func (r *TransactionRepository) HardDelete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return domain.StorageError("delete transaction", err)
	}
	return expectAffected(res, domain.ErrTransactionNotFound, "delete transaction")
}

// SelectInPeriod returns transactions created within period ordered by creation time
func (r *TransactionRepository) SelectInPeriod(ctx context.Context, period domain.Period) ([]*domain.Transaction, error) {
	where, args := periodClause("created_at", period)
	return queryTransactions(ctx, r.db, "select transactions in period",
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+` ORDER BY created_at, id`, args...)
}

// Search returns one page of transactions matching filter. filter must be normalized.
func (r *TransactionRepository) Search(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	where, args := searchClause(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions t JOIN categories c ON c.id = t.category_id WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, domain.StorageError("count transactions", err)
	}

	pageQuery := `SELECT t.id, t.name, t.sum, t.sum_after_tax, t.category_id, t.receipt_path, t.created_at, t.updated_at
		FROM transactions t JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		ORDER BY t.created_at, t.id
		LIMIT ? OFFSET ?`
	pageArgs := append(append([]any{}, args...), filter.PageSize, filter.Offset())
	data, err := queryTransactions(ctx, r.db, "search transactions", pageQuery, pageArgs...)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedTransactions(data, filter, total), nil
}

// SetReceipt stores the receipt object key of a transaction
func (r *TransactionRepository) SetReceipt(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE transactions SET receipt_path = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+transactionColumns,
		nullString(receiptPath), formatTime(updatedAt), id)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "set transaction receipt")
	}
	return transaction, nil
}

func periodClause(column string, period domain.Period) (string, []any) {
	op := "<"
	if period.IncludeEnd {
		op = "<="
	}
	return fmt.Sprintf("%s >= ? AND %s %s ?", column, column, op),
		[]any{formatTime(period.Start), formatTime(period.End)}
}

func searchClause(f domain.TransactionFilter) (string, []any) {
	conditions := []string{"1 = 1"}
	var args []any

	if f.Start != nil {
		conditions = append(conditions, "t.created_at >= ?")
		args = append(args, formatTime(*f.Start))
	}
	if f.End != nil {
		conditions = append(conditions, "t.created_at <= ?")
		args = append(args, formatTime(*f.End))
	}
	if len(f.CategoryIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.CategoryIDs)), ", ")
		conditions = append(conditions, "t.category_id IN ("+placeholders+")")
		for _, id := range f.CategoryIDs {
			args = append(args, id)
		}
	}
	// exact, case-sensitive matches; LIKE would fold ASCII case
	if f.NamePrefix != "" {
		conditions = append(conditions, "substr(t.name, 1, ?) = ?")
		args = append(args, utf8.RuneCountInString(f.NamePrefix), f.NamePrefix)
	}
	if f.NameSuffix != "" {
		conditions = append(conditions, "substr(t.name, -?) = ?")
		args = append(args, utf8.RuneCountInString(f.NameSuffix), f.NameSuffix)
	}
	if f.TaxType != nil {
		conditions = append(conditions, "c.tax_type = ?")
		args = append(args, string(*f.TaxType))
	}
	return strings.Join(conditions, " AND "), args
}

func queryTransactions(ctx context.Context, db *sql.DB, op, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError(op, err)
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.StorageError(op, err)
		}
		result = append(result, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(op, err)
	}
	return result, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		sum         string
		sumAfterTax string
		receiptPath sql.NullString
		createdAt   string
		updatedAt   string
		err         error
	)
	if err := row.Scan(&t.ID, &t.Name, &sum, &sumAfterTax, &t.CategoryID, &receiptPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if t.Sum, err = parseDecimal(sum); err != nil {
		return nil, fmt.Errorf("transaction %d sum: %w", t.ID, err)
	}
	if t.SumAfterTax, err = parseDecimal(sumAfterTax); err != nil {
		return nil, fmt.Errorf("transaction %d sum_after_tax: %w", t.ID, err)
	}
	t.ReceiptPath = stringPtr(receiptPath)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("transaction %d created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("transaction %d updated_at: %w", t.ID, err)
	}
	return &t, nil
}
