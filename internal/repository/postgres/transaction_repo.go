package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, name, sum, sum_after_tax, category_id, receipt_path, created_at, updated_at`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts a transaction. A missing category surfaces as ErrCategoryNotFound.
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	sum, sumAfterTax, err := transactionAmounts(transaction)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (name, sum, sum_after_tax, category_id, receipt_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		transaction.Name, sum, sumAfterTax, transaction.CategoryID,
		textToPgText(transaction.ReceiptPath), transaction.CreatedAt.UTC(), transaction.UpdatedAt.UTC(),
	)
	created, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err, "insert transaction", nil, nil, domain.ErrCategoryNotFound)
	}
	return created, nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int32) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err, "select transaction", domain.ErrTransactionNotFound, nil, nil)
	}
	return transaction, nil
}

// GetByName returns the oldest transaction with exactly this name
func (r *TransactionRepository) GetByName(ctx context.Context, name string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE name = $1
		ORDER BY created_at, id
		LIMIT 1`, name)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err, "select transaction by name", domain.ErrTransactionNotFound, nil, nil)
	}
	return transaction, nil
}

// GetAll retrieves all transactions ordered by creation time
func (r *TransactionRepository) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	return queryTransactions(ctx, r.pool, "select transactions",
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at, id`)
}

// Update replaces a transaction row
func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	sum, sumAfterTax, err := transactionAmounts(transaction)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET name = $2, sum = $3, sum_after_tax = $4, category_id = $5, receipt_path = $6, created_at = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+transactionColumns,
		transaction.ID, transaction.Name, sum, sumAfterTax, transaction.CategoryID,
		textToPgText(transaction.ReceiptPath), transaction.CreatedAt.UTC(), transaction.UpdatedAt.UTC(),
	)
	updated, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err, "update transaction", domain.ErrTransactionNotFound, nil, domain.ErrCategoryNotFound)
	}
	return updated, nil
}

// HardDelete removes a transaction row
func (r *TransactionRepository) HardDelete(ctx context.Context, id int32) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return domain.StorageError("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SelectInPeriod returns transactions created within period ordered by creation time
func (r *TransactionRepository) SelectInPeriod(ctx context.Context, period domain.Period) ([]*domain.Transaction, error) {
	return queryTransactions(ctx, r.pool, "select transactions in period",
		`SELECT `+transactionColumns+` FROM transactions WHERE `+periodClause("created_at", period)+` ORDER BY created_at, id`,
		period.Start, period.End)
}

// Search returns one page of transactions matching filter. filter must be normalized.
func (r *TransactionRepository) Search(ctx context.Context, filter domain.TransactionFilter) (*domain.PaginatedTransactions, error) {
	where, args := searchClause(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions t JOIN categories c ON c.id = t.category_id WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, domain.StorageError("count transactions", err)
	}

	n := len(args)
	pageQuery := fmt.Sprintf(`SELECT t.id, t.name, t.sum, t.sum_after_tax, t.category_id, t.receipt_path, t.created_at, t.updated_at
		FROM transactions t JOIN categories c ON c.id = t.category_id
		WHERE %s
		ORDER BY t.created_at, t.id
		LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	pageArgs := append(append([]any{}, args...), filter.PageSize, filter.Offset())
	data, err := queryTransactions(ctx, r.pool, "search transactions", pageQuery, pageArgs...)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedTransactions(data, filter, total), nil
}

// SetReceipt stores the receipt object key of a transaction
func (r *TransactionRepository) SetReceipt(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE transactions SET receipt_path = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+transactionColumns,
		id, textToPgText(receiptPath), updatedAt.UTC())
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, mapError(err, "set transaction receipt", domain.ErrTransactionNotFound, nil, nil)
	}
	return transaction, nil
}

func transactionAmounts(t *domain.Transaction) (pgtype.Numeric, pgtype.Numeric, error) {
	sum, err := decimalToPgNumeric(t.Sum)
	if err != nil {
		return pgtype.Numeric{}, pgtype.Numeric{}, fmt.Errorf("%w: invalid sum: %w", domain.ErrValidation, err)
	}
	sumAfterTax, err := decimalToPgNumeric(t.SumAfterTax)
	if err != nil {
		return pgtype.Numeric{}, pgtype.Numeric{}, fmt.Errorf("%w: invalid sum after tax: %w", domain.ErrValidation, err)
	}
	return sum, sumAfterTax, nil
}

// periodClause compares column against $1 and $2
func periodClause(column string, period domain.Period) string {
	if period.IncludeEnd {
		return column + " >= $1 AND " + column + " <= $2"
	}
	return column + " >= $1 AND " + column + " < $2"
}

// searchClause builds the WHERE condition over transactions t joined with categories c
func searchClause(f domain.TransactionFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Start != nil {
		conditions = append(conditions, "t.created_at >= "+next(*f.Start))
	}
	if f.End != nil {
		conditions = append(conditions, "t.created_at <= "+next(*f.End))
	}
	if len(f.CategoryIDs) > 0 {
		conditions = append(conditions, "t.category_id = ANY("+next(f.CategoryIDs)+")")
	}
	if f.NamePrefix != "" {
		conditions = append(conditions, "starts_with(t.name, "+next(f.NamePrefix)+")")
	}
	if f.NameSuffix != "" {
		length := next(utf8.RuneCountInString(f.NameSuffix))
		conditions = append(conditions, "right(t.name, "+length+") = "+next(f.NameSuffix))
	}
	if f.TaxType != nil {
		conditions = append(conditions, "c.tax_type = "+next(string(*f.TaxType)))
	}
	return strings.Join(conditions, " AND "), args
}

func queryTransactions(ctx context.Context, pool *pgxpool.Pool, op, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := pool.Query(ctx, query, args...)
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

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		sum         pgtype.Numeric
		sumAfterTax pgtype.Numeric
		receiptPath pgtype.Text
	)
	if err := row.Scan(&t.ID, &t.Name, &sum, &sumAfterTax, &t.CategoryID, &receiptPath, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Sum = pgNumericToDecimal(sum)
	t.SumAfterTax = pgNumericToDecimal(sumAfterTax)
	t.ReceiptPath = pgTextToString(receiptPath)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}
