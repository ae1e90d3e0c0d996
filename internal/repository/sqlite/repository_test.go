package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createCategory(t *testing.T, repo *CategoryRepository, name string, taxType domain.TaxType) *domain.Category {
	t.Helper()
	c, err := repo.Create(context.Background(), &domain.Category{
		Name:      name,
		TaxAmount: decimal.RequireFromString("12.5"),
		TaxType:   taxType,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	})
	require.NoError(t, err)
	return c
}

func createTransaction(t *testing.T, repo *TransactionRepository, name string, categoryID int32, afterTax string, createdAt time.Time) *domain.Transaction {
	t.Helper()
	tx, err := repo.Create(context.Background(), &domain.Transaction{
		Name:        name,
		Sum:         decimal.RequireFromString(afterTax),
		SumAfterTax: decimal.RequireFromString(afterTax),
		CategoryID:  categoryID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
	require.NoError(t, err)
	return tx
}

func TestCategoryRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	created := createCategory(t, repo, "Food", domain.TaxTypeGeneral)
	assert.NotZero(t, created.ID)
	assert.True(t, created.TaxAmount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, created.CreatedAt.Equal(baseTime))
	assert.Nil(t, created.DeletedAt)

	byName, err := repo.GetActiveByName(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	created.Name = "Groceries"
	created.TaxType = domain.TaxTypeExpense
	created.UpdatedAt = baseTime.Add(time.Hour)
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Name)
	assert.Equal(t, domain.TaxTypeExpense, updated.TaxType)
	assert.True(t, updated.UpdatedAt.Equal(baseTime.Add(time.Hour)))

	require.NoError(t, repo.HardDelete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	assert.ErrorIs(t, repo.HardDelete(ctx, created.ID), domain.ErrCategoryNotFound)
}

func TestCategoryRepository_ActiveNameUniqueness(t *testing.T) {
	db := openTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	first := createCategory(t, repo, "Food", domain.TaxTypeGeneral)

	_, err := repo.Create(ctx, &domain.Category{Name: "Food", TaxType: domain.TaxTypeGeneral, CreatedAt: baseTime, UpdatedAt: baseTime})
	assert.ErrorIs(t, err, domain.ErrCategoryNameTaken)

	require.NoError(t, repo.SoftDelete(ctx, first.ID, baseTime.Add(time.Minute)))

	second := createCategory(t, repo, "Food", domain.TaxTypeGeneral)
	assert.NotEqual(t, first.ID, second.ID)

	deleted, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.DeletedAt.Equal(baseTime.Add(time.Minute)))

	active, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}

func TestCategoryRepository_GetAllActiveOrdersByName(t *testing.T) {
	db := openTestDB(t)
	repo := NewCategoryRepository(db)

	createCategory(t, repo, "Transport", domain.TaxTypeGeneral)
	createCategory(t, repo, "Bills", domain.TaxTypeGeneral)
	createCategory(t, repo, "Food", domain.TaxTypeGeneral)

	all, err := repo.GetAllActive(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Bills", "Food", "Transport"}, []string{all[0].Name, all[1].Name, all[2].Name})
}

func TestCategoryRepository_LoadTransactions(t *testing.T) {
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	transactions := NewTransactionRepository(db)

	food := createCategory(t, categories, "Food", domain.TaxTypeGeneral)
	other := createCategory(t, categories, "Other", domain.TaxTypeGeneral)
	createTransaction(t, transactions, "late", food.ID, "1", baseTime.Add(2*time.Hour))
	createTransaction(t, transactions, "early", food.ID, "1", baseTime)
	createTransaction(t, transactions, "elsewhere", other.ID, "1", baseTime)

	loaded, err := categories.LoadTransactions(context.Background(), food.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "early", loaded[0].Name)
	assert.Equal(t, "late", loaded[1].Name)
}

func TestTransactionRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	food := createCategory(t, categories, "Food", domain.TaxTypeGeneral)
	created := createTransaction(t, repo, "Lunch", food.ID, "-12.34", baseTime)
	assert.NotZero(t, created.ID)
	assert.True(t, created.SumAfterTax.Equal(decimal.RequireFromString("-12.34")))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", got.Name)
	assert.Nil(t, got.ReceiptPath)

	key := "receipts/1/a.jpg"
	withReceipt, err := repo.SetReceipt(ctx, created.ID, &key, baseTime.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, withReceipt.ReceiptPath)
	assert.Equal(t, key, *withReceipt.ReceiptPath)

	withReceipt.Name = "Dinner"
	withReceipt.Sum = decimal.NewFromInt(-20)
	withReceipt.SumAfterTax = decimal.NewFromInt(-20)
	updated, err := repo.Update(ctx, withReceipt)
	require.NoError(t, err)
	assert.Equal(t, "Dinner", updated.Name)
	assert.Equal(t, key, *updated.ReceiptPath)

	require.NoError(t, repo.HardDelete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_MissingCategory(t *testing.T) {
	db := openTestDB(t)
	repo := NewTransactionRepository(db)

	_, err := repo.Create(context.Background(), &domain.Transaction{
		Name: "Orphan", Sum: decimal.NewFromInt(1), SumAfterTax: decimal.NewFromInt(1),
		CategoryID: 404, CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestTransactionRepository_GetByNameReturnsOldest(t *testing.T) {
	db := openTestDB(t)
	food := createCategory(t, NewCategoryRepository(db), "Food", domain.TaxTypeGeneral)
	repo := NewTransactionRepository(db)

	createTransaction(t, repo, "Rent", food.ID, "1", baseTime.Add(time.Hour))
	oldest := createTransaction(t, repo, "Rent", food.ID, "1", baseTime)

	got, err := repo.GetByName(context.Background(), "Rent")
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, got.ID)

	_, err = repo.GetByName(context.Background(), "rent")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_SelectInPeriod(t *testing.T) {
	db := openTestDB(t)
	food := createCategory(t, NewCategoryRepository(db), "Food", domain.TaxTypeGeneral)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	createTransaction(t, repo, "start", food.ID, "1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	createTransaction(t, repo, "mid", food.ID, "1", time.Date(2024, 1, 15, 8, 30, 0, 123000, time.UTC))
	createTransaction(t, repo, "next", food.ID, "1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	month, err := domain.MonthPeriod(2024, 1)
	require.NoError(t, err)
	inMonth, err := repo.SelectInPeriod(ctx, month)
	require.NoError(t, err)
	assert.Len(t, inMonth, 2)

	closed, err := domain.NewClosedPeriod(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	inClosed, err := repo.SelectInPeriod(ctx, closed)
	require.NoError(t, err)
	assert.Len(t, inClosed, 3)
	assert.True(t, inClosed[1].CreatedAt.Equal(time.Date(2024, 1, 15, 8, 30, 0, 123000, time.UTC)))
}

func TestTransactionRepository_Search(t *testing.T) {
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	supplies := createCategory(t, categories, "Supplies", domain.TaxTypeExpense)
	salary := createCategory(t, categories, "Salary", domain.TaxTypeGeneral)
	createTransaction(t, repo, "Office chair", supplies.ID, "-100", baseTime)
	createTransaction(t, repo, "Office desk", supplies.ID, "-300", baseTime.Add(time.Hour))
	createTransaction(t, repo, "office lamp", supplies.ID, "-20", baseTime.Add(2*time.Hour))
	createTransaction(t, repo, "January salary", salary.ID, "2000", baseTime.Add(3*time.Hour))

	expense := domain.TaxTypeExpense
	filter, err := domain.TransactionFilter{NamePrefix: "Office", TaxType: &expense}.Normalize()
	require.NoError(t, err)
	page, err := repo.Search(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)

	filter, err = domain.TransactionFilter{NameSuffix: "salary", CategoryIDs: []int32{salary.ID, 999}}.Normalize()
	require.NoError(t, err)
	page, err = repo.Search(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "January salary", page.Data[0].Name)

	end := baseTime.Add(time.Hour)
	filter, err = domain.TransactionFilter{End: &end, PageSize: 1, Page: 2}.Normalize()
	require.NoError(t, err)
	page, err = repo.Search(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, int32(2), page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Office desk", page.Data[0].Name)
}

func TestReportRepository_SumAfterTaxByCategory(t *testing.T) {
	db := openTestDB(t)
	categories := NewCategoryRepository(db)
	transactions := NewTransactionRepository(db)
	ctx := context.Background()

	food := createCategory(t, categories, "Food", domain.TaxTypeGeneral)
	transport := createCategory(t, categories, "Transport", domain.TaxTypeGeneral)
	createTransaction(t, transactions, "a", food.ID, "100.10", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	createTransaction(t, transactions, "b", food.ID, "199.90", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	createTransaction(t, transactions, "c", transport.ID, "300", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	createTransaction(t, transactions, "d", food.ID, "999", time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, categories.SoftDelete(ctx, transport.ID, baseTime))

	period, err := domain.NewClosedPeriod(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	report, err := NewReportRepository(db).SumAfterTaxByCategory(ctx, period)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.True(t, report["Food"].Equal(decimal.NewFromInt(300)))
	assert.True(t, report["Transport"].Equal(decimal.NewFromInt(300)))
}
