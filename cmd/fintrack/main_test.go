package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/app"
	"github.com/dafibh/fintrack/fintrack-backend/internal/config"
	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryServices(t *testing.T) *app.Services {
	t.Helper()
	repos, err := app.OpenRepositories(context.Background(), &config.Config{DBProvider: config.ProviderMemory})
	require.NoError(t, err)
	t.Cleanup(repos.Close)
	return app.NewServices(repos, nil, nil)
}

func TestRunSeed(t *testing.T) {
	ctx := context.Background()
	services := newMemoryServices(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	res, err := runSeed(ctx, services, seedOptions{Transactions: 45, BatchSize: 20, Workers: 3, Seed: 42, Now: now}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, len(seedCategoryNames), res.Categories)
	assert.Equal(t, 45, res.Transactions)

	categories, err := services.Categories.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, categories, len(seedCategoryNames))
	byID := make(map[int32]*domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
		assert.True(t, c.TaxAmount.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, c.TaxAmount.LessThan(decimal.NewFromInt(20)))
	}

	txs, err := services.Transactions.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 45)
	for _, tx := range txs {
		category, ok := byID[tx.CategoryID]
		require.True(t, ok)

		want, err := domain.ComputeAfterTax(tx.Sum, category.TaxRule())
		require.NoError(t, err)
		assert.True(t, want.Equal(tx.SumAfterTax), "transaction %d", tx.ID)
		assert.True(t, tx.Sum.Abs().GreaterThanOrEqual(decimal.NewFromInt(10)))
		assert.False(t, tx.CreatedAt.After(now))
		assert.True(t, tx.CreatedAt.After(now.AddDate(-1, 0, -1)))
	}
}

func TestRunSeed_ReusesExistingCategories(t *testing.T) {
	ctx := context.Background()
	services := newMemoryServices(t)
	opts := seedOptions{Transactions: 5, BatchSize: 2, Workers: 1, Seed: 7, Now: time.Now()}

	_, err := runSeed(ctx, services, opts, io.Discard)
	require.NoError(t, err)
	_, err = runSeed(ctx, services, opts, io.Discard)
	require.NoError(t, err)

	categories, err := services.Categories.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(seedCategoryNames))

	txs, err := services.Transactions.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 10)
}

func TestRunSeed_InvalidOptions(t *testing.T) {
	services := newMemoryServices(t)
	for _, opts := range []seedOptions{
		{Transactions: 10, BatchSize: 0, Workers: 1},
		{Transactions: 10, BatchSize: 5, Workers: 0},
		{Transactions: -1, BatchSize: 5, Workers: 1},
	} {
		_, err := runSeed(context.Background(), services, opts, io.Discard)
		assert.Error(t, err)
	}
}

func TestReportRange(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults to month to date",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "explicit days cover the whole end day",
			start:     "2024-01-01",
			end:       "2024-01-31",
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{name: "bad start", start: "01/01/2024", wantErr: true},
		{name: "bad end", end: "2024-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := reportRange(tt.start, tt.end, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	year, month, err := parseMonth("", now)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	year, month, err = parseMonth("2023-11", now)
	require.NoError(t, err)
	assert.Equal(t, 2023, year)
	assert.Equal(t, 11, month)

	_, _, err = parseMonth("2023-1", now)
	assert.Error(t, err)
}

func TestPrintCategoryReport(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, printCategoryReport(&buf, from, to, domain.CategoryReport{
		"Food":      decimal.NewFromInt(300),
		"Transport": decimal.RequireFromString("-42.5"),
	}))

	out := buf.String()
	assert.Contains(t, out, "2024-01-01 to 2024-01-31")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "300.00")
	assert.Contains(t, out, "-42.50")
	assert.Contains(t, out, "257.50")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Food")), bytes.Index(buf.Bytes(), []byte("Transport")))
}

func TestPrintCategoryReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCategoryReport(&buf, time.Now(), time.Now(), domain.CategoryReport{}))
	assert.Contains(t, buf.String(), "No transactions in this period.")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestPrintCategoryReport_WriteError(t *testing.T) {
	err := printCategoryReport(failingWriter{}, time.Now(), time.Now(), domain.CategoryReport{
		"Food": decimal.NewFromInt(300),
	})
	assert.EqualError(t, err, "broken pipe")
}

func TestPrintBalance(t *testing.T) {
	var buf bytes.Buffer
	printBalance(&buf, &domain.DashboardSummary{
		Year:           2024,
		Month:          2,
		CompanyBalance: decimal.NewFromInt(1500),
		MonthProfit:    decimal.RequireFromString("-20.1"),
	})

	assert.Contains(t, buf.String(), "1500.00")
	assert.Contains(t, buf.String(), "Profit 2024-02:")
	assert.Contains(t, buf.String(), "-20.10")
}

func TestRunMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")
	sqliteCfg := &config.Config{DBProvider: config.ProviderSQLite, SQLitePath: path}

	require.NoError(t, runMigrate(sqliteCfg, migrations.Up))
	require.NoError(t, runMigrate(sqliteCfg, migrations.Down))

	err := runMigrate(&config.Config{DBProvider: config.ProviderMemory}, migrations.Up)
	assert.ErrorIs(t, err, errMemoryProvider)
}

func TestImportFile_Errors(t *testing.T) {
	services := newMemoryServices(t)

	_, err := importFile(context.Background(), services.Imports, filepath.Join(t.TempDir(), "missing.ofx"), 1)
	assert.Error(t, err)
}
