// Package app wires configuration into repositories and services for the
// HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/dafibh/fintrack/fintrack-backend/internal/config"
	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/memory"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/migrations"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/postgres"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/sqlite"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/storage"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// Repositories bundles the persistence collaborators of one provider
type Repositories struct {
	Provider     string
	Categories   domain.CategoryRepository
	Transactions domain.TransactionRepository
	Reports      domain.ReportRepository

	close func()
}

// Close releases the underlying connections
func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// OpenRepositories connects to the configured provider. Postgres and SQLite
// databases are migrated to the latest schema first.
func OpenRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.DBProvider {
	case config.ProviderPostgres:
		if err := migrations.Postgres(cfg.DatabaseURL, migrations.Up); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Connected to database")
		return &Repositories{
			Provider:     cfg.DBProvider,
			Categories:   postgres.NewCategoryRepository(pool),
			Transactions: postgres.NewTransactionRepository(pool),
			Reports:      postgres.NewReportRepository(pool),
			close:        pool.Close,
		}, nil

	case config.ProviderSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Opened SQLite database")
		return &Repositories{
			Provider:     cfg.DBProvider,
			Categories:   sqlite.NewCategoryRepository(db),
			Transactions: sqlite.NewTransactionRepository(db),
			Reports:      sqlite.NewReportRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close SQLite database")
				}
			},
		}, nil

	case config.ProviderMemory:
		store := memory.NewStore()
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		return &Repositories{
			Provider:     cfg.DBProvider,
			Categories:   memory.NewCategoryRepository(store),
			Transactions: memory.NewTransactionRepository(store),
			Reports:      memory.NewReportRepository(store),
		}, nil
	}
	return nil, fmt.Errorf("unknown database provider %q", cfg.DBProvider)
}

// OpenObjectStore returns the S3 store when a bucket is configured, or nil
func OpenObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if !cfg.S3.Enabled() {
		log.Info().Msg("Object storage not configured, receipts and report archives disabled")
		return nil, nil
	}
	store, err := storage.NewS3ObjectStore(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bucket", cfg.S3.Bucket).Msg("Object storage configured")
	return store, nil
}

// Services holds the wired business services
type Services struct {
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Reports      *service.ReportService
	Dashboard    *service.DashboardService
	Imports      *service.ImportService
	Receipts     *service.ReceiptService
}

// NewServices builds the services over repos. objectStore and publisher may
// be nil.
func NewServices(repos *Repositories, objectStore storage.ObjectStore, publisher event.Publisher) *Services {
	categoryService := service.NewCategoryService(repos.Categories)
	transactionService := service.NewTransactionService(repos.Transactions, repos.Categories)
	reportService := service.NewReportService(repos.Reports, objectStore)
	importService := service.NewImportService(transactionService, repos.Categories)
	receiptService := service.NewReceiptService(repos.Transactions, objectStore)

	if objectStore != nil {
		transactionService.SetObjectStore(objectStore)
	}
	if publisher != nil {
		categoryService.SetEventPublisher(publisher)
		transactionService.SetEventPublisher(publisher)
		reportService.SetEventPublisher(publisher)
		importService.SetEventPublisher(publisher)
		receiptService.SetEventPublisher(publisher)
	}

	return &Services{
		Categories:   categoryService,
		Transactions: transactionService,
		Reports:      reportService,
		Dashboard:    service.NewDashboardService(transactionService, repos.Reports),
		Imports:      importService,
		Receipts:     receiptService,
	}
}
