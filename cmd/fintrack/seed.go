package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/app"
	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var seedCategoryNames = []string{
	"Groceries", "Transport", "Rent", "Health", "Entertainment",
	"Utilities", "Clothing", "Education", "Gifts", "Taxes",
	"Business expenses", "Sports", "Travel", "Fuel", "Cafe",
}

type seedOptions struct {
	Transactions int
	BatchSize    int
	Workers      int
	Seed         uint64
	Now          time.Time
}

type seedResult struct {
	Categories   int
	Transactions int
}

func seedCmd() *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo data",
		Long: `Create the demo categories (reusing any that already exist by name) and a
year's worth of random transactions spread across them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			repos, err := app.OpenRepositories(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.Close()

			opts.Now = time.Now()
			if opts.Seed == 0 {
				opts.Seed = uint64(opts.Now.UnixNano())
			}

			res, err := runSeed(ctx, app.NewServices(repos, nil, nil), opts, os.Stderr)
			if err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("Seeded %d categories and %d transactions", res.Categories, res.Transactions)))
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Transactions, "transactions", 25000, "number of transactions to create")
	cmd.Flags().IntVar(&opts.BatchSize, "batch", 2000, "transactions per batch")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "concurrent inserts within a batch")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0 picks one from the clock)")

	return cmd
}

// runSeed creates the demo categories and opts.Transactions transactions.
// Inputs are drawn from a single generator so the same seed yields the same data.
func runSeed(ctx context.Context, services *app.Services, opts seedOptions, progress io.Writer) (*seedResult, error) {
	if opts.BatchSize < 1 || opts.Workers < 1 || opts.Transactions < 0 {
		return nil, fmt.Errorf("transactions, batch and workers must be positive")
	}
	rnd := rand.New(rand.NewPCG(opts.Seed, opts.Seed>>1))

	categories, err := seedCategories(ctx, services.Categories, rnd)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(opts.Transactions,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Seeding transactions"),
	)

	created := 0
	for start := 0; start < opts.Transactions; start += opts.BatchSize {
		end := min(start+opts.BatchSize, opts.Transactions)
		batch := make([]seedTransaction, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, randomTransaction(rnd, i+1, categories, opts.Now))
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for _, tx := range batch {
			g.Go(func() error {
				if _, err := services.Transactions.Record(gctx, tx.input, tx.createdAt); err != nil {
					return fmt.Errorf("seed transaction %q: %w", tx.input.Name, err)
				}
				_ = bar.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		created = end
		log.Debug().Int("inserted", created).Int("total", opts.Transactions).Msg("Seed batch committed")
	}
	_ = bar.Finish()

	return &seedResult{Categories: len(categories), Transactions: created}, nil
}

// seedCategories returns the demo categories, creating the missing ones with
// a random tax rule
func seedCategories(ctx context.Context, categories *service.CategoryService, rnd *rand.Rand) ([]*domain.Category, error) {
	existing, err := categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*domain.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	result := make([]*domain.Category, 0, len(seedCategoryNames))
	for _, name := range seedCategoryNames {
		if c, ok := byName[name]; ok {
			result = append(result, c)
			continue
		}

		taxType := domain.TaxTypeGeneral
		if rnd.IntN(2) == 1 {
			taxType = domain.TaxTypeExpense
		}
		c, err := categories.Create(ctx, service.CategoryInput{
			Name:      name,
			TaxAmount: decimal.NewFromInt(rnd.Int64N(2000)).Shift(-2),
			TaxType:   taxType,
		})
		if err != nil {
			return nil, fmt.Errorf("seed category %q: %w", name, err)
		}
		result = append(result, c)
	}
	return result, nil
}

type seedTransaction struct {
	input     service.TransactionInput
	createdAt time.Time
}

// randomTransaction draws a sum between 10.00 and 5009.99, an expense three
// times out of four, dated within the year before now
func randomTransaction(rnd *rand.Rand, n int, categories []*domain.Category, now time.Time) seedTransaction {
	category := categories[rnd.IntN(len(categories))]

	sum := decimal.NewFromInt(1000 + rnd.Int64N(500000)).Shift(-2)
	if rnd.IntN(4) != 0 {
		sum = sum.Neg()
	}

	return seedTransaction{
		input: service.TransactionInput{
			Name:       fmt.Sprintf("Transaction #%d", n),
			Sum:        sum,
			CategoryID: category.ID,
		},
		createdAt: now.AddDate(0, 0, -rnd.IntN(365)),
	}
}
