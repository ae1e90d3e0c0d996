package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/app"
	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dayLayout = "2006-01-02"

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ledger reports",
	}

	cmd.AddCommand(reportCategoriesCmd())
	cmd.AddCommand(reportBalanceCmd())

	return cmd
}

func reportCategoriesCmd() *cobra.Command {
	var start, end, format, output string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show after-tax totals per category",
		Long: `Sum the after-tax amounts of every category over a date range, both ends
included. Without flags the range is the current month up to today.

With --format the report is rendered as csv or pdf and written to --output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			from, to, err := reportRange(start, end, time.Now())
			if err != nil {
				return err
			}

			repos, err := app.OpenRepositories(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.Close()
			services := app.NewServices(repos, nil, nil)

			if format != "" {
				return exportCategories(ctx, services, from, to, format, output)
			}

			totals, err := services.Reports.GetCategoryReport(ctx, from, to)
			if err != nil {
				return err
			}
			return printCategoryReport(os.Stdout, from, to, totals)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default: first day of this month)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&format, "format", "", "export format: csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export file (default: generated file name)")

	return cmd
}

func reportBalanceCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the company balance and a month's profit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			year, mon, err := parseMonth(month, time.Now())
			if err != nil {
				return err
			}

			repos, err := app.OpenRepositories(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.Close()

			summary, err := app.NewServices(repos, nil, nil).Dashboard.GetSummary(ctx, year, mon)
			if err != nil {
				return err
			}
			printBalance(os.Stdout, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month for the profit figure, YYYY-MM (default: this month)")

	return cmd
}

func exportCategories(ctx context.Context, services *app.Services, from, to time.Time, format, output string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	exported, err := services.Reports.ExportCategoryReport(ctx, from, to, f)
	if err != nil {
		return err
	}
	if output == "" {
		output = exported.Filename
	}
	if err := os.WriteFile(output, exported.Data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Println(successStyle.Render("Report written to " + output))
	return nil
}

// reportRange parses the --start and --end days. The end covers its whole day.
func reportRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var err error
	if start != "" {
		if from, err = time.Parse(dayLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: want YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if to, err = time.Parse(dayLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: want YYYY-MM-DD", end)
		}
	}
	return from, to.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// parseMonth parses YYYY-MM, defaulting to the month of now
func parseMonth(value string, now time.Time) (int, int, error) {
	if value == "" {
		now = now.UTC()
		return now.Year(), int(now.Month()), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --month %q: want YYYY-MM", value)
	}
	return t.Year(), int(t.Month()), nil
}

func printCategoryReport(out io.Writer, from, to time.Time, totals domain.CategoryReport) error {
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Categories %s to %s", from.Format(dayLayout), to.Format(dayLayout))))

	rows := totals.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, mutedStyle.Render("No transactions in this period."))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t%s\t\n", "Category", "Total")
	fmt.Fprintf(w, "%s\t%s\t\n", strings.Repeat("-", 20), strings.Repeat("-", 14))
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t\n", row.Category, row.Total.StringFixed(domain.SumPrecision))
	}
	fmt.Fprintf(w, "%s\t%s\t\n", strings.Repeat("-", 20), strings.Repeat("-", 14))
	fmt.Fprintf(w, "%s\t%s\t\n", "Total", totals.Total().StringFixed(domain.SumPrecision))
	return w.Flush()
}

func printBalance(out io.Writer, summary *domain.DashboardSummary) {
	fmt.Fprintf(out, "%s %s\n", headerStyle.Render("Company balance:"), signed(summary.CompanyBalance))
	fmt.Fprintf(out, "%s %s\n", headerStyle.Render(fmt.Sprintf("Profit %04d-%02d:", summary.Year, summary.Month)), signed(summary.MonthProfit))
}

func signed(d decimal.Decimal) string {
	s := d.StringFixed(domain.SumPrecision)
	if d.IsNegative() {
		return negativeStyle.Render(s)
	}
	return positiveStyle.Render(s)
}
