package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dafibh/fintrack/fintrack-backend/internal/app"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	var categoryID int32

	cmd := &cobra.Command{
		Use:   "import-ofx FILE...",
		Short: "Import OFX/QFX bank statements",
		Long: `Create one transaction per statement line, all in the given category and
dated at their posting time. Lines repeating a FITID within a file are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			repos, err := app.OpenRepositories(ctx, cfg)
			if err != nil {
				return err
			}
			defer repos.Close()

			imports := app.NewServices(repos, nil, nil).Imports
			for _, path := range args {
				res, err := importFile(ctx, imports, path, categoryID)
				if err != nil {
					return err
				}
				printImportResult(os.Stdout, path, res)
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&categoryID, "category", 0, "category ID for the imported transactions")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func importFile(ctx context.Context, imports *service.ImportService, path string, categoryID int32) (*service.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	res, err := imports.ImportOFX(ctx, f, categoryID)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return res, nil
}

func printImportResult(out io.Writer, path string, res *service.ImportResult) {
	fmt.Fprintln(out, headerStyle.Render(path))
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("  created %d", res.Created)))
	if res.Skipped > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  skipped %d duplicates", res.Skipped)))
	}
	for _, lineErr := range res.Errors {
		fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("  %s %q: %s", lineErr.FITID, lineErr.Name, lineErr.Error)))
	}
}
