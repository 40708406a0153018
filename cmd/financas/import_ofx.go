package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/importer"
	"github.com/Veraticus/financas/internal/ofx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank or credit card statements exported as OFX or QFX into an account.
Lines already imported into the account (same FITID) are skipped, so a file
can be imported again safely.

Examples:
  # Import single file
  financas import-ofx --account 1 ~/Downloads/extrato_jan_2024.ofx

  # Import all OFX files in a directory
  financas import-ofx --account 1 ~/Downloads/*.ofx

  # Preview without saving
  financas import-ofx --account 1 --dry-run extrato.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetInt64("account")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			slog.Info("📥 Importing OFX files...",
				"file_count", len(files),
				"dry_run", dryRun)

			parser := ofx.NewParser()
			var entries []ofx.Entry
			for _, path := range files {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				parsed, err := parser.ParseFile(ctx, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				outf(cmd, "  - %s: %d transactions\n", filepath.Base(path), len(parsed))
				entries = append(entries, parsed...)
			}

			if dryRun {
				previewEntries(cmd, entries)
				outln(cmd, cli.FormatInfo("Dry run complete - no data saved"))
				return nil
			}

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			if _, err := store.GetAccount(ctx, accountID); err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, stop := handler.HandleInterrupts(ctx, "Import")
			defer stop()

			result, err := importer.New(store).Import(ctx, accountID, entries)
			if err != nil {
				return fmt.Errorf("import stopped after %d transactions: %w", result.Imported, err)
			}

			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions, skipped %d already imported, created %d categories",
				result.Imported, result.Skipped, result.CategoriesCreated)))
			return nil
		},
	}

	cmd.Flags().Int64("account", 0, "account receiving the transactions")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func previewEntries(cmd *cobra.Command, entries []ofx.Entry) {
	if len(entries) == 0 {
		outln(cmd, cli.InfoStyle.Render("No transactions found."))
		return
	}

	var oldest, newest time.Time
	net := decimal.Zero
	table := &cli.Table{
		Headers:    []string{"Date", "Description", "Amount", "FITID", "Category hint"},
		RightAlign: map[int]bool{2: true},
	}
	for i, e := range entries {
		t := e.Transaction
		if i == 0 || t.Date.Before(oldest) {
			oldest = t.Date
		}
		if i == 0 || t.Date.After(newest) {
			newest = t.Date
		}
		net = net.Add(t.Effect())
		table.AddRow(t.Date.Format(dateLayout), t.Description, cli.FormatSignedMoney(t.Effect()), t.ExternalID, e.CategoryHint)
	}

	outf(cmd, "\n%s Transaction date range: %s to %s\n", cli.CalendarIcon, oldest.Format(dateLayout), newest.Format(dateLayout))
	outf(cmd, "%s Net amount: %s\n\n", cli.MoneyIcon, cli.FormatSignedMoney(net))
	outln(cmd, table.Render())
}
