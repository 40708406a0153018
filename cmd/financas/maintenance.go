package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) recalculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Rebuild account balances from their transactions",
		Long: `Recompute the current balance of every active account as its initial balance
plus the effect of its active transactions, and fix the accounts that disagree.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			corrections, err := store.RecalculateBalances(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("failed to recalculate balances: %w", err)
			}
			if len(corrections) == 0 {
				outln(cmd, cli.FormatSuccess("All balances match their transactions"))
				return nil
			}

			table := &cli.Table{
				Headers:    []string{"ID", "Account", "Stored", "Computed", "Difference"},
				RightAlign: map[int]bool{2: true, 3: true, 4: true},
			}
			for _, c := range corrections {
				table.AddRow(strconv.FormatInt(c.AccountID, 10), c.AccountName, cli.FormatMoney(c.Stored),
					cli.FormatMoney(c.Computed), cli.FormatSignedMoney(c.Difference()))
			}
			outln(cmd, table.Render())

			if dryRun {
				outln(cmd, cli.FormatInfo(fmt.Sprintf("Dry run: %d balances would be corrected", len(corrections))))
			} else {
				outln(cmd, cli.FormatSuccess(fmt.Sprintf("Corrected %d balances", len(corrections))))
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "report differences without fixing them")
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete every row of the environment",
		Long: `Delete all categories, accounts, payment methods, transactions and recurring
expenses of the selected environment. The schema and its version are kept.
You must type ` + cli.ConfirmationPhrase + ` unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := a.env()
			if err != nil {
				return err
			}
			store, err := a.storeFor(ctx, env)
			if err != nil {
				return err
			}

			if force, _ := cmd.Flags().GetBool("force"); !force {
				outln(cmd, cli.FormatWarning(fmt.Sprintf("This permanently deletes every row of %s (%s).", env, store.Schema())))
				ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).
					ConfirmPhrase(ctx, "Are you sure?", cli.ConfirmationPhrase)
				if err != nil {
					return err
				}
				if !ok {
					outln(cmd, cli.FormatWarning("Cancelled"))
					return nil
				}
			}

			if err := store.CleanData(ctx); err != nil {
				return fmt.Errorf("failed to clean %s: %w", env, err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Cleaned %s", env)))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip the confirmation phrase")
	return cmd
}

func (a *app) copyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Replace one environment with a copy of another",
		Long: `Copy every row of the source environment (prod by default) into the target
(dev by default), keeping ids. The target is cleared first. The copy is all
or nothing: Ctrl-C or a row count mismatch leaves the target untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := config.ParseEnvironment(stringFlag(cmd, "from"))
			if err != nil {
				return err
			}
			to, err := config.ParseEnvironment(stringFlag(cmd, "to"))
			if err != nil {
				return err
			}
			manager, err := a.openManager()
			if err != nil {
				return err
			}

			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Replace every row of %s with the data of %s?", to, from))
			if err != nil || !ok {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, stop := handler.HandleInterrupts(cmd.Context(), "Copy")
			defer stop()

			events := make(chan service.CopyProgress)
			bar := cli.NewCopyProgressBar(cmd.OutOrStdout())
			rendered := make(chan struct{})
			go func() {
				bar.Run(events)
				close(rendered)
			}()

			counts, err := manager.CopyEnvironment(ctx, from, to, events)
			close(events)
			<-rendered
			if err != nil {
				return fmt.Errorf("copy from %s to %s failed: %w", from, to, err)
			}

			printCounts(cmd, counts)
			slog.Info("environment copied", "from", from, "to", to, "tables", len(counts))
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Copied %s into %s", from, to)))
			return nil
		},
	}

	cmd.Flags().String("from", string(config.Prod), "source environment")
	cmd.Flags().String("to", string(config.Dev), "target environment")
	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

func printCounts(cmd *cobra.Command, counts []model.TableCount) {
	table := &cli.Table{
		Headers:    []string{"Table", "Source", "Copied"},
		RightAlign: map[int]bool{1: true, 2: true},
	}
	for _, c := range counts {
		table.AddRow(c.Table, strconv.FormatInt(c.Source, 10), strconv.FormatInt(c.Destination, 10))
	}
	outln(cmd, table.Render())
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
