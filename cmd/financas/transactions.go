package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Record receipts, expenses and transfers",
		Long: `List, add, update and delete transactions. Every change updates the
balance of the accounts involved in the same database transaction.`,
	}

	cmd.AddCommand(a.listTransactionsCmd())
	cmd.AddCommand(a.showTransactionCmd())
	cmd.AddCommand(a.addTransactionCmd())
	cmd.AddCommand(a.updateTransactionCmd())
	cmd.AddCommand(a.deleteTransactionCmd())
	cmd.AddCommand(a.transferCmd())
	cmd.AddCommand(a.summaryCmd())

	return cmd
}

func (a *app) listTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			filter := service.TransactionFilter{
				AccountID:  optionalID(cmd, "account"),
				CategoryID: optionalID(cmd, "category"),
			}
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			filter.IncludeInactive, _ = cmd.Flags().GetBool("all")
			if filter.Kind, err = kindFlag(cmd); err != nil {
				return err
			}
			for flag, target := range map[string]**time.Time{"from": &filter.StartDate, "to": &filter.EndDate} {
				if s, ok := changedString(cmd, flag); ok {
					d, err := parseDate(s)
					if err != nil {
						return err
					}
					*target = &d
				}
			}

			txns, err := store.ListTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}
			if len(txns) == 0 {
				outln(cmd, cli.InfoStyle.Render("No transactions found."))
				return nil
			}

			table := &cli.Table{
				Headers:    []string{"ID", "Date", "Kind", "Description", "Amount", "Account", "Category"},
				RightAlign: map[int]bool{4: true},
			}
			for _, t := range txns {
				kind := t.Kind.Label()
				if t.IsTransferLeg() {
					kind += " " + string(t.Side)
				}
				table.AddRow(strconv.FormatInt(t.ID, 10), t.Date.Format(dateLayout), kind, t.Description,
					cli.FormatSignedMoney(t.Effect()), formatOptionalID(t.AccountID), formatOptionalID(t.CategoryID))
			}
			outln(cmd, table.Render())
			return nil
		},
	}

	cmd.Flags().String("from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().Int64("account", 0, "only this account")
	cmd.Flags().Int64("category", 0, "only this category")
	cmd.Flags().String("kind", "", "only this kind (R, D, T)")
	cmd.Flags().Int("limit", 50, "maximum rows (0 for all)")
	cmd.Flags().Bool("all", false, "include inactive transactions")
	return cmd
}

func (a *app) showTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a transaction, and its pair when it is a transfer leg",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			t, err := store.GetTransaction(ctx, id)
			if err != nil {
				return err
			}

			table := &cli.Table{Headers: []string{"Field", "Value"}}
			table.AddRow("id", strconv.FormatInt(t.ID, 10))
			table.AddRow("date", t.Date.Format(dateLayout))
			table.AddRow("kind", t.Kind.Label())
			table.AddRow("description", t.Description)
			table.AddRow("amount", cli.FormatMoney(t.Amount))
			table.AddRow("account", formatOptionalID(t.AccountID))
			table.AddRow("category", formatOptionalID(t.CategoryID))
			table.AddRow("payment method", formatOptionalID(t.PaymentMethodID))
			table.AddRow("payment description", t.PaymentDescription)
			table.AddRow("location", t.Location)
			table.AddRow("notes", t.Notes)
			table.AddRow("external id", t.ExternalID)
			table.AddRow("active", activeLabel(t.Active))
			outln(cmd, table.Render())

			if !t.IsTransferLeg() {
				return nil
			}
			transfer, err := store.GetTransfer(ctx, t.TransferID)
			if err != nil {
				return err
			}
			outf(cmd, "\nTransfer %s: %s from account %s (leg %d) to account %s (leg %d)\n",
				transfer.ID, cli.FormatMoney(transfer.Debit.Amount),
				formatOptionalID(transfer.Debit.AccountID), transfer.Debit.ID,
				formatOptionalID(transfer.Credit.AccountID), transfer.Credit.ID)
			return nil
		},
	}
}

// addTransactionFlags registers the fields shared by add and update.
func addTransactionFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("amount", "", "amount, always positive")
	cmd.Flags().String("date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().String("kind", "D", "R for receipt, D for expense")
	cmd.Flags().Int64("account", 0, "account id")
	cmd.Flags().Int64("category", 0, "category id")
	cmd.Flags().Int64("payment-method", 0, "payment method id")
	cmd.Flags().String("payment-description", "", "payment details")
	cmd.Flags().String("location", "", "where it happened")
	cmd.Flags().String("notes", "", "notes")
}

// applyTransactionFlags copies the changed flags onto t.
func applyTransactionFlags(cmd *cobra.Command, t *model.Transaction) error {
	var err error
	if v, ok := changedString(cmd, "description"); ok {
		t.Description = v
	}
	if v, ok := changedString(cmd, "amount"); ok {
		if t.Amount, err = parseAmount(v); err != nil {
			return err
		}
	}
	if v, ok := changedString(cmd, "date"); ok {
		if t.Date, err = parseDate(v); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("kind") {
		if t.Kind, err = kindFlag(cmd); err != nil {
			return err
		}
	}
	for flag, target := range map[string]**int64{
		"account":        &t.AccountID,
		"category":       &t.CategoryID,
		"payment-method": &t.PaymentMethodID,
	} {
		if cmd.Flags().Changed(flag) {
			*target = optionalID(cmd, flag)
		}
	}
	if v, ok := changedString(cmd, "payment-description"); ok {
		t.PaymentDescription = v
	}
	if v, ok := changedString(cmd, "location"); ok {
		t.Location = v
	}
	if v, ok := changedString(cmd, "notes"); ok {
		t.Notes = v
	}
	return nil
}

func (a *app) addTransactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a receipt or an expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			t := &model.Transaction{Kind: model.KindExpense, Active: true}
			if t.Date, err = parseDate(""); err != nil {
				return err
			}
			if err := applyTransactionFlags(cmd, t); err != nil {
				return err
			}

			if err := store.CreateTransaction(ctx, t); err != nil {
				return fmt.Errorf("failed to add transaction: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Recorded %s %q of %s (id %d)",
				t.Kind.Label(), t.Description, cli.FormatMoney(t.Amount), t.ID)))
			return nil
		},
	}

	addTransactionFlags(cmd)
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) updateTransactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a receipt or an expense",
		Long: `Change the given fields of a transaction. Balances move from the old values to
the new ones, including when the account changes. Transfer legs are changed
with 'transactions transfer --id'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			t, err := store.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			if t.IsTransferLeg() {
				return common.NewUserError(
					fmt.Sprintf("transaction %d is a transfer leg, use 'transactions transfer --id %s'", t.ID, t.TransferID),
					common.ErrTransferLeg)
			}
			if err := applyTransactionFlags(cmd, t); err != nil {
				return err
			}

			if err := store.UpdateTransaction(ctx, t); err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated transaction %d", t.ID)))
			return nil
		},
	}

	addTransactionFlags(cmd)
	return cmd
}

func (a *app) deleteTransactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate a transaction and revert its balance effect",
		Long:  `Deactivate a transaction. Deleting either leg of a transfer deletes both.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			t, err := store.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Delete %q of %s?", t.Description, cli.FormatMoney(t.Amount)))
			if err != nil || !ok {
				return err
			}

			if err := store.DeleteTransaction(ctx, id); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

func (a *app) transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Long: `Record a transfer as a debit on the source account and a credit on the
destination. With --id the existing transfer is rewritten instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			req := model.TransferRequest{
				CategoryID:      optionalID(cmd, "category"),
				PaymentMethodID: optionalID(cmd, "payment-method"),
			}
			req.FromAccountID, _ = cmd.Flags().GetInt64("from-account")
			req.ToAccountID, _ = cmd.Flags().GetInt64("to-account")
			req.Description, _ = cmd.Flags().GetString("description")
			req.Notes, _ = cmd.Flags().GetString("notes")
			s, _ := cmd.Flags().GetString("amount")
			if req.Amount, err = parseAmount(s); err != nil {
				return err
			}
			s, _ = cmd.Flags().GetString("date")
			if req.Date, err = parseDate(s); err != nil {
				return err
			}

			var transfer *model.Transfer
			if id, ok := changedString(cmd, "id"); ok {
				transfer, err = store.UpdateTransfer(ctx, id, req)
			} else {
				transfer, err = store.CreateTransfer(ctx, req)
			}
			if err != nil {
				return fmt.Errorf("failed to save transfer: %w", err)
			}

			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Transfer %s: %s from account %d to account %d",
				transfer.ID, cli.FormatMoney(transfer.Debit.Amount), req.FromAccountID, req.ToAccountID)))
			return nil
		},
	}

	cmd.Flags().String("id", "", "transfer id to rewrite")
	cmd.Flags().Int64("from-account", 0, "source account id")
	cmd.Flags().Int64("to-account", 0, "destination account id")
	cmd.Flags().String("amount", "", "amount")
	cmd.Flags().String("date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().String("description", "Transferência", "description")
	cmd.Flags().String("notes", "", "notes")
	cmd.Flags().Int64("category", 0, "category id")
	cmd.Flags().Int64("payment-method", 0, "payment method id")
	_ = cmd.MarkFlagRequired("from-account")
	_ = cmd.MarkFlagRequired("to-account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total receipts and expenses over a period",
		Long:  `Sum receipts and expenses between two dates, the current month by default. Transfers are left out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			month := model.MonthOf(time.Now())
			start, end := month.Day(1), month.Day(month.LastDay())
			if s, ok := changedString(cmd, "from"); ok {
				if start, err = parseDate(s); err != nil {
					return err
				}
			}
			if s, ok := changedString(cmd, "to"); ok {
				if end, err = parseDate(s); err != nil {
					return err
				}
			}

			summary, err := store.PeriodSummary(ctx, start, end)
			if err != nil {
				return err
			}

			content := fmt.Sprintf("Receipts: %s\nExpenses: %s\nBalance:  %s\nTransactions: %d",
				cli.FormatMoney(summary.Income), cli.FormatMoney(summary.Expenses),
				cli.FormatSignedMoney(summary.Balance()), summary.Count)
			outln(cmd, cli.RenderBox(fmt.Sprintf("%s %s to %s", cli.CalendarIcon,
				summary.Start.Format(dateLayout), summary.End.Format(dateLayout)), content))
			return nil
		},
	}

	cmd.Flags().String("from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date (YYYY-MM-DD)")
	return cmd
}
