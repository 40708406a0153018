package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring expenses and their payments",
		Long: `Recurring expenses are templates (rent, subscriptions, insurance) with a due
day and a periodicity. Each due month has an occurrence that can be marked
paid, optionally recording the expense on the template's account.`,
	}

	cmd.AddCommand(a.listRecurringCmd())
	cmd.AddCommand(a.addRecurringCmd())
	cmd.AddCommand(a.updateRecurringCmd())
	cmd.AddCommand(a.deleteRecurringCmd())
	cmd.AddCommand(a.payRecurringCmd())
	cmd.AddCommand(a.unpayRecurringCmd())
	cmd.AddCommand(a.statusRecurringCmd())
	cmd.AddCommand(a.pendingRecurringCmd())

	return cmd
}

func (a *app) listRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			expenses, err := store.ListRecurring(ctx, !all)
			if err != nil {
				return fmt.Errorf("failed to get recurring expenses: %w", err)
			}
			if len(expenses) == 0 {
				outln(cmd, cli.InfoStyle.Render("No recurring expenses found. Use 'financas recurring add' to create one."))
				return nil
			}

			table := &cli.Table{
				Headers:    []string{"ID", "Name", "Amount", "Due day", "Periodicity", "Start", "End", "Account", "Active"},
				RightAlign: map[int]bool{2: true},
			}
			for _, r := range expenses {
				table.AddRow(strconv.FormatInt(r.ID, 10), r.Name, cli.FormatMoney(r.Amount), strconv.Itoa(r.DueDay),
					string(r.Periodicity), r.StartDate.Format(dateLayout), formatOptionalDate(r.EndDate),
					formatOptionalID(r.AccountID), activeLabel(r.Active))
			}
			outln(cmd, table.Render())
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include inactive expenses")
	return cmd
}

func addRecurringFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", "expected amount")
	cmd.Flags().Int("due-day", 0, "day of the month the payment is due (1-31)")
	cmd.Flags().String("periodicity", string(model.Monthly), "Mensal, Bimestral, Trimestral, Semestral or Anual")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD, empty for none)")
	cmd.Flags().Int64("account", 0, "account charged by payments")
	cmd.Flags().Int64("category", 0, "category of the spawned expenses")
	cmd.Flags().Int64("payment-method", 0, "payment method of the spawned expenses")
	cmd.Flags().Bool("generate", true, "record an expense transaction when marked paid")
	cmd.Flags().String("notes", "", "notes")
}

func applyRecurringFlags(cmd *cobra.Command, r *model.RecurringExpense) error {
	var err error
	if v, ok := changedString(cmd, "amount"); ok {
		if r.Amount, err = parseAmount(v); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("due-day") {
		r.DueDay, _ = cmd.Flags().GetInt("due-day")
	}
	if v, ok := changedString(cmd, "periodicity"); ok {
		if r.Periodicity, err = model.ParsePeriodicity(v); err != nil {
			return err
		}
	}
	if v, ok := changedString(cmd, "start"); ok {
		if r.StartDate, err = parseDate(v); err != nil {
			return err
		}
	}
	if v, ok := changedString(cmd, "end"); ok {
		r.EndDate = nil
		if strings.TrimSpace(v) != "" {
			end, err := parseDate(v)
			if err != nil {
				return err
			}
			r.EndDate = &end
		}
	}
	for flag, target := range map[string]**int64{
		"account":        &r.AccountID,
		"category":       &r.CategoryID,
		"payment-method": &r.PaymentMethodID,
	} {
		if cmd.Flags().Changed(flag) {
			*target = optionalID(cmd, flag)
		}
	}
	if cmd.Flags().Changed("generate") {
		r.GenerateTransaction, _ = cmd.Flags().GetBool("generate")
	}
	if v, ok := changedString(cmd, "notes"); ok {
		r.Notes = v
	}
	return nil
}

func (a *app) addRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a recurring expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			r := &model.RecurringExpense{
				Name:                args[0],
				Periodicity:         model.Monthly,
				GenerateTransaction: true,
				Active:              true,
			}
			if r.StartDate, err = parseDate(""); err != nil {
				return err
			}
			if err := applyRecurringFlags(cmd, r); err != nil {
				return err
			}

			if err := store.CreateRecurring(ctx, r); err != nil {
				return fmt.Errorf("failed to add recurring expense: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added recurring expense %q (id %d), %s %s due on day %d",
				r.Name, r.ID, cli.FormatMoney(r.Amount), r.Periodicity, r.DueDay)))
			return nil
		},
	}

	addRecurringFlags(cmd)
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("due-day")
	return cmd
}

func (a *app) updateRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a recurring expense",
		Long:  `Change the given fields. Months newly covered by the schedule get their occurrences.`,
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

			r, err := store.GetRecurring(ctx, id)
			if err != nil {
				return err
			}
			if v, ok := changedString(cmd, "name"); ok {
				r.Name = v
			}
			if err := applyRecurringFlags(cmd, r); err != nil {
				return err
			}
			if cmd.Flags().Changed("active") {
				r.Active, _ = cmd.Flags().GetBool("active")
			}

			if err := store.UpdateRecurring(ctx, r); err != nil {
				return fmt.Errorf("failed to update recurring expense: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated recurring expense %q", r.Name)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "new name")
	cmd.Flags().Bool("active", true, "active flag")
	addRecurringFlags(cmd)
	return cmd
}

func (a *app) deleteRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate a recurring expense",
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

			r, err := store.GetRecurring(ctx, id)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Deactivate recurring expense %q?", r.Name))
			if err != nil || !ok {
				return err
			}

			if err := store.DeleteRecurring(ctx, id); err != nil {
				return fmt.Errorf("failed to delete recurring expense: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deactivated recurring expense %q", r.Name)))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

func (a *app) payRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay ID [YYYY-MM]",
		Short: "Mark a month as paid",
		Long: `Mark the occurrence of a month (the current one by default) as paid. When the
expense has an account, the payment is recorded as an expense on it unless
--no-transaction is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ym, err := parseMonth(optionalArg(args, 1))
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			var req model.PaymentRequest
			if v, ok := changedString(cmd, "date"); ok {
				if req.PaidOn, err = parseDate(v); err != nil {
					return err
				}
			}
			if v, ok := changedString(cmd, "amount"); ok {
				amount, err := parseAmount(v)
				if err != nil {
					return err
				}
				req.Amount = decimal.NewNullDecimal(amount)
			}
			if noTxn, _ := cmd.Flags().GetBool("no-transaction"); noTxn {
				create := false
				req.CreateTransaction = &create
			}

			o, err := store.MarkPaid(ctx, id, ym, req)
			if err != nil {
				return fmt.Errorf("failed to mark %s paid: %w", ym, err)
			}

			msg := fmt.Sprintf("Paid %s on %s: %s", ym, formatOptionalDate(o.PaidOn), cli.FormatMoney(o.AmountPaid.Decimal))
			if o.TransactionID != nil {
				msg += fmt.Sprintf(" (transaction %d)", *o.TransactionID)
			}
			outln(cmd, cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().String("date", "", "payment date (YYYY-MM-DD, default today)")
	cmd.Flags().String("amount", "", "amount paid (default: expected amount)")
	cmd.Flags().Bool("no-transaction", false, "do not record an expense transaction")
	return cmd
}

func (a *app) unpayRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpay ID [YYYY-MM]",
		Short: "Undo the payment of a month",
		Long:  `Clear the payment of a month and reverse the expense it recorded, if any.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ym, err := parseMonth(optionalArg(args, 1))
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			if err := store.MarkUnpaid(ctx, id, ym); err != nil {
				return fmt.Errorf("failed to mark %s unpaid: %w", ym, err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Marked %s unpaid", ym)))
			return nil
		},
	}
}

func (a *app) statusRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID [YYYY-MM]",
		Short: "Show the payment status of one month or of every occurrence",
		Args:  cobra.RangeArgs(1, 2),
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

			var occurrences []model.Occurrence
			if len(args) == 2 {
				ym, err := parseMonth(args[1])
				if err != nil {
					return err
				}
				o, err := store.PaymentStatus(ctx, id, ym)
				if err != nil {
					return err
				}
				occurrences = append(occurrences, *o)
			} else if occurrences, err = store.Occurrences(ctx, id); err != nil {
				return err
			}

			table := &cli.Table{
				Headers:    []string{"Month", "Status", "Paid on", "Amount", "Transaction"},
				RightAlign: map[int]bool{3: true},
			}
			for _, o := range occurrences {
				status, amount := cli.WarningStyle.Render("pending"), "-"
				if o.Paid() {
					status = cli.SuccessStyle.Render("paid")
				}
				if o.AmountPaid.Valid {
					amount = cli.FormatMoney(o.AmountPaid.Decimal)
				}
				table.AddRow(o.YearMonth.String(), status, formatOptionalDate(o.PaidOn), amount, formatOptionalID(o.TransactionID))
			}
			outln(cmd, table.Render())
			return nil
		},
	}
}

func (a *app) pendingRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending [YYYY-MM]",
		Short: "List the expenses still to be paid in a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ym, err := parseMonth(optionalArg(args, 0))
			if err != nil {
				return err
			}
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			pending, err := store.PendingPayments(ctx, ym)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				outln(cmd, cli.FormatSuccess(fmt.Sprintf("Nothing pending in %s", ym)))
				return nil
			}

			table := &cli.Table{
				Headers:    []string{"ID", "Name", "Due", "Amount"},
				RightAlign: map[int]bool{3: true},
			}
			total := decimal.Zero
			for _, p := range pending {
				table.AddRow(strconv.FormatInt(p.Expense.ID, 10), p.Expense.Name, p.DueDate.Format(dateLayout), cli.FormatMoney(p.Expense.Amount))
				total = total.Add(p.Expense.Amount)
			}
			outln(cmd, cli.FormatTitle(fmt.Sprintf("Pending in %s", ym)))
			outln(cmd, table.Render())
			outf(cmd, "\nTotal: %s\n", cli.FormatMoney(total))
			return nil
		},
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
