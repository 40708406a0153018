package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/model"
	"github.com/spf13/cobra"
)

// accountFields maps flags to account dimension fields.
var accountFields = []struct {
	field func(*model.AccountDimension) *string
	flag  string
	usage string
}{
	{flag: "type", usage: "account type, e.g. Conta Corrente", field: func(d *model.AccountDimension) *string { return &d.Type }},
	{flag: "institution", usage: "bank or institution", field: func(d *model.AccountDimension) *string { return &d.Institution }},
	{flag: "agency", usage: "branch number", field: func(d *model.AccountDimension) *string { return &d.Agency }},
	{flag: "ledger-account", usage: "account number", field: func(d *model.AccountDimension) *string { return &d.LedgerAccount }},
	{flag: "bank-number", usage: "bank code", field: func(d *model.AccountDimension) *string { return &d.BankNumber }},
	{flag: "holder", usage: "account holder", field: func(d *model.AccountDimension) *string { return &d.Holder }},
	{flag: "manager", usage: "account manager name", field: func(d *model.AccountDimension) *string { return &d.ManagerName }},
	{flag: "manager-contact", usage: "account manager contact", field: func(d *model.AccountDimension) *string { return &d.ManagerContact }},
}

func addAccountFlags(cmd *cobra.Command) {
	for _, f := range accountFields {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().String("initial", "0", "initial balance")
}

func applyAccountFlags(cmd *cobra.Command, d *model.AccountDimension) {
	for _, f := range accountFields {
		if v, ok := changedString(cmd, f.flag); ok {
			*f.field(d) = v
		}
	}
}

func (a *app) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts and balances",
		Long:  `List, add, update and delete accounts. Current balances follow the transactions and cannot be set directly.`,
	}

	cmd.AddCommand(a.listAccountsCmd())
	cmd.AddCommand(a.addAccountCmd())
	cmd.AddCommand(a.updateAccountCmd())
	cmd.AddCommand(a.deleteAccountCmd())
	cmd.AddCommand(a.totalAccountsCmd())

	return cmd
}

func (a *app) listAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			accounts, err := store.ListAccounts(ctx, !all)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}
			if len(accounts) == 0 {
				outln(cmd, cli.InfoStyle.Render("No accounts found. Use 'financas accounts add' to create one."))
				return nil
			}

			table := &cli.Table{
				Headers:    []string{"ID", "Name", "Type", "Institution", "Initial", "Current", "Active"},
				RightAlign: map[int]bool{4: true, 5: true},
			}
			for _, acc := range accounts {
				table.AddRow(strconv.FormatInt(acc.ID(), 10), acc.Name(), acc.Dimension.Type, acc.Dimension.Institution,
					cli.FormatMoney(acc.Balance.Initial), cli.FormatMoney(acc.Balance.Current), activeLabel(acc.Dimension.Active))
			}
			outln(cmd, table.Render())
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include inactive accounts")
	return cmd
}

func (a *app) addAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			s, _ := cmd.Flags().GetString("initial")
			initial, err := parseAmount(s)
			if err != nil {
				return err
			}

			acc := &model.Account{
				Dimension: model.AccountDimension{Name: args[0], Type: "Conta Corrente"},
				Balance:   model.AccountBalance{Initial: initial},
			}
			applyAccountFlags(cmd, &acc.Dimension)

			if err := store.CreateAccount(ctx, acc); err != nil {
				return fmt.Errorf("failed to add account: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added account %q (id %d) with balance %s",
				acc.Name(), acc.ID(), cli.FormatMoney(acc.Balance.Current))))
			return nil
		},
	}

	addAccountFlags(cmd)
	return cmd
}

func (a *app) updateAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change account details or the initial balance",
		Long: `Change the given fields of an account. Changing --initial moves the current
balance by the same difference.`,
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

			acc, err := store.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			if name, ok := changedString(cmd, "name"); ok {
				acc.Dimension.Name = name
			}
			applyAccountFlags(cmd, &acc.Dimension)
			if s, ok := changedString(cmd, "initial"); ok {
				if acc.Balance.Initial, err = parseAmount(s); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("active") {
				acc.Dimension.Active, _ = cmd.Flags().GetBool("active")
			}

			if err := store.UpdateAccount(ctx, acc); err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated account %q, balance %s",
				acc.Name(), cli.FormatMoney(acc.Balance.Current))))
			return nil
		},
	}

	cmd.Flags().String("name", "", "new name")
	cmd.Flags().Bool("active", true, "active flag")
	addAccountFlags(cmd)
	return cmd
}

func (a *app) deleteAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate an account",
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

			acc, err := store.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Deactivate account %q?", acc.Name()))
			if err != nil || !ok {
				return err
			}

			if err := store.DeleteAccount(ctx, id); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deactivated account %q", acc.Name())))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

func (a *app) totalAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Show the sum of all current balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			total, err := store.TotalBalance(ctx, !all)
			if err != nil {
				return err
			}
			outf(cmd, "%s Total balance: %s\n", cli.BankIcon, cli.FormatMoney(total))
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include inactive accounts")
	return cmd
}
