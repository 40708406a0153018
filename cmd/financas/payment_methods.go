package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/model"
	"github.com/spf13/cobra"
)

func (a *app) paymentMethodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payment-methods",
		Aliases: []string{"pm"},
		Short:   "Manage payment methods",
	}

	cmd.AddCommand(a.listPaymentMethodsCmd())
	cmd.AddCommand(a.addPaymentMethodCmd())
	cmd.AddCommand(a.updatePaymentMethodCmd())
	cmd.AddCommand(a.deletePaymentMethodCmd())

	return cmd
}

func (a *app) listPaymentMethodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payment methods",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			methods, err := store.ListPaymentMethods(ctx, !all)
			if err != nil {
				return fmt.Errorf("failed to get payment methods: %w", err)
			}
			if len(methods) == 0 {
				outln(cmd, cli.InfoStyle.Render("No payment methods found. Use 'financas payment-methods add' to create one."))
				return nil
			}

			table := &cli.Table{Headers: []string{"ID", "Name", "Type", "Account", "Description", "Active"}}
			for _, m := range methods {
				table.AddRow(strconv.FormatInt(m.ID, 10), m.Name, m.Type, formatOptionalID(m.AccountID), m.Description, activeLabel(m.Active))
			}
			outln(cmd, table.Render())
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "include inactive payment methods")
	return cmd
}

func (a *app) addPaymentMethodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a payment method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			kind, _ := cmd.Flags().GetString("type")
			description, _ := cmd.Flags().GetString("description")
			method := &model.PaymentMethod{
				Name:        args[0],
				Type:        kind,
				Description: description,
				AccountID:   optionalID(cmd, "account"),
				Active:      true,
			}
			if err := store.CreatePaymentMethod(ctx, method); err != nil {
				return fmt.Errorf("failed to add payment method: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added payment method %q (id %d)", method.Name, method.ID)))
			return nil
		},
	}

	cmd.Flags().String("type", "Cartão de Débito", "payment method type")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().Int64("account", 0, "account charged by this method")
	return cmd
}

func (a *app) updatePaymentMethodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a payment method",
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

			method, err := store.GetPaymentMethod(ctx, id)
			if err != nil {
				return err
			}
			if v, ok := changedString(cmd, "name"); ok {
				method.Name = v
			}
			if v, ok := changedString(cmd, "type"); ok {
				method.Type = v
			}
			if v, ok := changedString(cmd, "description"); ok {
				method.Description = v
			}
			if cmd.Flags().Changed("account") {
				method.AccountID = optionalID(cmd, "account")
			}
			if cmd.Flags().Changed("active") {
				method.Active, _ = cmd.Flags().GetBool("active")
			}

			if err := store.UpdatePaymentMethod(ctx, method); err != nil {
				return fmt.Errorf("failed to update payment method: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated payment method %q", method.Name)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("type", "", "new type")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().Int64("account", 0, "account id (0 to clear)")
	cmd.Flags().Bool("active", true, "active flag")
	return cmd
}

func (a *app) deletePaymentMethodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate a payment method",
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

			method, err := store.GetPaymentMethod(ctx, id)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Deactivate payment method %q?", method.Name))
			if err != nil || !ok {
				return err
			}

			if err := store.DeletePaymentMethod(ctx, id); err != nil {
				return fmt.Errorf("failed to delete payment method: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deactivated payment method %q", method.Name)))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}
