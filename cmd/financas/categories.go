package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
	"github.com/Veraticus/financas/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category tree",
		Long:  `List, add, update, move and delete the receipt, expense and transfer categories.`,
	}

	cmd.AddCommand(a.listCategoriesCmd())
	cmd.AddCommand(a.treeCategoriesCmd())
	cmd.AddCommand(a.addCategoryCmd())
	cmd.AddCommand(a.updateCategoryCmd())
	cmd.AddCommand(a.deleteCategoryCmd())
	cmd.AddCommand(a.pathCategoryCmd())

	return cmd
}

// kindFlag reads an optional --kind flag.
func kindFlag(cmd *cobra.Command) (model.Kind, error) {
	s, _ := cmd.Flags().GetString("kind")
	if s == "" {
		return "", nil
	}
	return model.ParseKind(s)
}

func (a *app) listCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")

			categories, err := store.ListCategories(ctx, service.CategoryFilter{Kind: kind, ActiveOnly: !all})
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			if len(categories) == 0 {
				outln(cmd, cli.InfoStyle.Render("No categories found. Use 'financas categories add' to create one."))
				return nil
			}

			table := &cli.Table{Headers: []string{"ID", "Name", "Kind", "Level", "Parent", "Active"}}
			for _, c := range categories {
				table.AddRow(strconv.FormatInt(c.ID, 10), c.Name, c.Kind.Label(), strconv.Itoa(c.Level),
					formatOptionalID(c.ParentID), activeLabel(c.Active))
			}
			outln(cmd, table.Render())
			return nil
		},
	}

	cmd.Flags().String("kind", "", "only this kind (R, D, T)")
	cmd.Flags().Bool("all", false, "include inactive categories")
	return cmd
}

func (a *app) treeCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the category hierarchy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}

			roots, err := store.RootCategories(ctx, kind, true)
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, root := range roots {
				if err := writeTree(ctx, &b, store, root, 0); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}

	cmd.Flags().String("kind", "", "only this kind (R, D, T)")
	return cmd
}

func writeTree(ctx context.Context, b *strings.Builder, store *storage.Store, c model.Category, depth int) error {
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat("  ", depth), c.Name, cli.SubtleStyle.Render(fmt.Sprintf("[%d, %s]", c.ID, c.Kind)))

	children, err := store.ChildCategories(ctx, c.ID, true)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := writeTree(ctx, b, store, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) addCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Long: `Add a root category of the given kind, or a child of --parent. Children
always take the kind of their parent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.store(ctx)
			if err != nil {
				return err
			}

			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			parentID := optionalID(cmd, "parent")
			if parentID != nil {
				parent, err := store.GetCategory(ctx, *parentID)
				if err != nil {
					return err
				}
				kind = parent.Kind
			}
			if kind == "" {
				return fmt.Errorf("--kind is required for a root category")
			}

			description, _ := cmd.Flags().GetString("description")
			category := &model.Category{
				Name:        args[0],
				Description: description,
				Kind:        kind,
				ParentID:    parentID,
				Active:      true,
			}
			if err := store.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to add category: %w", err)
			}

			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added category %q (id %d, level %d)", category.Name, category.ID, category.Level)))
			return nil
		},
	}

	cmd.Flags().String("kind", "", "kind of a root category (R, D, T)")
	cmd.Flags().Int64("parent", 0, "parent category id")
	cmd.Flags().String("description", "", "description")
	return cmd
}

func (a *app) updateCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename, describe or move a category",
		Long:  `Change the given fields of a category. --parent 0 makes it a root category.`,
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

			category, err := store.GetCategory(ctx, id)
			if err != nil {
				return err
			}
			if name, ok := changedString(cmd, "name"); ok {
				category.Name = name
			}
			if description, ok := changedString(cmd, "description"); ok {
				category.Description = description
			}
			if cmd.Flags().Changed("parent") {
				category.ParentID = optionalID(cmd, "parent")
			}
			if cmd.Flags().Changed("active") {
				category.Active, _ = cmd.Flags().GetBool("active")
			}

			if err := store.UpdateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to update category: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated category %q (level %d)", category.Name, category.Level)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().Int64("parent", 0, "new parent id (0 for root)")
	cmd.Flags().Bool("active", true, "active flag")
	return cmd
}

func (a *app) deleteCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Deactivate a category",
		Long:  `Deactivate a category. Its children and the transactions pointing at it are kept.`,
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

			category, err := store.GetCategory(ctx, id)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			ok, err := confirm(cmd, force, fmt.Sprintf("Deactivate category %q?", category.Name))
			if err != nil || !ok {
				return err
			}

			if err := store.DeleteCategory(ctx, id); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deactivated category %q", category.Name)))
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "skip confirmation")
	return cmd
}

func (a *app) pathCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path ID",
		Short: "Show the path from the root to a category",
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

			path, err := store.CategoryPath(ctx, id)
			if err != nil {
				return err
			}
			names := make([]string, len(path))
			for i, c := range path {
				names[i] = c.Name
			}
			outln(cmd, strings.Join(names, " > "))
			return nil
		},
	}
}
