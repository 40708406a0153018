package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Create the environment schema if needed and bring it to the latest version.

Use --env both to migrate prod and dev in one go.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			slog.Info("🗄️  Running database migrations...", "environments", len(a.envs))

			for _, env := range a.envs {
				store, err := a.storeFor(ctx, env)
				if err != nil {
					return fmt.Errorf("migration of %s failed: %w", env, err)
				}
				version, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				outln(cmd, cli.FormatSuccess(fmt.Sprintf("%s (%s) at schema version %d of %d",
					env, store.Schema(), version, storage.ExpectedSchemaVersion)))
			}

			slog.Info("✅ Database migrations completed successfully!")
			return nil
		},
	}
}
