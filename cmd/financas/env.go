package main

import (
	"github.com/Veraticus/financas/internal/cli"
	"github.com/spf13/cobra"
)

func (a *app) envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the resolved configuration",
		Long:  `Print the environment, schema and database target in use. Passwords are masked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.env()
			if err != nil {
				return err
			}
			driver, err := a.cfg.Database.DriverName()
			if err != nil {
				return err
			}

			table := &cli.Table{Headers: []string{"Setting", "Value"}}
			table.AddRow("environment", env.String())
			table.AddRow("schema", env.Schema())
			table.AddRow("driver", driver)
			table.AddRow("target", a.cfg.Database.Redacted())
			table.AddRow("log level", a.cfg.Logging.Level)
			table.AddRow("log format", a.cfg.Logging.Format)

			outln(cmd, cli.FormatTitle("Configuration"))
			outln(cmd, table.Render())
			return nil
		},
	}
}
