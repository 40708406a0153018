package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/financas/internal/cli"
	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/config"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	manager *storage.Manager
	cfgFile string
	envs    []config.Environment
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "financas",
		Short: "💰 Personal finance ledger",
		Long: `financas keeps a personal ledger of accounts, categories, payment methods,
transactions and recurring expenses, with every balance kept in step with
its transactions. Data lives in a prod and a dev schema of the same database.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	// Global flags
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/financas/config.yaml)")
	root.PersistentFlags().String("env", "", "environment (prod, dev)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = a.v.BindPFlag("environment", root.PersistentFlags().Lookup("env"))
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))

	// Add commands
	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.categoriesCmd())
	root.AddCommand(a.accountsCmd())
	root.AddCommand(a.paymentMethodsCmd())
	root.AddCommand(a.transactionsCmd())
	root.AddCommand(a.recurringCmd())
	root.AddCommand(a.recalculateCmd())
	root.AddCommand(a.cleanCmd())
	root.AddCommand(a.copyCmd())
	root.AddCommand(a.importOFXCmd())
	root.AddCommand(a.envCmd())
	root.AddCommand(versionCmd())

	return root
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(""); err != nil {
		return err
	}
	config.SetDefaults(a.v)
	if err := config.ReadConfigFile(a.v, a.cfgFile); err != nil {
		return err
	}

	envs, err := config.ParseEnvironments(a.v.GetString("environment"))
	if err != nil {
		return err
	}
	a.envs = envs
	a.v.Set("environment", string(envs[0]))

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := common.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

// env returns the single environment selected with --env.
func (a *app) env() (config.Environment, error) {
	if len(a.envs) != 1 {
		return "", common.NewUserError("--env both is only accepted by migrate", common.ErrInvalidInput)
	}
	return a.envs[0], nil
}

// openManager connects lazily so that commands such as env never touch the
// database.
func (a *app) openManager() (*storage.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}
	m, err := storage.NewManager(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.manager = m
	return m, nil
}

// storeFor returns the migrated store of env.
func (a *app) storeFor(ctx context.Context, env config.Environment) (*storage.Store, error) {
	m, err := a.openManager()
	if err != nil {
		return nil, err
	}
	return m.Store(ctx, env)
}

// store returns the store of the selected environment.
func (a *app) store(ctx context.Context) (*storage.Store, error) {
	env, err := a.env()
	if err != nil {
		return nil, err
	}
	return a.storeFor(ctx, env)
}

func (a *app) close() error {
	if a.manager == nil {
		return nil
	}
	return a.manager.Close()
}

// confirm asks for a yes unless force is set. A declined prompt is reported
// to the user and is not an error.
func confirm(cmd *cobra.Command, force bool, prompt string) (bool, error) {
	if force {
		return true, nil
	}
	ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(cmd.Context(), prompt)
	if err == nil && !ok {
		outln(cmd, cli.FormatWarning("Cancelled"))
	}
	return ok, err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid id %q", arg), common.ErrInvalidInput)
	}
	return id, nil
}

// parseAmount accepts "1234.56" as well as the Brazilian "1.234,56".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("invalid amount %q", s), common.ErrInvalidInput)
	}
	return d, nil
}

// parseDate parses YYYY-MM-DD; an empty string means today.
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return model.DateOf(time.Now()), nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), common.ErrInvalidInput)
	}
	return t, nil
}

// parseMonth parses YYYY-MM; an empty string means the current month.
func parseMonth(s string) (model.YearMonth, error) {
	if strings.TrimSpace(s) == "" {
		return model.MonthOf(time.Now()), nil
	}
	ym, err := model.ParseYearMonth(s)
	if err != nil {
		return model.YearMonth{}, common.NewUserError(err.Error(), common.ErrInvalidInput)
	}
	return ym, nil
}

// optionalID reads an id flag. Unset flags and zero both mean no reference.
func optionalID(cmd *cobra.Command, name string) *int64 {
	id, _ := cmd.Flags().GetInt64(name)
	if id <= 0 {
		return nil
	}
	return &id
}

// changedString returns the flag value and whether the user set it.
func changedString(cmd *cobra.Command, name string) (string, bool) {
	if !cmd.Flags().Changed(name) {
		return "", false
	}
	v, _ := cmd.Flags().GetString(name)
	return v, true
}

func outf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func outln(cmd *cobra.Command, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), args...)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func activeLabel(active bool) string {
	if active {
		return "yes"
	}
	return "no"
}
