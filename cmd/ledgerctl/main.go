// Command ledgerctl is the operator tool for a ledger database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger/internal/backend"
	"ledger/internal/config"
	applog "ledger/internal/log"
)

// storeOpener opens the backend described by cfg.
type storeOpener func(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.Opened, error)

type app struct {
	v         *viper.Viper
	cfgFile   string
	openStore storeOpener
	logger    *applog.Logger
}

// settings maps viper keys to the environment variables the binaries share.
var settings = []struct {
	key, env, usage string
}{
	{"backend", "DATA_BACKEND", "storage backend (sqlite, postgres, memory)"},
	{"sqlite-path", "SQLITE_DB_PATH", "SQLite database file"},
	{"database-url", "DATABASE_URL", "PostgreSQL connection URL"},
	{"categories-file", "CATEGORIES_FILE", "category seed file for the memory backend"},
	{"log-level", "LOG_LEVEL", "log level (debug, info, warn, error)"},
	{"log-format", "LOG_FORMAT", "log format (text, json)"},
	{"clock-location", "CLOCK_LOCATION", "time zone used for \"today\""},
}

func newApp() *app {
	return &app{v: viper.New(), openStore: openBackend}
}

func openBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.Opened, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).Open(ctx, bcfg)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a personal finance ledger",
		Long: `ledgerctl runs migrations, manages the category registry and prints
cashflow reports straight from the configured backend.

Settings come from the same environment variables as the server
(DATA_BACKEND, SQLITE_DB_PATH, DATABASE_URL, ...), an optional config
file, and flags, in increasing order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	for _, s := range settings {
		root.PersistentFlags().String(s.key, "", s.usage)
		_ = a.v.BindPFlag(s.key, root.PersistentFlags().Lookup(s.key))
		_ = a.v.BindEnv(s.key, s.env)
	}

	root.AddCommand(migrateCmd(a))
	root.AddCommand(categoriesCmd(a))
	root.AddCommand(cashflowCmd(a))
	root.AddCommand(transactionsCmd(a))

	return root
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := a.config()
	a.logger = applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	return nil
}

// config overlays viper's settings on the environment defaults.
func (a *app) config() *config.Config {
	cfg := config.Load()
	fields := map[string]*string{
		"backend":         &cfg.DataBackend,
		"sqlite-path":     &cfg.SQLiteDBPath,
		"database-url":    &cfg.DatabaseURL,
		"categories-file": &cfg.CategoriesFile,
		"log-level":       &cfg.LogLevel,
		"log-format":      &cfg.LogFormat,
		"clock-location":  &cfg.ClockLocation,
	}
	for key, dst := range fields {
		if v := a.v.GetString(key); v != "" {
			*dst = v
		}
	}
	return cfg
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
