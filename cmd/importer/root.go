package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/uniimport/internal/config"
	"github.com/JonMunkholm/uniimport/internal/core"
	"github.com/JonMunkholm/uniimport/internal/logging"
	"github.com/JonMunkholm/uniimport/internal/store"
	"github.com/JonMunkholm/uniimport/internal/store/memory"
	"github.com/JonMunkholm/uniimport/internal/store/postgres"
)

type globalOptions struct {
	envFile  string
	driver   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Bulk import initiatives, scholarships and groups from CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load when present")
	cmd.PersistentFlags().StringVar(&opts.driver, "store", "", "store driver: postgres or memory (default: STORE_DRIVER)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default: LOG_LEVEL)")

	cmd.AddCommand(newRunCmd(&opts))
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newHistoryCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))
	return cmd
}

// loadConfig reads the environment and applies the global flags. Logs go to
// stderr so stdout stays parseable.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	if err := config.LoadEnvFiles(opts.envFile); err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("read %s: %w", opts.envFile, err))
	}
	cfg, err := config.Load(func(c *config.Config) {
		if opts.driver != "" {
			c.Database.Driver = opts.driver
		}
		if opts.logLevel != "" {
			c.Logging.Level = opts.logLevel
		}
	})
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// openStore connects the configured store. Connection failures exit with
// the database code.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return memory.New(), nil
	}
	pg, err := openPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, withCode(exitUsage, fmt.Errorf("this command needs --store postgres (got %s)", cfg.Database.Driver))
	}
	pg, err := postgres.Open(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		LockTimeout:     cfg.Database.LockTimeout,
	})
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return pg, nil
}

func newService(st store.Store, cfg *config.Config, mappings map[string]core.ColumnMapping) *core.Service {
	return core.NewService(st, core.ServiceConfig{
		MaxFileSize:       cfg.Import.MaxFileSize,
		Timeout:           cfg.Import.Timeout,
		MaxConcurrent:     1,
		MaxWait:           cfg.Import.MaxWaitTime,
		ErrorDisplayLimit: cfg.Import.ErrorDisplayLimit,
		Resolver: core.ResolverOptions{
			CodeMaxLength:     cfg.Import.CodeMaxLength,
			PlaceholderDomain: cfg.Import.PlaceholderEmailDomain,
		},
		Mappings: mappings,
	}, core.WithLogger(slog.Default()))
}
