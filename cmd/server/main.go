package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/uniimport/internal/config"
	"github.com/JonMunkholm/uniimport/internal/core"
	_ "github.com/JonMunkholm/uniimport/internal/core/profiles" // Register import profiles
	"github.com/JonMunkholm/uniimport/internal/logging"
	"github.com/JonMunkholm/uniimport/internal/store"
	"github.com/JonMunkholm/uniimport/internal/store/memory"
	"github.com/JonMunkholm/uniimport/internal/store/postgres"
	"github.com/JonMunkholm/uniimport/internal/telemetry"
	"github.com/JonMunkholm/uniimport/internal/web"
)

func main() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	tp, err := telemetry.Init(cfg.Telemetry.TracingEnabled, "uniimport-server", nil)
	if err != nil {
		slog.Error("failed to start tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	mappings, err := core.LoadMappingsDir(cfg.Import.MappingsDir)
	if err != nil {
		slog.Error("failed to load column mappings", "dir", cfg.Import.MappingsDir, "error", err)
		os.Exit(1)
	}

	service := core.NewService(st, core.ServiceConfig{
		MaxFileSize:       cfg.Import.MaxFileSize,
		Timeout:           cfg.Import.Timeout,
		MaxConcurrent:     cfg.Import.MaxConcurrent,
		MaxWait:           cfg.Import.MaxWaitTime,
		ErrorDisplayLimit: cfg.Import.ErrorDisplayLimit,
		Resolver: core.ResolverOptions{
			CodeMaxLength:     cfg.Import.CodeMaxLength,
			PlaceholderDomain: cfg.Import.PlaceholderEmailDomain,
		},
		Mappings: mappings,
	})
	slog.Info("profiles registered", "count", core.ProfileCount(), "mapping_overrides", len(mappings))

	server := web.NewServer(service, st, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		RetentionDays: cfg.History.RetentionDays,
		CheckInterval: cfg.History.CheckInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	slog.Info("server stopped")
}

// openStore connects the configured driver and, for postgres, applies
// migrations when DB_AUTO_MIGRATE is set.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("using the in-memory store; imported data is lost on exit")
		return memory.New(), nil
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
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		version, err := postgres.Migrate(ctx, pg.Pool())
		if err != nil {
			pg.Close()
			return nil, err
		}
		slog.Info("database migrated", "version", version)
	}
	return pg, nil
}
