// cmd/guildpulse/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"guildpulse/internal/auth"
	"guildpulse/internal/config"
	"guildpulse/internal/httpapi"
	"guildpulse/internal/lifecycle"
	"guildpulse/internal/logging"
	"guildpulse/internal/migrations"
	"guildpulse/internal/raid"
	"guildpulse/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guildpulse",
		Short:         "Scheduled Double-XP and raid event manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSweepCmd(), newMigrateCmd(), newHashTokenCmd())
	return root
}

// bootstrap loads config, logging and tracing shared by every command.
func bootstrap(ctx context.Context) (config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log, err := logging.New(logging.Config{
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "guildpulse", cfg.Version)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
		_ = log.Sync()
	}
	return cfg, log, cleanup, nil
}

func newServeCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the sweep scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			if !skipMigrate {
				if err := a.migrate(); err != nil {
					return err
				}
			}

			runner, err := lifecycle.NewRunner(a.manager, cfg.Schedule.TickSchedule, cfg.Schedule.ReminderTolerance, cfg.Schedule.SweepTimeout, log)
			if err != nil {
				return err
			}
			if err := runner.Start(ctx); err != nil {
				return err
			}
			defer runner.Stop()

			router := httpapi.NewRouter(httpapi.Deps{
				Events:         a.eventHTTP,
				Lifecycle:      lifecycle.NewHandler(a.manager, a.manager),
				Raid:           raid.NewHandler(a.raid),
				Booster:        a.booster,
				AdminTokenHash: cfg.Auth.AdminTokenHash,
				DB:             a.db,
				Gatherer:       a.registry,
				Log:            log,
			})
			if cfg.Auth.AdminTokenHash == "" {
				log.Warn("ADMIN_TOKEN_HASH is empty; admin API is unauthenticated")
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("starting guildpulse", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single lifecycle sweep and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			runner, err := lifecycle.NewRunner(a.manager, cfg.Schedule.TickSchedule, cfg.Schedule.ReminderTolerance, cfg.Schedule.SweepTimeout, log)
			if err != nil {
				return err
			}
			report, err := runner.RunOnce(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	run := func(apply func(*app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, cleanup, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if cfg.Storage != config.StoragePostgres {
				return fmt.Errorf("migrations need postgres storage, got %q", cfg.Storage)
			}
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return apply(a)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: run(func(a *app) error {
				return migrations.Up(a.db)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: run(func(a *app) error {
				return migrations.Down(a.db)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: run(func(a *app) error {
				v, dirty, err := migrations.Version(a.db)
				if err != nil {
					return err
				}
				fmt.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the ADMIN_TOKEN_HASH value for an admin token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
