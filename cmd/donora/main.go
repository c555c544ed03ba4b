package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"
	"github.com/smallbiznis/donora/internal/bootstrap"
	"github.com/smallbiznis/donora/internal/config"
	"github.com/smallbiznis/donora/internal/migration"
	"github.com/smallbiznis/donora/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "donora",
		Short:         "Campaign fan-out and node referral service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSchedulerCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opt := bootstrap.API()
			if withScheduler {
				opt = bootstrap.All()
			}
			fx.New(opt).Run()
			return nil
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the drop dispatcher in this process")
	return cmd
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the drop dispatcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx.New(bootstrap.Scheduler()).Run()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.DBType != db.DialectPostgres {
				return runFxMigrate(cmd.Context())
			}

			sqlDB, err := sql.Open("postgres", db.PostgresDSN(cfg))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer sqlDB.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// runFxMigrate covers dialects without SQL migrations by starting the
// migration graph once.
func runFxMigrate(ctx context.Context) error {
	app := fx.New(bootstrap.Migrate(), fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	return app.Stop(startCtx)
}
