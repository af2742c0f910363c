package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-auth-service/internal/database"
	"github.com/sandeepkv93/otp-auth-service/internal/di"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Account schema migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func (o *options) runOptions(command string) common.RunOptions {
	return common.RunOptions{Tool: "migrate", Command: command, CI: o.ci, Timeout: o.timeout, ExitCode: 3}
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("up"), func(ctx context.Context) ([]string, error) {
				runner, err := newRunner(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				return runner.Run()
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database reachability and schema state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("status"), func(ctx context.Context) ([]string, error) {
				runner, err := newRunner(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				return Status(ctx, runner.DB())
			})
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("plan"), func(ctx context.Context) ([]string, error) {
				runner, err := newRunner(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				return Plan(ctx, runner.DB())
			})
		},
	}
}

func newRunner(envFile string) (*di.MigrationRunner, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return di.InitializeMigrationRunner()
}

func Status(ctx context.Context, db *gorm.DB) ([]string, error) {
	if err := ping(ctx, db); err != nil {
		return nil, err
	}
	pending, err := database.PendingTables(db)
	if err != nil {
		return nil, err
	}
	details := []string{"database reachable"}
	if len(pending) == 0 {
		return append(details, "schema: up to date"), nil
	}
	return append(details, "schema: missing tables "+strings.Join(pending, ", ")), nil
}

func Plan(ctx context.Context, db *gorm.DB) ([]string, error) {
	if err := ping(ctx, db); err != nil {
		return nil, err
	}
	pending, err := database.PendingTables(db)
	if err != nil {
		return nil, err
	}
	details := make([]string, 0, len(pending)+2)
	if len(pending) == 0 {
		details = append(details, "no tables to create; AutoMigrate would only reconcile columns and indexes")
	}
	for _, table := range pending {
		details = append(details, "would create table: "+table)
	}
	return append(details, "no mutation executed in plan mode"), nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
