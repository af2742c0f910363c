package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/otp-auth-service/internal/database"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/common"
)

type options struct {
	envFile  string
	username string
	email    string
	password string
	verified bool
	ci       bool
}

// Input describes the development account to seed.
type Input struct {
	Username string
	Email    string
	Password string
	Verified bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Development account seeding"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.username, "username", "dev", "username of the seeded account")
	cmd.PersistentFlags().StringVar(&opts.email, "email", "dev@example.com", "email of the seeded account")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "", "password of the seeded account (defaults to $SEED_PASSWORD)")
	cmd.PersistentFlags().BoolVar(&opts.verified, "verified", false, "mark the seeded account as verified")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func (o *options) input() Input {
	password := o.password
	if password == "" {
		password = os.Getenv("SEED_PASSWORD")
	}
	return Input{Username: o.username, Email: o.email, Password: password, Verified: o.verified}
}

func (o *options) runOptions(command string) common.RunOptions {
	return common.RunOptions{Tool: "seed", Command: command, CI: o.ci, ExitCode: 3}
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create the development account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("apply"), func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return Apply(ctx, db, opts.input())
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("dry-run"), func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return DryRun(ctx, db, opts.input())
			})
		},
	}
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Username) == "" || repository.NormalizeEmail(in.Email) == "" {
		return errors.New("username and email are required")
	}
	if in.Password == "" {
		return errors.New("password is required: pass --password or set SEED_PASSWORD")
	}
	return nil
}

func Apply(ctx context.Context, db *gorm.DB, in Input) ([]string, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	report, err := database.SeedDevAccount(ctx, db, database.DevAccount{
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		PasswordHash: hash,
		Verified:     in.Verified,
	})
	if err != nil {
		return nil, err
	}
	if !report.Created {
		return []string{"account already exists, left untouched: " + report.Email, "id: " + report.ID}, nil
	}
	return []string{
		"created account: " + report.Email,
		"id: " + report.ID,
		fmt.Sprintf("verified: %t", in.Verified),
	}, nil
}

func DryRun(ctx context.Context, db *gorm.DB, in Input) ([]string, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := repository.NormalizeEmail(in.Email)
	_, err := repository.NewAccountRepository(db).FindByEmail(ctx, email)
	switch {
	case err == nil:
		return []string{"account exists, apply would leave it untouched: " + email}, nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return []string{
			"would create account: " + email,
			"username: " + strings.TrimSpace(in.Username),
			fmt.Sprintf("verified: %t", in.Verified),
		}, nil
	default:
		return nil, err
	}
}
