package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "account", Short: "Inspect accounts and issue one-time codes"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newShowCommand(opts), newListCommand(opts), newIssueOTPCommand(opts))
	return cmd
}

func (o *options) runOptions(command string) common.RunOptions {
	return common.RunOptions{Tool: "account", Command: command, CI: o.ci, Timeout: o.timeout, ExitCode: 3}
}

func newShowCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the public data and pending code state of one account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("show"), func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return Show(ctx, repository.NewAccountRepository(db), email, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newListCommand(opts *options) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("list"), func(ctx context.Context) ([]string, error) {
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				return List(ctx, repository.NewAccountRepository(db), repository.PageRequest{Page: page, PageSize: pageSize})
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", repository.DefaultPage, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", repository.DefaultPageSize, "accounts per page")
	return cmd
}

func newIssueOTPCommand(opts *options) *cobra.Command {
	var email, channel string
	cmd := &cobra.Command{
		Use:   "issue-otp",
		Short: "Issue and mail a fresh verify or reset code to an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.runOptions("issue-otp"), func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)

				logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
				if opts.ci {
					logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
				}
				repo := repository.NewAccountRepository(db)
				auth, mailer, err := newAuthService(cfg, repo, logger)
				if err != nil {
					return nil, err
				}
				defer func() { _ = mailer.Close(ctx) }()
				details, err := IssueOTP(ctx, auth, repo, email, domain.OTPChannel(channel))
				if err != nil {
					return nil, err
				}
				return append(details, "delivery: "+providerName(cfg)), nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&channel, "channel", string(domain.OTPChannelVerify), "code channel: verify|reset")
	return cmd
}

func newAuthService(cfg *config.Config, repo repository.AccountRepository, logger *slog.Logger) (*service.AuthService, *service.EmailDispatcher, error) {
	sender, err := service.NewConfiguredEmailSender(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	mailer := service.NewEmailDispatcher(sender, logger, cfg.EmailSendTimeout, false)
	tokens := service.NewTokenService(security.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL))
	locker := service.NewInMemoryAccountLocker(cfg.AccountLockWait)
	return service.NewAuthService(cfg, repo, tokens, locker, mailer), mailer, nil
}

func providerName(cfg *config.Config) string {
	if cfg.EmailProvider == "" {
		return "log"
	}
	return cfg.EmailProvider
}

func Show(ctx context.Context, repo repository.AccountRepository, email string, now time.Time) ([]string, error) {
	if repository.NormalizeEmail(email) == "" {
		return nil, errors.New("--email is required")
	}
	acc, err := repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	data := acc.Data()
	return []string{
		"id: " + data.ID,
		"username: " + data.Username,
		"email: " + data.Email,
		fmt.Sprintf("verified: %t", data.IsAccountVerified),
		"verify code: " + pendingState(acc.VerifyOTP, acc.VerifyOTPExpireAt, now),
		"reset code: " + pendingState(acc.ResetOTP, acc.ResetOTPExpireAt, now),
		"created: " + acc.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func pendingState(digest string, expireAtMs int64, now time.Time) string {
	if digest == "" || expireAtMs == 0 {
		return "none"
	}
	expires := time.UnixMilli(expireAtMs).UTC()
	if now.UnixMilli() > expireAtMs {
		return "expired at " + expires.Format(time.RFC3339)
	}
	return "pending until " + expires.Format(time.RFC3339)
}

func List(ctx context.Context, repo repository.AccountRepository, req repository.PageRequest) ([]string, error) {
	res, err := repo.ListPaged(ctx, req)
	if err != nil {
		return nil, err
	}
	details := make([]string, 0, len(res.Items)+1)
	details = append(details, fmt.Sprintf("page %d/%d (page_size=%d total=%d)", res.Page, res.TotalPages, res.PageSize, res.Total))
	for _, acc := range res.Items {
		details = append(details, fmt.Sprintf("%s %s %s verified=%t", acc.ID, acc.Email, acc.Username, acc.IsAccountVerified))
	}
	return details, nil
}

// IssueOTP goes through the same service operations as the HTTP API so locking, hashing and
// mail delivery behave identically. The code itself is never returned.
func IssueOTP(ctx context.Context, auth service.AuthServiceInterface, repo repository.AccountRepository, email string, channel domain.OTPChannel) ([]string, error) {
	if repository.NormalizeEmail(email) == "" {
		return nil, errors.New("--email is required")
	}
	if !channel.Valid() {
		return nil, fmt.Errorf("unknown channel %q: use verify or reset", channel)
	}
	switch channel {
	case domain.OTPChannelVerify:
		acc, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if err := auth.SendVerifyOTP(ctx, acc.ID); err != nil {
			return nil, err
		}
	case domain.OTPChannelReset:
		if err := auth.SendResetOTP(ctx, email); err != nil {
			return nil, err
		}
	}
	return []string{fmt.Sprintf("issued %s code to %s", channel, repository.NormalizeEmail(email))}, nil
}
