package common

import (
	"context"
	"os"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/tools/ui"
)

// Action is the unit of work behind every authctl subcommand. It returns human-readable
// detail lines for both the TUI and the CI JSON output.
type Action func(ctx context.Context) ([]string, error)

type RunOptions struct {
	Tool     string
	Command  string
	CI       bool
	Timeout  time.Duration
	ExitCode int
}

// Execute runs the action either headless (CI) or behind the progress TUI, records the tool
// metrics and exits with ExitCode on failure.
func Execute(opts RunOptions, fn Action) error {
	started := time.Now()
	details, err := Run(opts, fn)
	if opts.CI {
		_ = NewCIResult(opts, time.Since(started), details, err).Write(os.Stdout)
	}
	if err != nil {
		code := opts.ExitCode
		if code == 0 {
			code = 3
		}
		os.Exit(code)
	}
	return nil
}

func Run(opts RunOptions, fn Action) ([]string, error) {
	tracked := func(ctx context.Context) ([]string, error) {
		start := time.Now()
		details, err := fn(ctx)
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		observability.RecordToolCommandRun(ctx, opts.Tool, opts.Command, outcome)
		observability.RecordToolCommandDuration(ctx, opts.Tool, opts.Command, outcome, time.Since(start))
		return details, err
	}
	if opts.CI {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tracked(ctx)
	}
	return ui.Run(opts.Tool+" "+opts.Command, opts.Timeout, tracked)
}
