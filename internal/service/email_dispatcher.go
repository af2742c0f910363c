package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
)

// EmailDispatcher sends mail on behalf of the auth flows. Delivery failures are logged and
// counted; they never reach the caller and never undo the state change that triggered them.
type EmailDispatcher struct {
	sender  EmailSender
	logger  *slog.Logger
	timeout time.Duration
	async   bool

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewEmailDispatcher(sender EmailSender, logger *slog.Logger, timeout time.Duration, async bool) *EmailDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailDispatcher{sender: sender, logger: logger, timeout: timeout, async: async}
}

// Dispatch hands msg to the sender. In async mode it returns as soon as the send has started.
func (d *EmailDispatcher) Dispatch(ctx context.Context, msg EmailMessage) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		observability.RecordEmailEvent(ctx, string(msg.Kind), "dropped")
		d.logger.WarnContext(ctx, "email dropped after shutdown", "kind", msg.Kind, "to", msg.To)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	// The request context is cancelled once the response is written; keep its values only.
	sendCtx := context.WithoutCancel(ctx)
	if !d.async {
		d.send(sendCtx, msg)
		return
	}
	go d.send(sendCtx, msg)
}

func (d *EmailDispatcher) send(ctx context.Context, msg EmailMessage) {
	defer d.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.sender.Send(ctx, msg); err != nil {
		observability.RecordEmailEvent(ctx, string(msg.Kind), "failure")
		d.logger.ErrorContext(ctx, "email delivery failed",
			"kind", msg.Kind,
			"to", msg.To,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	observability.RecordEmailEvent(ctx, string(msg.Kind), "success")
}

// Close stops accepting new messages and waits for in-flight sends until ctx is done.
func (d *EmailDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
