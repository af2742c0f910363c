package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
)

// NewConfiguredEmailSender picks the delivery backend named by EMAIL_PROVIDER.
func NewConfiguredEmailSender(cfg *config.Config, logger *slog.Logger) (EmailSender, error) {
	switch cfg.EmailProvider {
	case "smtp":
		return NewSMTPEmailSender(cfg)
	case "", "log":
		return NewLogEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

func welcomeEmail(to, username string) EmailMessage {
	return EmailMessage{
		Kind:    EmailKindWelcome,
		To:      to,
		Subject: "Welcome! Please verify your account",
		Body: fmt.Sprintf("Hi %s,\n\nYour account has been created with the email %s. "+
			"It is not verified yet: sign in and request a verification code to finish setting it up.", username, to),
	}
}

func verifyOTPEmail(to, code string) EmailMessage {
	return EmailMessage{
		Kind:    EmailKindVerifyOTP,
		To:      to,
		Subject: "Verify Your Account",
		Body:    fmt.Sprintf("Your verification OTP is: %s", code),
	}
}

func resetOTPEmail(to, code string) EmailMessage {
	return EmailMessage{
		Kind:    EmailKindResetOTP,
		To:      to,
		Subject: "Password Reset OTP",
		Body:    fmt.Sprintf("Your password reset OTP is: %s", code),
	}
}

// LogEmailSender writes outgoing mail to the structured log instead of delivering it. The body
// carries the code, so it is logged at debug only.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email queued for delivery",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject,
	)
	s.logger.DebugContext(ctx, "email body", "kind", msg.Kind, "to", msg.To, "body", msg.Body)
	return nil
}
