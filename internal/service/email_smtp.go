package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/config"

	"github.com/wneessen/go-mail"
)

type SMTPEmailSender struct {
	host string
	from string
	opts []mail.Option
}

func NewSMTPEmailSender(cfg *config.Config) (*SMTPEmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(cfg.EmailSendTimeout),
	}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	if cfg.SMTPTLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	// Build once up front so a bad option set fails at startup rather than on first send.
	if _, err := mail.NewClient(cfg.SMTPHost, opts...); err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPEmailSender{host: cfg.SMTPHost, from: cfg.EmailFrom, opts: opts}, nil
}

// Send dials a fresh connection per message; the mail client holds connection state and is
// not shared across goroutines.
func (s *SMTPEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email %s: missing recipient", msg.Kind)
	}
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send %s email after %s: %w", msg.Kind, time.Since(start).Round(time.Millisecond), err)
	}
	return nil
}
