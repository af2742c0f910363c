package service

import (
	"context"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/domain"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*SessionResult, error)
	Login(ctx context.Context, email, password string) (*SessionResult, error)
	SendVerifyOTP(ctx context.Context, accountID string) error
	VerifyEmail(ctx context.Context, accountID, otp string) error
	CheckAuth(ctx context.Context, accountID string) (*domain.PublicAccount, error)
	SendResetOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

type UserServiceInterface interface {
	GetAccountData(ctx context.Context, accountID string) (*domain.AccountData, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// SessionResult is what a successful sign-up or sign-in hands to the transport layer.
type SessionResult struct {
	Account   domain.PublicAccount
	Token     string
	ExpiresAt time.Time
}

type EmailKind string

const (
	EmailKindWelcome   EmailKind = "welcome"
	EmailKindVerifyOTP EmailKind = "verify_otp"
	EmailKindResetOTP  EmailKind = "reset_otp"
)

type EmailMessage struct {
	Kind    EmailKind
	To      string
	Subject string
	Body    string
}

// EmailSender delivers one message. Implementations must respect ctx cancellation.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// AccountLocker serializes OTP issue and consume operations for one account.
type AccountLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
