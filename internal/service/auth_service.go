package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/otp-auth-service/internal/config"
	"github.com/sandeepkv93/otp-auth-service/internal/domain"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/repository"
	"github.com/sandeepkv93/otp-auth-service/internal/security"

	"go.opentelemetry.io/otel/attribute"
)

type AuthService struct {
	accountRepo repository.AccountRepository
	tokenSvc    *TokenService
	locker      AccountLocker
	mailer      *EmailDispatcher
	otpTTL      time.Duration
	now         func() time.Time
	generateOTP func() (string, error)
}

func NewAuthService(
	cfg *config.Config,
	accountRepo repository.AccountRepository,
	tokenSvc *TokenService,
	locker AccountLocker,
	mailer *EmailDispatcher,
) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		tokenSvc:    tokenSvc,
		locker:      locker,
		mailer:      mailer,
		otpTTL:      cfg.OTPTTL,
		now:         time.Now,
		generateOTP: security.GenerateOTP,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *SessionResult, err error) {
	ctx, end := observability.StartSpan(ctx, "auth.register")
	defer func() { end(err) }()
	defer func() { recordFlow(ctx, "register", err) }()

	username := strings.TrimSpace(in.Username)
	email := repository.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, newAuthError(ErrValidation, MsgAllFieldsRequired)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.FindByEmail(ctx, email); err == nil {
		return nil, newAuthError(ErrConflict, MsgEmailInUse)
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, internalError(err)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, internalError(err)
	}
	// The credential is minted before the insert so a signing failure leaves no account behind.
	account := &domain.Account{ID: uuid.NewString(), Username: username, Email: email, PasswordHash: hash}
	result, err := s.issueSession(account)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, newAuthError(ErrConflict, MsgEmailInUse)
		}
		return nil, internalError(err)
	}
	s.mailer.Dispatch(ctx, welcomeEmail(account.Email, account.Username))
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (_ *SessionResult, err error) {
	ctx, end := observability.StartSpan(ctx, "auth.login")
	defer func() { end(err) }()
	defer func() { recordFlow(ctx, "login", err) }()

	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, newAuthError(ErrValidation, MsgAllFieldsRequired)
	}
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newAuthError(ErrInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, internalError(err)
	}
	ok, err := security.VerifyPassword(account.PasswordHash, password)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return nil, newAuthError(ErrInvalidCredentials, MsgInvalidCredentials)
	}
	return s.issueSession(account)
}

func (s *AuthService) SendVerifyOTP(ctx context.Context, accountID string) (err error) {
	ctx, end := observability.StartSpan(ctx, "auth.send_verify_otp", attribute.String("account.id", accountID))
	defer func() { end(err) }()
	defer func() { recordOTP(ctx, domain.OTPChannelVerify, "issue", err) }()

	unlock, err := s.lock(ctx, accountID)
	if err != nil {
		return err
	}
	defer unlock()

	account, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.IsAccountVerified {
		return newAuthError(ErrAlreadyVerified, MsgAlreadyVerified)
	}
	code, err := s.issueOTP(ctx, account.ID, domain.OTPChannelVerify)
	if err != nil {
		return err
	}
	s.mailer.Dispatch(ctx, verifyOTPEmail(account.Email, code))
	return nil
}

// VerifyEmail consumes the verification code. Wrong, expired, absent and already-used codes all
// fail the same way.
func (s *AuthService) VerifyEmail(ctx context.Context, accountID, otp string) (err error) {
	ctx, end := observability.StartSpan(ctx, "auth.verify_email", attribute.String("account.id", accountID))
	defer func() { end(err) }()
	defer func() { recordOTP(ctx, domain.OTPChannelVerify, "consume", err) }()

	otp = strings.TrimSpace(otp)
	if otp == "" {
		return newAuthError(ErrValidation, MsgOTPRequired)
	}
	if !security.IsSixDigitCode(otp) {
		return newAuthError(ErrInvalidOTP, MsgInvalidOTP)
	}
	unlock, err := s.lock(ctx, accountID)
	if err != nil {
		return err
	}
	defer unlock()

	account, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	now := s.now()
	if !security.OTPMatches(account.VerifyOTP, otp) || !security.OTPStillValid(account.VerifyOTPExpireAt, now) {
		return newAuthError(ErrInvalidOTP, MsgInvalidOTP)
	}
	if err := s.accountRepo.ConsumeVerifyOTP(ctx, account.ID, security.HashOTP(otp), now.UnixMilli()); err != nil {
		return mapConsumeError(err)
	}
	return nil
}

func (s *AuthService) CheckAuth(ctx context.Context, accountID string) (*domain.PublicAccount, error) {
	account, err := s.findByID(ctx, accountID)
	if err != nil {
		recordFlow(ctx, "check_auth", err)
		return nil, err
	}
	recordFlow(ctx, "check_auth", nil)
	public := account.Public()
	return &public, nil
}

func (s *AuthService) SendResetOTP(ctx context.Context, email string) (err error) {
	ctx, end := observability.StartSpan(ctx, "auth.send_reset_otp")
	defer func() { end(err) }()
	defer func() { recordOTP(ctx, domain.OTPChannelReset, "issue", err) }()

	email = repository.NormalizeEmail(email)
	if email == "" {
		return newAuthError(ErrValidation, MsgEmailRequired)
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, account.ID)
	if err != nil {
		return err
	}
	defer unlock()

	code, err := s.issueOTP(ctx, account.ID, domain.OTPChannelReset)
	if err != nil {
		return err
	}
	s.mailer.Dispatch(ctx, resetOTPEmail(account.Email, code))
	return nil
}

// ResetPassword replaces the password when the reset code is valid. It does not sign the caller in.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) (err error) {
	ctx, end := observability.StartSpan(ctx, "auth.reset_password")
	defer func() { end(err) }()
	defer func() { recordOTP(ctx, domain.OTPChannelReset, "consume", err) }()

	email = repository.NormalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" || newPassword == "" {
		return newAuthError(ErrValidation, MsgAllFieldsRequired)
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !security.IsSixDigitCode(otp) {
		return newAuthError(ErrInvalidOTP, MsgInvalidOTP)
	}
	unlock, err := s.lock(ctx, account.ID)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock so the code check sees the latest issue.
	account, err = s.findByID(ctx, account.ID)
	if err != nil {
		return err
	}
	now := s.now()
	if !security.OTPMatches(account.ResetOTP, otp) || !security.OTPStillValid(account.ResetOTPExpireAt, now) {
		return newAuthError(ErrInvalidOTP, MsgInvalidOTP)
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return internalError(err)
	}
	if err := s.accountRepo.ConsumeResetOTP(ctx, account.ID, security.HashOTP(otp), hash, now.UnixMilli()); err != nil {
		return mapConsumeError(err)
	}
	return nil
}

func (s *AuthService) issueSession(account *domain.Account) (*SessionResult, error) {
	token, expiresAt, err := s.tokenSvc.Issue(account.ID)
	if err != nil {
		return nil, internalError(err)
	}
	return &SessionResult{Account: account.Public(), Token: token, ExpiresAt: expiresAt}, nil
}

// issueOTP stores a fresh code on the channel, replacing any pending one, and returns the
// plaintext for delivery. Only the digest is persisted.
func (s *AuthService) issueOTP(ctx context.Context, accountID string, channel domain.OTPChannel) (string, error) {
	code, err := s.generateOTP()
	if err != nil {
		return "", internalError(err)
	}
	expireAt := security.OTPExpiry(s.now(), s.otpTTL)
	if err := s.accountRepo.SetOTP(ctx, accountID, channel, security.HashOTP(code), expireAt); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", newAuthError(ErrNotFound, MsgUserNotFound)
		}
		return "", internalError(err)
	}
	return code, nil
}

func (s *AuthService) lock(ctx context.Context, accountID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	return unlock, nil
}

func (s *AuthService) findByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newAuthError(ErrNotFound, MsgUserNotFound)
		}
		return nil, internalError(err)
	}
	return account, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newAuthError(ErrNotFound, MsgUserNotFound)
		}
		return nil, internalError(err)
	}
	return account, nil
}

func mapConsumeError(err error) error {
	if errors.Is(err, repository.ErrOTPNotConsumed) {
		return newAuthError(ErrInvalidOTP, MsgInvalidOTP)
	}
	return internalError(err)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return newAuthError(ErrValidation, MsgEmailInvalid)
	}
	return nil
}

func recordFlow(ctx context.Context, flow string, err error) {
	observability.RecordAuthFlowEvent(ctx, flow, outcomeOf(err))
}

func recordOTP(ctx context.Context, channel domain.OTPChannel, action string, err error) {
	observability.RecordOTPEvent(ctx, string(channel), action, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrInvalidOTP):
		return "invalid_otp"
	default:
		return "error"
	}
}
