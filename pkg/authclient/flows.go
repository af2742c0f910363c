package authclient

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const otpLength = 6

var (
	ErrIncompleteOTP   = errors.New("authclient: enter the complete 6-digit code")
	ErrEmailRequired   = errors.New("authclient: email is required")
	ErrPasswordMissing = errors.New("authclient: new password is required")
	ErrWrongStep       = errors.New("authclient: action not allowed at this step")
)

// NormalizeOTP strips everything but digits, the way a digit-per-box input would.
func NormalizeOTP(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidOTP reports whether code is exactly six ASCII digits.
func ValidOTP(code string) bool {
	if len(code) != otpLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// VerifyEmailFlow drives the signed-in account through code request and submission.
type VerifyEmailFlow struct {
	client *Client
}

func NewVerifyEmailFlow(c *Client) *VerifyEmailFlow {
	return &VerifyEmailFlow{client: c}
}

func (f *VerifyEmailFlow) Start(ctx context.Context) error {
	return f.client.SendVerifyOTP(ctx)
}

// Submit keeps only the digits of otp and rejects anything but six of them locally, then verifies
// and refreshes user data so the Session reflects the verified flag.
func (f *VerifyEmailFlow) Submit(ctx context.Context, otp string) error {
	code := NormalizeOTP(otp)
	if !ValidOTP(code) {
		return ErrIncompleteOTP
	}
	if err := f.client.VerifyEmail(ctx, code); err != nil {
		return err
	}
	return f.client.RefreshUserData(ctx)
}

type ResetStep int

const (
	StepEmail ResetStep = iota + 1
	StepOTP
	StepNewPassword
	StepDone
)

func (s ResetStep) String() string {
	switch s {
	case StepEmail:
		return "email"
	case StepOTP:
		return "otp"
	case StepNewPassword:
		return "new_password"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// ResetPasswordWizard walks email -> otp -> new password -> done. The code is only checked for
// shape before advancing; the server judges it together with the new password.
type ResetPasswordWizard struct {
	client *Client

	mu    sync.Mutex
	step  ResetStep
	email string
	otp   string
}

func NewResetPasswordWizard(c *Client) *ResetPasswordWizard {
	return &ResetPasswordWizard{client: c, step: StepEmail}
}

func (w *ResetPasswordWizard) Step() ResetStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *ResetPasswordWizard) Email() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.email
}

func (w *ResetPasswordWizard) SubmitEmail(ctx context.Context, email string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepEmail {
		return ErrWrongStep
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if err := w.client.SendResetOTP(ctx, email); err != nil {
		return err
	}
	w.email = email
	w.step = StepOTP
	return nil
}

func (w *ResetPasswordWizard) SubmitOTP(otp string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepOTP {
		return ErrWrongStep
	}
	code := NormalizeOTP(otp)
	if !ValidOTP(code) {
		return ErrIncompleteOTP
	}
	w.otp = code
	w.step = StepNewPassword
	return nil
}

// SubmitNewPassword finishes the reset. A code the server rejects sends the wizard back to the
// OTP step; the user stays signed out either way.
func (w *ResetPasswordWizard) SubmitNewPassword(ctx context.Context, newPassword string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepNewPassword {
		return ErrWrongStep
	}
	if newPassword == "" {
		return ErrPasswordMissing
	}
	if err := w.client.ResetPassword(ctx, w.email, w.otp, newPassword); err != nil {
		if IsCode(err, "INVALID_OTP") {
			w.otp = ""
			w.step = StepOTP
		}
		return err
	}
	w.otp = ""
	w.step = StepDone
	return nil
}

// Back returns to the previous step, dropping the code when leaving the password step.
func (w *ResetPasswordWizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepOTP:
		w.step = StepEmail
	case StepNewPassword:
		w.otp = ""
		w.step = StepOTP
	}
}
