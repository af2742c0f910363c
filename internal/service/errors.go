package service

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is; an *AuthError matches its kind.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrInternal           = errors.New("internal error")
)

// AuthError carries a caller-safe message for a failed auth operation. Err holds the underlying
// cause for server-side logging and never reaches the client.
type AuthError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Is(target error) bool { return e.Kind == target }

func (e *AuthError) Unwrap() error { return e.Err }

func newAuthError(kind error, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

func internalError(err error) *AuthError {
	return &AuthError{Kind: ErrInternal, Message: MsgServerError, Err: err}
}

// AsAuthError returns err as an *AuthError, wrapping anything unexpected as an internal error.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return internalError(err)
}

// Caller-visible messages.
const (
	MsgAllFieldsRequired  = "All fields are required"
	MsgEmailInvalid       = "Email is invalid"
	MsgEmailInUse         = "Email already in use"
	MsgRegistered         = "User registered successfully"
	MsgInvalidCredentials = "Invalid email or password"
	MsgLoginSuccess       = "Login successful"
	MsgLogoutSuccess      = "Logout successful"
	MsgUserNotFound       = "User not found"
	MsgAlreadyVerified    = "Account already verified"
	MsgVerifyOTPSent      = "OTP sent to email"
	MsgOTPRequired        = "OTP is required"
	MsgInvalidOTP         = "Invalid or expired OTP"
	MsgEmailVerified      = "Email verified successfully"
	MsgAuthenticated      = "User authenticated"
	MsgEmailRequired      = "Email is required"
	MsgResetOTPSent       = "Password reset OTP sent to email"
	MsgPasswordReset      = "Password reset successful"
	MsgUserDataFetched    = "User data fetched successfully"
	MsgServerError        = "Server Error"
	MsgNoToken            = "Unauthorized: No token provided"
	MsgTokenExpired       = "Token expired, please login again"
	MsgTokenInvalid       = "Invalid token, authorization denied"
)
