package handler

import (
	"net/http"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/response"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/security"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

type AuthHandler struct {
	authSvc    service.AuthServiceInterface
	cookieMgr  *security.CookieManager
	sessionTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, sessionTTL: sessionTTL}
}

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	OTP string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "sign_up")
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		done(http.StatusBadRequest)
		return
	}
	result, err := h.authSvc.Register(r.Context(), service.RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		observability.Audit(r, "auth.register.failed", "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	h.cookieMgr.SetSessionCookie(w, result.Token, h.sessionTTL)
	observability.Audit(r, "auth.register.success", "user_id", result.Account.ID)
	response.JSON(w, r, http.StatusCreated, service.MsgRegistered, map[string]any{
		"user":  result.Account,
		"token": result.Token,
	})
	done(http.StatusCreated)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "sign_in")
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		done(http.StatusBadRequest)
		return
	}
	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		observability.Audit(r, "auth.login.failed", "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	h.cookieMgr.SetSessionCookie(w, result.Token, h.sessionTTL)
	observability.Audit(r, "auth.login.success", "user_id", result.Account.ID)
	response.JSON(w, r, http.StatusOK, service.MsgLoginSuccess, map[string]any{
		"user":  result.Account,
		"token": result.Token,
	})
	done(http.StatusOK)
}

// SignOut clears the session cookie. The token itself stays valid until it expires; there is
// no server-side revocation.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "sign_out")
	h.cookieMgr.ClearSessionCookie(w)
	observability.Audit(r, "auth.logout.success")
	observability.RecordAuthFlowEvent(r.Context(), "logout", "success")
	response.JSON(w, r, http.StatusOK, service.MsgLogoutSuccess, nil)
	done(http.StatusOK)
}

func (h *AuthHandler) SendVerifyOTP(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "send_verify_otp")
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgNoToken, nil)
		done(http.StatusUnauthorized)
		return
	}
	if err := h.authSvc.SendVerifyOTP(r.Context(), accountID); err != nil {
		observability.Audit(r, "auth.verify_otp.send_failed", "user_id", accountID, "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	observability.Audit(r, "auth.verify_otp.sent", "user_id", accountID)
	response.JSON(w, r, http.StatusOK, service.MsgVerifyOTPSent, nil)
	done(http.StatusOK)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "verify_email")
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgNoToken, nil)
		done(http.StatusUnauthorized)
		return
	}
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		done(http.StatusBadRequest)
		return
	}
	if err := h.authSvc.VerifyEmail(r.Context(), accountID, req.OTP); err != nil {
		observability.Audit(r, "auth.verify_email.failed", "user_id", accountID, "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	observability.Audit(r, "auth.verify_email.success", "user_id", accountID)
	response.JSON(w, r, http.StatusOK, service.MsgEmailVerified, nil)
	done(http.StatusOK)
}

func (h *AuthHandler) IsAuth(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "is_auth")
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgNoToken, nil)
		done(http.StatusUnauthorized)
		return
	}
	account, err := h.authSvc.CheckAuth(r.Context(), accountID)
	if err != nil {
		done(writeServiceError(w, r, err))
		return
	}
	response.JSON(w, r, http.StatusOK, service.MsgAuthenticated, map[string]any{"user": account})
	done(http.StatusOK)
}

func (h *AuthHandler) SendResetOTP(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "send_reset_otp")
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		done(http.StatusBadRequest)
		return
	}
	if err := h.authSvc.SendResetOTP(r.Context(), req.Email); err != nil {
		observability.Audit(r, "auth.reset_otp.send_failed", "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	observability.Audit(r, "auth.reset_otp.sent")
	response.JSON(w, r, http.StatusOK, service.MsgResetOTPSent, nil)
	done(http.StatusOK)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "reset_password")
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		done(http.StatusBadRequest)
		return
	}
	if err := h.authSvc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		observability.Audit(r, "auth.reset_password.failed", "reason", reasonOf(err))
		done(writeServiceError(w, r, err))
		return
	}
	observability.Audit(r, "auth.reset_password.success")
	response.JSON(w, r, http.StatusOK, service.MsgPasswordReset, nil)
	done(http.StatusOK)
}
