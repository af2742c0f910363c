package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/otp-auth-service/internal/http/response"
	"github.com/sandeepkv93/otp-auth-service/internal/observability"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

// trackRequest starts the endpoint timer; call the returned func once with the final status.
func trackRequest(r *http.Request, endpoint string) func(status int) {
	start := time.Now()
	return func(status int) {
		observability.RecordAuthRequestDuration(r.Context(), endpoint, strconv.Itoa(status), time.Since(start))
	}
}

// decodeJSON reads the request body into dst. An empty body decodes as the zero value so the
// service reports missing fields rather than a parse error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		return false
	}
	response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
	return false
}

type errorMapping struct {
	kind   error
	status int
	code   string
}

var serviceErrorMappings = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{service.ErrConflict, http.StatusBadRequest, "CONFLICT"},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "INVALID_CREDENTIALS"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED"},
	{service.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},
}

// writeServiceError maps a service error to its HTTP status and returns that status. Internal
// causes are logged here and never reach the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) int {
	ae := service.AsAuthError(err)
	for _, m := range serviceErrorMappings {
		if errors.Is(ae, m.kind) {
			response.Error(w, r, m.status, m.code, ae.Message, nil)
			return m.status
		}
	}
	slog.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"error", ae.Err,
	)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", service.MsgServerError, nil)
	return http.StatusInternalServerError
}

func reasonOf(err error) string {
	for _, m := range serviceErrorMappings {
		if errors.Is(err, m.kind) {
			return m.code
		}
	}
	return "INTERNAL"
}
