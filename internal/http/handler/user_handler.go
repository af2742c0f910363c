package handler

import (
	"net/http"

	"github.com/sandeepkv93/otp-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-auth-service/internal/http/response"
	"github.com/sandeepkv93/otp-auth-service/internal/service"
)

type UserHandler struct {
	userSvc service.UserServiceInterface
}

func NewUserHandler(userSvc service.UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) Data(w http.ResponseWriter, r *http.Request) {
	done := trackRequest(r, "user_data")
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.MsgNoToken, nil)
		done(http.StatusUnauthorized)
		return
	}
	data, err := h.userSvc.GetAccountData(r.Context(), accountID)
	if err != nil {
		done(writeServiceError(w, r, err))
		return
	}
	response.JSON(w, r, http.StatusOK, service.MsgUserDataFetched, map[string]any{"userData": data})
	done(http.StatusOK)
}
