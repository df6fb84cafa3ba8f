package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"astra-backend/internal/models"
	"astra-backend/internal/services"
	"astra-backend/pkg/httputil"

	"go.uber.org/zap"
)

// AuthHandler handles authentication HTTP requests.
type AuthHandler struct {
	authService *services.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// HandleSignup handles POST /v1/auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUserAlreadyExists):
			httputil.RespondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("signup failed", zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to sign up")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrInvalidCredentials):
			httputil.RespondError(w, http.StatusUnauthorized, err.Error())
		default:
			h.logger.Error("login failed", zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
