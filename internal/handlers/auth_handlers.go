// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// AuthHandler serves user registration and identity checks.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// HandlerReady reports whether the backing service is ready.
func (h *AuthHandler) HandlerReady() bool {
	return h.authService.ServiceReady()
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email string `json:"email"`
}

// AuthResponse describes the registered user and how to authenticate.
type AuthResponse struct {
	*models.User
	TokenType string `json:"token_type"`
	Message   string `json:"message"`
}

func authResponse(user *models.User) AuthResponse {
	return AuthResponse{
		User:      user,
		TokenType: "ApiKey",
		Message:   "Send header " + constants.UserEmailHeader + ": " + user.Email + " on all requests",
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, authResponse(user))
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Me(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, authResponse(user))
}

// VerifyProvider handles GET /auth/fireflies.
func (h *AuthHandler) VerifyProvider(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	account, err := h.authService.VerifyProvider(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, account)
}
