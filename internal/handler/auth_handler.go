package handler

import (
	"context"
	"net/http"

	"go-contact-api/internal/middleware"
	"go-contact-api/internal/model"
	"go-contact-api/pkg/apierror"
)

type authService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error)
	CurrentUser(ctx context.Context, raw string) (model.User, error)
	Refresh(ctx context.Context, session *model.Session) (model.RefreshResult, error)
	Logout(ctx context.Context, raw string) error
	SessionCheck(session *model.Session) model.SessionResult
}

type AuthHandler struct {
	service authService
}

func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "registration successful", result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", result)
}

// Me is not behind the session gate; it reports bad tokens as 400.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.BearerToken(r)

	user, err := h.service.CurrentUser(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "user retrieved", user)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Unauthorized("authentication required"))
		return
	}

	result, err := h.service.Refresh(r.Context(), session)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "token refreshed", result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.BearerToken(r)

	if err := h.service.Logout(r.Context(), raw); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Unauthorized("authentication required"))
		return
	}

	writeSuccess(w, http.StatusOK, "session active", h.service.SessionCheck(session))
}
