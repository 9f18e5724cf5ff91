package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-api/internal/middleware"
	"go-contact-api/internal/model"
	"go-contact-api/pkg/apierror"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var body model.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierror.NotFound("user not found", ""), http.StatusNotFound, apierror.CodeNotFound},
		{"wrapped user not found", fmt.Errorf("load: %w", model.ErrUserNotFound), http.StatusNotFound, apierror.CodeNotFound},
		{"email taken", model.ErrEmailTaken, http.StatusUnprocessableEntity, apierror.CodeValidation},
		{"token error", model.ErrTokenRevoked, http.StatusUnauthorized, apierror.CodeUnauthorized},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, apierror.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeResponse(t, rec)
			assert.False(t, body.Status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Message, "pq:")
		})
	}
}

func TestWriteErrorCarriesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/", nil), apierror.Validation(map[string][]string{"email": {"The email field is required."}}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"status":false,"message":"validation failed","code":"VALIDATION_ERROR","errors":{"email":["The email field is required."]}}`,
		rec.Body.String(),
	)
}

func TestWriteErrorLogsRequestID(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()
	writeError(rec, req, errors.New("connection reset"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Contains(t, logs.String(), `"request_id":"req-123"`)
	assert.Contains(t, logs.String(), `"error":"connection reset"`)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("empty body is the zero value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		var payload model.LoginRequest
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &payload))
		assert.Empty(t, payload.Email)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		var payload model.LoginRequest
		err := decodeJSON(httptest.NewRecorder(), req, &payload)

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var payload model.LoginRequest
		assert.Error(t, decodeJSON(httptest.NewRecorder(), req, &payload))
	})
}

type stubAuthService struct {
	registerReq model.RegisterRequest
	logoutRaw   string
	meRaw       string
	err         error
}

func (s *stubAuthService) Register(_ context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	s.registerReq = req
	if s.err != nil {
		return model.AuthResult{}, s.err
	}
	return model.AuthResult{User: model.AuthUser{ID: 1, Email: req.Email, Role: model.RoleUser}}, nil
}

func (s *stubAuthService) Login(context.Context, model.LoginRequest) (model.AuthResult, error) {
	return model.AuthResult{}, s.err
}

func (s *stubAuthService) CurrentUser(_ context.Context, raw string) (model.User, error) {
	s.meRaw = raw
	return model.User{ID: 1}, s.err
}

func (s *stubAuthService) Refresh(context.Context, *model.Session) (model.RefreshResult, error) {
	return model.RefreshResult{AccessToken: model.AccessToken{Token: "next", TokenType: model.TokenTypeBearer, ExpiresIn: 3600}}, s.err
}

func (s *stubAuthService) Logout(_ context.Context, raw string) error {
	s.logoutRaw = raw
	return s.err
}

func (s *stubAuthService) SessionCheck(session *model.Session) model.SessionResult {
	return model.SessionResult{User: session.User, AccessToken: model.AccessToken{Token: session.Token, TokenType: model.TokenTypeBearer, ExpiresIn: 42}}
}

func TestAuthHandler_Register(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"A","email":"a@x.com","password":"Aa1$aaa","c_password":"Aa1$aaa","role":"admin"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Aa1$aaa", svc.registerReq.ConfirmPassword)

	body := decodeResponse(t, rec)
	assert.True(t, body.Status)
	assert.Equal(t, "registration successful", body.Message)
}

func TestAuthHandler_RegisterValidationError(t *testing.T) {
	svc := &stubAuthService{err: apierror.Validation(map[string][]string{"name": {"The name field is required."}})}
	rec := httptest.NewRecorder()
	NewAuthHandler(svc).Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAuthHandler_BearerPassthrough(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def.ghi", svc.logoutRaw)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.meRaw)
}

func TestAuthHandler_SessionRoutesNeedGate(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	h.GetSession(rec, httptest.NewRequest(http.MethodGet, "/auth/get-session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	session := &model.Session{User: model.User{ID: 9, Role: model.RoleUser}, Token: "tok"}
	req := httptest.NewRequest(http.MethodGet, "/auth/get-session", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), session))
	rec = httptest.NewRecorder()
	h.GetSession(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"expires_in":42`)

	req = httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), session))
	rec = httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"next"`)
}

func TestHealthHandler(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"database": up}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"database": up, "redis": down}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t,
		`{"status":false,"message":"service unavailable","data":{"database":"up","redis":"down"}}`,
		rec.Body.String(),
	)
}
