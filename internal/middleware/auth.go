package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-contact-api/internal/model"
	"go-contact-api/internal/service"
	"go-contact-api/pkg/apierror"
)

type authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.Session, error)
}

type contextKey string

const sessionContextKey contextKey = "auth_session"

type AuthMiddleware struct {
	auth authenticator
}

func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth is the session gate: only requests carrying a valid, unrevoked
// token for an active user reach next.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, service.GateMessage(model.ErrTokenMissing))
			return
		}

		session, err := m.auth.Authenticate(r.Context(), raw)
		if err != nil {
			if model.IsTokenError(err) || errors.Is(err, model.ErrUserNotFound) {
				writeAuthError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, service.GateMessage(err))
				return
			}

			slog.Error("session gate failed",
				"error", err,
				"request_id", RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
			)
			writeAuthError(w, http.StatusInternalServerError, apierror.CodeInternal, "internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	roleSet := map[model.Role]struct{}{}
	for _, role := range allowedRoles {
		roleSet[model.Role(strings.ToLower(strings.TrimSpace(string(role))))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, "authentication required")
				return
			}

			// The stored role wins over the claim so demotions apply immediately.
			if _, exists := roleSet[session.User.Role]; !exists {
				writeAuthError(w, http.StatusForbidden, apierror.CodeForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	return session, ok && session != nil
}

// WithSession attaches session to ctx the same way RequireAuth does.
func WithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Status:  false,
		Message: message,
		Code:    code,
	})
}
