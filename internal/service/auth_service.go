package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"go-contact-api/internal/model"
	"go-contact-api/pkg/apierror"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUUID(ctx context.Context, uuid string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	EmailExists(ctx context.Context, email string, excludeUUID string) (bool, error)
	Update(ctx context.Context, u *model.User) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, q model.UserQuery) ([]model.User, int, error)
}

type ProfileStore interface {
	Create(ctx context.Context, p *model.Profile) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain string, hash string) bool
}

type TokenManager interface {
	Issue(user model.User) (model.IssuedToken, error)
	Verify(ctx context.Context, raw string) (model.TokenClaims, error)
	Parse(raw string) (model.TokenClaims, error)
	Revoke(ctx context.Context, claims model.TokenClaims) (bool, error)
	Remaining(claims model.TokenClaims) int64
}

// EventRecorder counts auth outcomes, e.g. for Prometheus.
type EventRecorder interface {
	RecordAuthEvent(event string, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

type AuthService struct {
	users              UserStore
	profiles           ProfileStore
	tx                 Transactor
	hasher             PasswordHasher
	tokens             TokenManager
	recorder           EventRecorder
	uniformLoginErrors bool
}

func NewAuthService(users UserStore, profiles ProfileStore, tx Transactor, hasher PasswordHasher, tokens TokenManager) *AuthService {
	return &AuthService{
		users:    users,
		profiles: profiles,
		tx:       tx,
		hasher:   hasher,
		tokens:   tokens,
		recorder: nopRecorder{},
	}
}

// SetUniformLoginErrors makes login answer an unknown email exactly like a
// wrong password.
func (s *AuthService) SetUniformLoginErrors(enabled bool) {
	s.uniformLoginErrors = enabled
}

func (s *AuthService) SetRecorder(recorder EventRecorder) {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s.recorder = recorder
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	fields := apierror.FieldErrors{}
	checkName(fields, name, maxRegisterNameLength)

	if checkEmailFormat(fields, email) {
		taken, err := s.users.EmailExists(ctx, email, "")
		if err != nil {
			return model.AuthResult{}, err
		}
		if taken {
			fields.Add("email", "The email has already been taken.")
		}
	}

	if checkPasswordLength(fields, req.Password) && !strongPassword(req.Password) {
		fields.Add("password", "The password must contain at least one uppercase letter, one lowercase letter, one number and one symbol.")
	}

	switch {
	case req.ConfirmPassword == "":
		fields.Add("c_password", "The c password field is required.")
	case req.ConfirmPassword != req.Password:
		fields.Add("c_password", "The c password and password must match.")
	}

	if err := fields.Err(); err != nil {
		s.recorder.RecordAuthEvent("register", "invalid")
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	user := model.User{
		UUID:         uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}

	var issued model.IssuedToken
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := createUserWithProfile(ctx, s.users, s.profiles, &user); err != nil {
			return err
		}

		var err error
		issued, err = s.tokens.Issue(user)
		return err
	})
	if errors.Is(err, model.ErrEmailTaken) {
		s.recorder.RecordAuthEvent("register", "invalid")
		return model.AuthResult{}, apierror.Validation(map[string][]string{
			"email": {"The email has already been taken."},
		})
	}
	if err != nil {
		s.recorder.RecordAuthEvent("register", "error")
		return model.AuthResult{}, fmt.Errorf("register user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "uuid", user.UUID)
	s.recorder.RecordAuthEvent("register", "success")

	return model.AuthResult{User: user.Public(), AccessToken: accessToken(issued)}, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	fields := apierror.FieldErrors{}

	var (
		user  model.User
		found bool
	)
	if checkEmailFormat(fields, email) {
		u, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			user, found = u, true
		case errors.Is(err, model.ErrUserNotFound):
			if !s.uniformLoginErrors {
				fields.Add("email", "The selected email is not registered.")
			}
		default:
			return model.AuthResult{}, err
		}
	}

	switch {
	case req.Password == "":
		fields.Add("password", "The password field is required.")
	case len([]rune(req.Password)) < minPasswordLength:
		fields.Add("password", "The password must be at least 6 characters.")
	}

	if err := fields.Err(); err != nil {
		s.recorder.RecordAuthEvent("login", "invalid")
		return model.AuthResult{}, err
	}

	if !found {
		s.recorder.RecordAuthEvent("login", "failed")
		return model.AuthResult{}, invalidCredentials()
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.recorder.RecordAuthEvent("login", "failed")
		if s.uniformLoginErrors {
			return model.AuthResult{}, invalidCredentials()
		}
		return model.AuthResult{}, apierror.New(apierror.CodeAuthentication, "wrong password", "", http.StatusUnprocessableEntity)
	}

	issued, err := s.tokens.Issue(user)
	if err != nil {
		s.recorder.RecordAuthEvent("login", "error")
		return model.AuthResult{}, err
	}

	s.recorder.RecordAuthEvent("login", "success")
	return model.AuthResult{User: user.Public(), AccessToken: accessToken(issued)}, nil
}

// Authenticate resolves a raw bearer token into a session. Failures are the
// model token sentinels, model.ErrUserNotFound, or an infrastructure error.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.Session, error) {
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &model.Session{User: user, Claims: claims, Token: raw}, nil
}

// CurrentUser backs /auth/me, which answers bad tokens with 400 rather than
// going through the session gate.
func (s *AuthService) CurrentUser(ctx context.Context, raw string) (model.User, error) {
	if raw == "" {
		return model.User{}, apierror.Unauthorized("token not found")
	}

	session, err := s.Authenticate(ctx, raw)
	switch {
	case err == nil:
		return session.User, nil
	case model.IsTokenError(err):
		return model.User{}, apierror.New(apierror.CodeInvalidToken, "invalid token", tokenErrorDetail(err), http.StatusBadRequest)
	case errors.Is(err, model.ErrUserNotFound):
		return model.User{}, apierror.NotFound("user not found", "")
	default:
		return model.User{}, err
	}
}

// Refresh retires the session's token and mints a new one for the same user.
// Only the first of several concurrent refreshes with one token succeeds.
func (s *AuthService) Refresh(ctx context.Context, session *model.Session) (model.RefreshResult, error) {
	if session == nil {
		return model.RefreshResult{}, model.ErrUnauthorized
	}

	retired, err := s.tokens.Revoke(ctx, session.Claims)
	if err != nil {
		s.recorder.RecordAuthEvent("refresh", "error")
		return model.RefreshResult{}, err
	}
	if !retired {
		s.recorder.RecordAuthEvent("refresh", "invalid")
		return model.RefreshResult{}, apierror.Unauthorized(GateMessage(model.ErrTokenRevoked))
	}

	issued, err := s.tokens.Issue(session.User)
	if err != nil {
		s.recorder.RecordAuthEvent("refresh", "error")
		return model.RefreshResult{}, err
	}

	s.recorder.RecordAuthEvent("refresh", "success")
	return model.RefreshResult{AccessToken: accessToken(issued)}, nil
}

// Logout denylists the presented token. Logging out twice, or with a token
// that already expired, still succeeds as long as the signature is ours.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return apierror.Unauthorized("token not found")
	}

	claims, err := s.tokens.Parse(raw)
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		s.recorder.RecordAuthEvent("logout", "success")
		return nil
	case model.IsTokenError(err):
		s.recorder.RecordAuthEvent("logout", "invalid")
		return apierror.New(apierror.CodeUnauthorized, GateMessage(err), "", http.StatusUnauthorized)
	case err != nil:
		return err
	}

	revoked, err := s.tokens.Revoke(ctx, claims)
	if err != nil {
		s.recorder.RecordAuthEvent("logout", "error")
		return err
	}
	if !revoked {
		slog.Debug("logout of an already revoked token", "user_id", claims.UserID)
	}

	s.recorder.RecordAuthEvent("logout", "success")
	return nil
}

// SessionCheck echoes the gate-resolved session with its remaining lifetime.
func (s *AuthService) SessionCheck(session *model.Session) model.SessionResult {
	return model.SessionResult{
		User: session.User,
		AccessToken: model.AccessToken{
			Token:     session.Token,
			TokenType: model.TokenTypeBearer,
			ExpiresIn: s.tokens.Remaining(session.Claims),
		},
	}
}

func createUserWithProfile(ctx context.Context, users UserStore, profiles ProfileStore, user *model.User) error {
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	return profiles.Create(ctx, &model.Profile{UUID: uuid.NewString(), UserID: user.ID})
}

func accessToken(issued model.IssuedToken) model.AccessToken {
	return model.AccessToken{
		Token:     issued.Token,
		TokenType: model.TokenTypeBearer,
		ExpiresIn: issued.ExpiresIn,
	}
}

func invalidCredentials() *apierror.APIError {
	return apierror.New(apierror.CodeAuthentication, "invalid credentials", "", http.StatusUnprocessableEntity)
}

// GateMessage is the client-facing reason for a rejected bearer token.
func GateMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrTokenMissing):
		return "token not found"
	case errors.Is(err, model.ErrTokenExpired):
		return "token has expired"
	case errors.Is(err, model.ErrTokenRevoked):
		return "token has been revoked"
	case errors.Is(err, model.ErrTokenMalformed):
		return "token could not be parsed"
	case errors.Is(err, model.ErrUserNotFound):
		return "user not found"
	default:
		return "token is invalid"
	}
}

func tokenErrorDetail(err error) string {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return "expired"
	case errors.Is(err, model.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, model.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
