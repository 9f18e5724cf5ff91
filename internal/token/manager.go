package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-contact-api/internal/model"
)

// Denylist stores the ids of tokens invalidated before their expiry.
type Denylist interface {
	Add(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	Contains(ctx context.Context, tokenID string) (bool, error)
}

type Manager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	denylist Denylist
	now      func() time.Time
}

type sessionClaims struct {
	UUID  string `json:"uuid"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewManager(secret string, issuer string, ttl time.Duration, denylist Denylist) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if denylist == nil {
		return nil, errors.New("token denylist is required")
	}

	return &Manager{
		secret:   []byte(secret),
		issuer:   issuer,
		ttl:      ttl,
		denylist: denylist,
		now:      time.Now,
	}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a fresh HS256 token for user with a new random token id.
func (m *Manager) Issue(user model.User) (model.IssuedToken, error) {
	now := m.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)
	tokenID := uuid.NewString()

	claims := sessionClaims{
		UUID:  user.UUID,
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    m.issuer,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return model.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return model.IssuedToken{
		Token: signed,
		Claims: model.TokenClaims{
			TokenID:   tokenID,
			UserID:    user.ID,
			UserUUID:  user.UUID,
			Email:     user.Email,
			Role:      user.Role,
			IssuedAt:  now,
			ExpiresAt: expiresAt,
		},
		ExpiresIn: int64(m.ttl / time.Second),
	}, nil
}

// Verify checks signature, issuer and expiry, then the denylist.
func (m *Manager) Verify(ctx context.Context, raw string) (model.TokenClaims, error) {
	claims, err := m.Parse(raw)
	if err != nil {
		return model.TokenClaims{}, err
	}

	revoked, err := m.denylist.Contains(ctx, claims.TokenID)
	if err != nil {
		return model.TokenClaims{}, err
	}
	if revoked {
		return model.TokenClaims{}, model.ErrTokenRevoked
	}

	return claims, nil
}

// Parse validates the token without consulting the denylist. When the only
// problem is expiry the decoded claims are returned alongside
// model.ErrTokenExpired; the signature has been checked by then.
func (m *Manager) Parse(raw string) (model.TokenClaims, error) {
	if raw == "" {
		return model.TokenClaims{}, model.ErrTokenMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return model.TokenClaims{}, fmt.Errorf("%w: %v", model.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		claims, convErr := toModel(parsed)
		if convErr != nil {
			return model.TokenClaims{}, convErr
		}
		return claims, model.ErrTokenExpired
	default:
		return model.TokenClaims{}, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}

	return toModel(parsed)
}

// Revoke denylists the token until its natural expiry. It reports false when
// the token was already revoked or expired, so only one caller can retire a
// given token.
func (m *Manager) Revoke(ctx context.Context, claims model.TokenClaims) (bool, error) {
	revoked, err := m.denylist.Add(ctx, claims.TokenID, claims.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return revoked, nil
}

// Remaining is the whole number of seconds before claims expire, never negative.
func (m *Manager) Remaining(claims model.TokenClaims) int64 {
	left := claims.ExpiresAt.Sub(m.now())
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

func toModel(c sessionClaims) (model.TokenClaims, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.TokenClaims{}, fmt.Errorf("%w: bad subject", model.ErrTokenInvalid)
	}
	if c.ID == "" || c.ExpiresAt == nil {
		return model.TokenClaims{}, fmt.Errorf("%w: missing jti or exp", model.ErrTokenInvalid)
	}

	claims := model.TokenClaims{
		TokenID:   c.ID,
		UserID:    userID,
		UserUUID:  c.UUID,
		Email:     c.Email,
		Role:      model.Role(c.Role),
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}

	return claims, nil
}
