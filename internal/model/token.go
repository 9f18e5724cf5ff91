package model

import "time"

const TokenTypeBearer = "Bearer"

// TokenClaims is the verified identity carried by a session token.
type TokenClaims struct {
	TokenID   string
	UserID    int64
	UserUUID  string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	Claims    TokenClaims
	ExpiresIn int64
}

type AccessToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

type AuthResult struct {
	User        AuthUser    `json:"user"`
	AccessToken AccessToken `json:"access_token"`
}

type RefreshResult struct {
	AccessToken AccessToken `json:"access_token"`
}

// Session is what the session gate attaches to an authenticated request.
type Session struct {
	User   User
	Claims TokenClaims
	Token  string
}

type SessionResult struct {
	User        User        `json:"user"`
	AccessToken AccessToken `json:"access_token"`
}
