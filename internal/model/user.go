package model

import "time"

// User represents a user in the database.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AuthToken is a single-use magic-link credential. Only the digest of the
// token is persisted.
type AuthToken struct {
	ID        int64
	Email     string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *AuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// LoginRequest represents a magic-link login request.
type LoginRequest struct {
	Email string `json:"email"`
}

// VerifyRequest represents a magic-link token redemption.
type VerifyRequest struct {
	Token string `json:"token"`
}

// LoginResponse is returned by POST /api/auth/login.
// Token is omitted when the server is configured not to expose it.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	User    User   `json:"user"`
}

// VerifyResponse is returned by POST /api/auth/verify.
type VerifyResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// SuccessResponse is a bare acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}
