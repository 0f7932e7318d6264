package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/crypto"
	"github.com/voxmate/voxmate-go/internal/mailer"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/repository"
)

var (
	ErrEmailRequired = fmt.Errorf("%w: email is required", apperr.ErrValidation)
	ErrEmailInvalid  = fmt.Errorf("%w: email is invalid", apperr.ErrValidation)
	ErrTokenRequired = fmt.Errorf("%w: token is required", apperr.ErrValidation)
)

// LoginResult is the outcome of a login attempt. Token is the plaintext
// magic-link token; only its digest is stored.
type LoginResult struct {
	Token string
	User  model.User
}

// AuthService handles magic-link authentication.
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.AuthTokenRepository
	mailer   mailer.Mailer
	baseURL  string
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, m mailer.Mailer, baseURL string, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    store.Users(),
		tokens:   store.AuthTokens(),
		mailer:   m,
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lower-cases email and checks it is a bare address
// with a dotted domain.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrEmailInvalid
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// Login finds or creates the user for email, issues a one-time token and
// sends the magic link.
func (s *AuthService) Login(ctx context.Context, email string) (LoginResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return LoginResult{}, err
	}

	user, err := s.users.GetOrCreate(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}

	token, err := crypto.NewMagicToken()
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now()
	if err := s.tokens.Create(ctx, &model.AuthToken{
		Email:     email,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: now.Add(s.tokenTTL),
	}); err != nil {
		return LoginResult{}, err
	}

	if err := s.mailer.SendMagicLink(ctx, email, mailer.MagicLink(s.baseURL, token)); err != nil {
		// The token is still valid; the user can retry delivery by logging in again.
		s.logger.Warn("magic link delivery failed", "user_id", user.ID, "error", err)
	}

	return LoginResult{Token: token, User: *user}, nil
}

// Verify redeems a magic-link token. A token verifies at most once.
func (s *AuthService) Verify(ctx context.Context, token string) (model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.User{}, ErrTokenRequired
	}

	t, err := s.tokens.Consume(ctx, crypto.HashToken(token), s.now())
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.GetByEmail(ctx, t.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, repository.ErrTokenInvalid
		}
		return model.User{}, err
	}

	if !user.EmailVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return model.User{}, err
		}
		user.EmailVerified = true
	}
	return *user, nil
}

// CurrentUser returns the session's user.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, fmt.Errorf("%w: user %d no longer exists", apperr.ErrUnauthenticated, userID)
		}
		return model.User{}, err
	}
	return *user, nil
}

// DeleteExpiredTokens removes tokens that can no longer be redeemed.
func (s *AuthService) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now())
}
