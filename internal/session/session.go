// Package session keeps server-side login sessions and binds them to the
// signed cookie handed to the browser.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/voxmate/voxmate-go/internal/crypto"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists sessions. Get returns ErrNotFound for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Manager issues, resolves and destroys sessions.
type Manager struct {
	store  Store
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create stores a new session for userID and returns the signed cookie value.
func (m *Manager) Create(ctx context.Context, userID int64) (string, *Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, err
	}

	cookie, err := crypto.SignSession(s.ID, m.secret, m.ttl)
	if err != nil {
		return "", nil, err
	}
	return cookie, s, nil
}

// Resolve verifies the cookie signature before touching the store.
func (m *Manager) Resolve(ctx context.Context, cookie string) (*Session, error) {
	id, err := crypto.ParseSession(cookie, m.secret)
	if err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.now().Before(s.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return s, nil
}

// Destroy removes the session behind cookie. Invalid cookies are ignored.
func (m *Manager) Destroy(ctx context.Context, cookie string) error {
	id, err := crypto.ParseSession(cookie, m.secret)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, id)
}
