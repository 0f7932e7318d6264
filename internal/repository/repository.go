package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
)

var (
	ErrUserNotFound         = fmt.Errorf("user: %w", apperr.ErrNotFound)
	ErrPersonaNotFound      = fmt.Errorf("persona: %w", apperr.ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	ErrTokenInvalid         = fmt.Errorf("auth token: %w", apperr.ErrInvalidToken)
	ErrDuplicate            = errors.New("duplicate key")
)

// UserRepository persists users. Emails are expected to be normalized by the
// caller.
type UserRepository interface {
	// GetOrCreate returns the user with email, creating it when absent.
	GetOrCreate(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	MarkVerified(ctx context.Context, id int64) error
}

// AuthTokenRepository persists magic-link token digests.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *model.AuthToken) error
	// Consume marks the token with the given digest as used if it is unused
	// and unexpired at now. It succeeds at most once per token.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*model.AuthToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PersonaRepository persists the single persona each user may own.
type PersonaRepository interface {
	GetByUser(ctx context.Context, userID int64) (*model.Persona, error)
	GetByID(ctx context.Context, id int64) (*model.Persona, error)
	// Upsert updates the user's persona in place when one exists, otherwise
	// inserts it. Custom fields left unset on p keep their stored values. ID,
	// timestamps and the merged custom fields are set on p.
	Upsert(ctx context.Context, p *model.Persona) error
}

// ConversationRepository persists conversations. Ownership checks are the
// caller's job.
type ConversationRepository interface {
	Create(ctx context.Context, c *model.Conversation) error
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	// MostRecent returns the user's conversation with the greatest UpdatedAt,
	// ties broken by the greater ID.
	MostRecent(ctx context.Context, userID int64) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error)
}

// MessageRepository persists messages.
type MessageRepository interface {
	// Append inserts m with CreatedAt taken from the store clock and then
	// bumps the parent conversation's UpdatedAt to the same instant.
	Append(ctx context.Context, m *model.Message) error
	// List returns the conversation's messages by CreatedAt, then ID.
	List(ctx context.Context, conversationID int64) ([]model.Message, error)
}

// Store groups the repositories of one backing store.
type Store interface {
	Users() UserRepository
	AuthTokens() AuthTokenRepository
	Personas() PersonaRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
}
