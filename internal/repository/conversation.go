package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voxmate/voxmate-go/internal/model"
)

type sqlConversationRepository struct {
	s *SQLStore
}

const conversationColumns = `id, user_id, persona_id, title, created_at, updated_at`

func (r *sqlConversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	query := `INSERT INTO conversations (user_id, persona_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	if c.Title == "" {
		c.Title = model.DefaultConversationTitle
	}
	now := r.s.clock.Now()

	id, err := r.s.insert(ctx, r.s.db, query, c.UserID, nullInt64(c.PersonaID), c.Title, now, now)
	if err != nil {
		return err
	}

	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *sqlConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`

	c, err := scanConversation(r.s.queryRow(ctx, r.s.db, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *sqlConversationRepository) MostRecent(ctx context.Context, userID int64) (*model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1`

	c, err := scanConversation(r.s.queryRow(ctx, r.s.db, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByUser returns the user's conversations, most recently updated first.
func (r *sqlConversationRepository) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE user_id = ? ORDER BY updated_at DESC, id DESC`

	rows, err := r.s.query(ctx, r.s.db, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []model.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}

	return conversations, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var (
		c         model.Conversation
		personaID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.UserID, &personaID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.PersonaID = int64Ptr(personaID)
	return &c, nil
}

type sqlMessageRepository struct {
	s *SQLStore
}

// Append inserts the message and bumps the parent in one transaction, in
// that order.
func (r *sqlMessageRepository) Append(ctx context.Context, m *model.Message) error {
	return WithTx(ctx, r.s.db, nil, func(ctx context.Context, tx DBTX) error {
		now := r.s.clock.Now()

		insert := `INSERT INTO messages (conversation_id, content, audio_url, is_user_message, created_at) VALUES (?, ?, ?, ?, ?)`
		id, err := r.s.insert(ctx, tx, insert, m.ConversationID, m.Content, nullString(m.AudioURL), m.IsUserMessage, now)
		if err != nil {
			return err
		}

		bump := `UPDATE conversations SET updated_at = ? WHERE id = ?`
		result, err := r.s.exec(ctx, tx, bump, now, m.ConversationID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConversationNotFound
		}

		m.ID = id
		m.CreatedAt = now
		return nil
	})
}

func (r *sqlMessageRepository) List(ctx context.Context, conversationID int64) ([]model.Message, error) {
	query := `SELECT id, conversation_id, content, audio_url, is_user_message, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.s.query(ctx, r.s.db, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var (
			m        model.Message
			audioURL sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &audioURL, &m.IsUserMessage, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.AudioURL = stringPtr(audioURL)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
