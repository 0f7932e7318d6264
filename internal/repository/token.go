package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/voxmate/voxmate-go/internal/model"
)

type sqlAuthTokenRepository struct {
	s *SQLStore
}

func (r *sqlAuthTokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	query := `INSERT INTO auth_tokens (email, token_hash, expires_at, used, created_at) VALUES (?, ?, ?, ?, ?)`

	token.CreatedAt = r.s.clock.Now()
	id, err := r.s.insert(ctx, r.s.db, query,
		token.Email, token.TokenHash, token.ExpiresAt.UTC(), false, token.CreatedAt)
	if err != nil {
		return err
	}

	token.ID = id
	return nil
}

// Consume flips used with a conditional UPDATE so that two concurrent
// redemptions cannot both observe an unused token.
func (r *sqlAuthTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*model.AuthToken, error) {
	var token model.AuthToken

	err := WithTx(ctx, r.s.db, nil, func(ctx context.Context, tx DBTX) error {
		update := `UPDATE auth_tokens SET used = ? WHERE token_hash = ? AND used = ? AND expires_at > ?`
		result, err := r.s.exec(ctx, tx, update, true, tokenHash, false, now.UTC())
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTokenInvalid
		}

		query := `SELECT id, email, token_hash, expires_at, used, created_at FROM auth_tokens WHERE token_hash = ?`
		err = r.s.queryRow(ctx, tx, query, tokenHash).Scan(
			&token.ID, &token.Email, &token.TokenHash, &token.ExpiresAt, &token.Used, &token.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenInvalid
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// DeleteExpired removes tokens that expired before now or were already used.
func (r *sqlAuthTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at <= ? OR used = ?`

	result, err := r.s.exec(ctx, r.s.db, query, now.UTC(), true)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
