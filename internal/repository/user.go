package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voxmate/voxmate-go/internal/model"
)

type sqlUserRepository struct {
	s *SQLStore
}

// GetOrCreate returns the existing user or inserts a new one. A concurrent
// insert of the same email loses the unique-key race and re-reads.
func (r *sqlUserRepository) GetOrCreate(ctx context.Context, email string) (*model.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	query := `INSERT INTO users (email, email_verified, created_at) VALUES (?, ?, ?)`

	now := r.s.clock.Now()
	id, err := r.s.insert(ctx, r.s.db, query, email, false, now)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return r.GetByEmail(ctx, email)
		}
		return nil, err
	}

	return &model.User{ID: id, Email: email, CreatedAt: now}, nil
}

// GetByEmail retrieves a user by their email address.
func (r *sqlUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, email_verified, created_at FROM users WHERE email = ?`
	return r.scan(r.s.queryRow(ctx, r.s.db, query, email))
}

// GetByID retrieves a user by their ID.
func (r *sqlUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, email_verified, created_at FROM users WHERE id = ?`
	return r.scan(r.s.queryRow(ctx, r.s.db, query, id))
}

func (r *sqlUserRepository) MarkVerified(ctx context.Context, id int64) error {
	query := `UPDATE users SET email_verified = ? WHERE id = ?`

	result, err := r.s.exec(ctx, r.s.db, query, true, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows when the value is unchanged.
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

func (r *sqlUserRepository) scan(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Email, &user.EmailVerified, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
