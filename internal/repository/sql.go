package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore implements Store on database/sql for MySQL or PostgreSQL.
// Queries are written with '?' placeholders and rebound per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	clock   *clock
}

// NewSQLStore wraps an open pool.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, clock: newClock()}
}

func (s *SQLStore) Users() UserRepository                 { return &sqlUserRepository{s} }
func (s *SQLStore) AuthTokens() AuthTokenRepository       { return &sqlAuthTokenRepository{s} }
func (s *SQLStore) Personas() PersonaRepository           { return &sqlPersonaRepository{s} }
func (s *SQLStore) Conversations() ConversationRepository { return &sqlConversationRepository{s} }
func (s *SQLStore) Messages() MessageRepository           { return &sqlMessageRepository{s} }

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// insert runs an INSERT and returns the generated id. PostgreSQL has no
// LastInsertId, so the statement gets a RETURNING clause there.
func (s *SQLStore) insert(ctx context.Context, db DBTX, query string, args ...any) (int64, error) {
	if s.dialect == DialectPostgres {
		var id int64
		if err := db.QueryRowContext(ctx, s.rebind(query)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, translateError(err)
		}
		return id, nil
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return result.LastInsertId()
}

func (s *SQLStore) exec(ctx context.Context, db DBTX, query string, args ...any) (sql.Result, error) {
	result, err := db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (s *SQLStore) queryRow(ctx context.Context, db DBTX, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, db DBTX, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, s.rebind(query), args...)
}

// translateError maps driver duplicate-key errors to ErrDuplicate.
func translateError(err error) error {
	if isDuplicateEntryError(err) {
		return ErrDuplicate
	}
	return err
}

// isDuplicateEntryError reports MySQL error 1062 and PostgreSQL 23505.
func isDuplicateEntryError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
