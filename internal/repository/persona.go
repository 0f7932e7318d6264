package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voxmate/voxmate-go/internal/model"
)

type sqlPersonaRepository struct {
	s *SQLStore
}

const personaColumns = `id, user_id, voice, mood, custom_voice_id, custom_mood_settings, created_at, updated_at`

func (r *sqlPersonaRepository) GetByUser(ctx context.Context, userID int64) (*model.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas WHERE user_id = ?`
	return scanPersona(r.s.queryRow(ctx, r.s.db, query, userID))
}

func (r *sqlPersonaRepository) GetByID(ctx context.Context, id int64) (*model.Persona, error) {
	query := `SELECT ` + personaColumns + ` FROM personas WHERE id = ?`
	return scanPersona(r.s.queryRow(ctx, r.s.db, query, id))
}

// Upsert locks the user's persona row (if any) and updates it, or inserts a
// new row. The unique index on user_id backs the one-persona rule.
func (r *sqlPersonaRepository) Upsert(ctx context.Context, p *model.Persona) error {
	return WithTx(ctx, r.s.db, nil, func(ctx context.Context, tx DBTX) error {
		now := r.s.clock.Now()

		var (
			id        int64
			createdAt sql.NullTime
			voiceID   sql.NullString
			stored    sql.NullString
		)
		lookup := `SELECT id, created_at, custom_voice_id, custom_mood_settings FROM personas WHERE user_id = ? FOR UPDATE`
		err := r.s.queryRow(ctx, tx, lookup, p.UserID).Scan(&id, &createdAt, &voiceID, &stored)
		switch {
		case err == nil:
			if p.CustomVoiceID == nil {
				p.CustomVoiceID = stringPtr(voiceID)
			}
			if len(p.CustomMoodSettings) == 0 && stored.Valid {
				p.CustomMoodSettings = []byte(stored.String)
			}
			settings := nullSettings(p.CustomMoodSettings)
			update := `UPDATE personas SET voice = ?, mood = ?, custom_voice_id = ?, custom_mood_settings = ?, updated_at = ? WHERE id = ?`
			if _, err := r.s.exec(ctx, tx, update,
				string(p.Voice), string(p.Mood), nullString(p.CustomVoiceID), settings, now, id); err != nil {
				return err
			}
			p.ID = id
			p.CreatedAt = createdAt.Time
			p.UpdatedAt = now
			return nil

		case errors.Is(err, sql.ErrNoRows):
			settings := nullSettings(p.CustomMoodSettings)
			insert := `INSERT INTO personas (user_id, voice, mood, custom_voice_id, custom_mood_settings, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
			newID, err := r.s.insert(ctx, tx, insert,
				p.UserID, string(p.Voice), string(p.Mood), nullString(p.CustomVoiceID), settings, now, now)
			if err != nil {
				return err
			}
			p.ID = newID
			p.CreatedAt = now
			p.UpdatedAt = now
			return nil

		default:
			return err
		}
	})
}

func scanPersona(row *sql.Row) (*model.Persona, error) {
	var (
		p        model.Persona
		voice    string
		mood     string
		voiceID  sql.NullString
		settings sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &voice, &mood, &voiceID, &settings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPersonaNotFound
		}
		return nil, err
	}

	p.Voice = model.Voice(voice)
	p.Mood = model.Mood(mood)
	p.CustomVoiceID = stringPtr(voiceID)
	if settings.Valid {
		p.CustomMoodSettings = []byte(settings.String)
	}
	return &p, nil
}

func nullSettings(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
