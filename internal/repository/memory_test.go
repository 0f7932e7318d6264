package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
)

func newConversation(t *testing.T, s *MemoryStore, userID int64) *model.Conversation {
	t.Helper()
	c := &model.Conversation{UserID: userID}
	if err := s.Conversations().Create(context.Background(), c); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	return c
}

func TestMemoryUsersGetOrCreateIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Users().GetOrCreate(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}
	second, err := s.Users().GetOrCreate(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate() unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("GetOrCreate() ids differ: %d vs %d", first.ID, second.ID)
	}
}

func TestMemoryUsersNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Users().GetByID(context.Background(), 99)
	if !errors.Is(err, ErrUserNotFound) || !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
	if err := s.Users().MarkVerified(context.Background(), 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("MarkVerified() error = %v, want ErrUserNotFound", err)
	}
}

func TestMemoryTokenConsumeOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	tok := &model.AuthToken{Email: "a@example.com", TokenHash: "h1", ExpiresAt: now.Add(time.Minute)}
	if err := s.AuthTokens().Create(ctx, tok); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AuthTokens().Consume(ctx, "h1", now); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Consume() succeeded %d times, want 1", successes)
	}
}

func TestMemoryTokenConsumeRejects(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	expired := &model.AuthToken{Email: "a@example.com", TokenHash: "old", ExpiresAt: now.Add(-time.Second)}
	if err := s.AuthTokens().Create(ctx, expired); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	tests := []struct {
		name string
		hash string
	}{
		{"unknown", "nope"},
		{"expired", "old"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AuthTokens().Consume(ctx, tt.hash, now)
			if !errors.Is(err, apperr.ErrInvalidToken) {
				t.Errorf("Consume() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMemoryTokenDuplicateAndCleanup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	live := &model.AuthToken{Email: "a@example.com", TokenHash: "live", ExpiresAt: now.Add(time.Hour)}
	dead := &model.AuthToken{Email: "a@example.com", TokenHash: "dead", ExpiresAt: now.Add(-time.Hour)}
	for _, tok := range []*model.AuthToken{live, dead} {
		if err := s.AuthTokens().Create(ctx, tok); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
	}

	dup := &model.AuthToken{Email: "b@example.com", TokenHash: "live", ExpiresAt: now.Add(time.Hour)}
	if err := s.AuthTokens().Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicate", err)
	}

	n, err := s.AuthTokens().DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
	if _, err := s.AuthTokens().Consume(ctx, "live", now); err != nil {
		t.Errorf("live token should survive cleanup: %v", err)
	}
}

func TestMemoryPersonaUpsertKeepsOneRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &model.Persona{UserID: 1, Voice: model.VoiceMale, Mood: model.MoodChill}
	if err := s.Personas().Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}
	second := &model.Persona{UserID: 1, Voice: model.VoiceFemale, Mood: model.MoodSassy}
	if err := s.Personas().Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Upsert() created a second persona: %d vs %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Upsert() changed CreatedAt")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("Upsert() did not bump UpdatedAt")
	}

	got, err := s.Personas().GetByUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUser() unexpected error: %v", err)
	}
	if got.Voice != model.VoiceFemale || got.Mood != model.MoodSassy {
		t.Errorf("GetByUser() = %+v, want female/sassy", got)
	}
	if _, err := s.Personas().GetByUser(ctx, 2); !errors.Is(err, ErrPersonaNotFound) {
		t.Errorf("GetByUser() error = %v, want ErrPersonaNotFound", err)
	}
}

func TestMemoryPersonaUpsertKeepsUnsetCustomFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	voiceID := "voice-abc"
	first := &model.Persona{
		UserID:             1,
		Voice:              model.VoiceCustom,
		Mood:               model.MoodChill,
		CustomVoiceID:      &voiceID,
		CustomMoodSettings: []byte(`{"pitch":2}`),
	}
	if err := s.Personas().Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}
	if err := s.Personas().Upsert(ctx, &model.Persona{UserID: 1, Voice: model.VoiceCustom, Mood: model.MoodSassy}); err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}

	got, err := s.Personas().GetByUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetByUser() unexpected error: %v", err)
	}
	if got.Mood != model.MoodSassy {
		t.Errorf("Mood = %q, want sassy", got.Mood)
	}
	if got.CustomVoiceID == nil || *got.CustomVoiceID != "voice-abc" {
		t.Errorf("CustomVoiceID = %v, want voice-abc kept", got.CustomVoiceID)
	}
	if string(got.CustomMoodSettings) != `{"pitch":2}` {
		t.Errorf("CustomMoodSettings = %s, want kept", got.CustomMoodSettings)
	}

	other := "voice-new"
	if err := s.Personas().Upsert(ctx, &model.Persona{UserID: 1, Voice: model.VoiceCustom, Mood: model.MoodSassy, CustomVoiceID: &other}); err != nil {
		t.Fatalf("Upsert() unexpected error: %v", err)
	}
	got, _ = s.Personas().GetByUser(ctx, 1)
	if got.CustomVoiceID == nil || *got.CustomVoiceID != "voice-new" {
		t.Errorf("CustomVoiceID = %v, want voice-new", got.CustomVoiceID)
	}
}

func TestMemoryConversationDefaultTitle(t *testing.T) {
	s := NewMemoryStore()
	c := newConversation(t, s, 1)

	if c.Title != model.DefaultConversationTitle {
		t.Errorf("Title = %q, want %q", c.Title, model.DefaultConversationTitle)
	}
}

func TestMemoryAppendOrderingAndBump(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c := newConversation(t, s, 1)

	for i := 0; i < 20; i++ {
		m := &model.Message{ConversationID: c.ID, Content: "m", IsUserMessage: i%2 == 0}
		if err := s.Messages().Append(ctx, m); err != nil {
			t.Fatalf("Append() unexpected error: %v", err)
		}

		parent, err := s.Conversations().GetByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetByID() unexpected error: %v", err)
		}
		if parent.UpdatedAt.Before(m.CreatedAt) {
			t.Fatalf("parent UpdatedAt %v before message CreatedAt %v", parent.UpdatedAt, m.CreatedAt)
		}
	}

	list, err := s.Messages().List(ctx, c.ID)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(list) != 20 {
		t.Fatalf("List() len = %d, want 20", len(list))
	}
	for i := 1; i < len(list); i++ {
		if !list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Errorf("message %d CreatedAt not strictly increasing", i)
		}
	}
}

func TestMemoryAppendUnknownConversation(t *testing.T) {
	s := NewMemoryStore()

	err := s.Messages().Append(context.Background(), &model.Message{ConversationID: 42, Content: "x"})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Append() error = %v, want ErrConversationNotFound", err)
	}
}

func TestMemoryMostRecent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Conversations().MostRecent(ctx, 1); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("MostRecent() error = %v, want ErrConversationNotFound", err)
	}

	older := newConversation(t, s, 1)
	newer := newConversation(t, s, 1)
	newConversation(t, s, 2)

	got, err := s.Conversations().MostRecent(ctx, 1)
	if err != nil {
		t.Fatalf("MostRecent() unexpected error: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("MostRecent() = %d, want %d", got.ID, newer.ID)
	}

	if err := s.Messages().Append(ctx, &model.Message{ConversationID: older.ID, Content: "bump"}); err != nil {
		t.Fatalf("Append() unexpected error: %v", err)
	}

	got, err = s.Conversations().MostRecent(ctx, 1)
	if err != nil {
		t.Fatalf("MostRecent() unexpected error: %v", err)
	}
	if got.ID != older.ID {
		t.Errorf("MostRecent() after append = %d, want %d", got.ID, older.ID)
	}

	list, err := s.Conversations().ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUser() unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != older.ID {
		t.Errorf("ListByUser() = %+v, want older conversation first", list)
	}
}

func TestClockStrictlyMonotonic(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{now: func() time.Time { return fixed }}

	a := c.Now()
	b := c.Now()

	if !b.After(a) {
		t.Errorf("clock did not advance: %v then %v", a, b)
	}
	if b.Sub(a) != time.Microsecond {
		t.Errorf("clock step = %v, want 1µs", b.Sub(a))
	}
}
