package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/repository"
)

func TestPersonaUpsert_Twice(t *testing.T) {
	svc := NewPersonaService(repository.NewMemoryStore())
	ctx := context.Background()

	first, err := svc.Upsert(ctx, 1, model.PersonaRequest{Voice: model.VoiceFemale, Mood: model.MoodChill})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, 1, model.PersonaRequest{Voice: model.VoiceMale, Mood: model.MoodSassy})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected one persona, got ids %d and %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt changed on update")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("UpdatedAt not bumped on update")
	}

	cur, err := svc.Current(ctx, 1)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Voice != model.VoiceMale || cur.Mood != model.MoodSassy {
		t.Errorf("unexpected persona %+v", cur)
	}
}

func TestPersonaUpsert_Validation(t *testing.T) {
	svc := NewPersonaService(repository.NewMemoryStore())

	tests := []struct {
		name string
		req  model.PersonaRequest
	}{
		{"missing voice", model.PersonaRequest{Mood: model.MoodChill}},
		{"missing mood", model.PersonaRequest{Voice: model.VoiceMale}},
		{"unknown voice", model.PersonaRequest{Voice: "robot", Mood: model.MoodChill}},
		{"unknown mood", model.PersonaRequest{Voice: model.VoiceMale, Mood: "angry"}},
		{"bad settings", model.PersonaRequest{Voice: model.VoiceMale, Mood: model.MoodCustom, CustomMoodSettings: json.RawMessage("{")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upsert(context.Background(), 1, tt.req); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPersonaUpsert_CustomLiterals(t *testing.T) {
	svc := NewPersonaService(repository.NewMemoryStore())
	voiceID := " abc123 "

	p, err := svc.Upsert(context.Background(), 1, model.PersonaRequest{
		Voice:              model.VoiceCustom,
		Mood:               model.MoodCustom,
		CustomVoiceID:      &voiceID,
		CustomMoodSettings: json.RawMessage(`{"energy":0.4}`),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.CustomVoiceID == nil || *p.CustomVoiceID != "abc123" {
		t.Errorf("unexpected custom voice id %v", p.CustomVoiceID)
	}
}

func TestPersonaCurrent_NotFound(t *testing.T) {
	svc := NewPersonaService(repository.NewMemoryStore())

	if _, err := svc.Current(context.Background(), 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPersonaUpsert_KeepsOmittedCustomVoice(t *testing.T) {
	svc := NewPersonaService(repository.NewMemoryStore())
	ctx := context.Background()

	voiceID := "voice-abc"
	if _, err := svc.Upsert(ctx, 1, model.PersonaRequest{Voice: model.VoiceCustom, Mood: model.MoodChill, CustomVoiceID: &voiceID}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	got, err := svc.Upsert(ctx, 1, model.PersonaRequest{Voice: model.VoiceCustom, Mood: model.MoodSassy})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got.Mood != model.MoodSassy {
		t.Errorf("mood = %q, want sassy", got.Mood)
	}
	if got.CustomVoiceID == nil || *got.CustomVoiceID != "voice-abc" {
		t.Errorf("customVoiceId = %v, want it kept", got.CustomVoiceID)
	}
}
