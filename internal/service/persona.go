package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/repository"
)

// PersonaService manages a user's single persona.
type PersonaService struct {
	repo repository.PersonaRepository
}

func NewPersonaService(store repository.Store) *PersonaService {
	return &PersonaService{repo: store.Personas()}
}

// Current returns the user's persona.
func (s *PersonaService) Current(ctx context.Context, userID int64) (model.Persona, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return model.Persona{}, err
	}
	return *p, nil
}

// Upsert creates the user's persona or updates it in place.
func (s *PersonaService) Upsert(ctx context.Context, userID int64, req model.PersonaRequest) (model.Persona, error) {
	if req.Voice == "" {
		return model.Persona{}, fmt.Errorf("%w: voice is required", apperr.ErrValidation)
	}
	if !req.Voice.Valid() {
		return model.Persona{}, fmt.Errorf("%w: unknown voice %q", apperr.ErrValidation, req.Voice)
	}
	if req.Mood == "" {
		return model.Persona{}, fmt.Errorf("%w: mood is required", apperr.ErrValidation)
	}
	if !req.Mood.Valid() {
		return model.Persona{}, fmt.Errorf("%w: unknown mood %q", apperr.ErrValidation, req.Mood)
	}
	if len(req.CustomMoodSettings) > 0 && !json.Valid(req.CustomMoodSettings) {
		return model.Persona{}, fmt.Errorf("%w: customMoodSettings must be JSON", apperr.ErrValidation)
	}

	p := &model.Persona{
		UserID:             userID,
		Voice:              req.Voice,
		Mood:               req.Mood,
		CustomMoodSettings: req.CustomMoodSettings,
	}
	if req.CustomVoiceID != nil {
		if id := strings.TrimSpace(*req.CustomVoiceID); id != "" {
			p.CustomVoiceID = &id
		}
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return model.Persona{}, err
	}
	return *p, nil
}
