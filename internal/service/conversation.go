package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/repository"
)

// ConversationService handles conversation and message access for a user.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	personas      repository.PersonaRepository
}

func NewConversationService(store repository.Store) *ConversationService {
	return &ConversationService{
		conversations: store.Conversations(),
		messages:      store.Messages(),
		personas:      store.Personas(),
	}
}

// Create starts a conversation, optionally linked to one of the user's
// personas.
func (s *ConversationService) Create(ctx context.Context, userID int64, req model.CreateConversationRequest) (model.Conversation, error) {
	if req.PersonaID != nil {
		p, err := s.personas.GetByID(ctx, *req.PersonaID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return model.Conversation{}, fmt.Errorf("%w: persona %d does not exist", apperr.ErrValidation, *req.PersonaID)
			}
			return model.Conversation{}, err
		}
		if p.UserID != userID {
			return model.Conversation{}, fmt.Errorf("%w: persona %d", apperr.ErrForbidden, p.ID)
		}
	}

	c := &model.Conversation{
		UserID:    userID,
		PersonaID: req.PersonaID,
		Title:     strings.TrimSpace(req.Title),
	}
	if err := s.conversations.Create(ctx, c); err != nil {
		return model.Conversation{}, err
	}
	return *c, nil
}

// Get returns a conversation the user owns.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID int64) (model.Conversation, error) {
	if conversationID <= 0 {
		return model.Conversation{}, fmt.Errorf("%w: conversationId is required", apperr.ErrValidation)
	}
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return model.Conversation{}, err
	}
	if c.UserID != userID {
		return model.Conversation{}, fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	return *c, nil
}

// MostRecent returns the user's most recently active conversation with its
// messages, or nil when the user has none.
func (s *ConversationService) MostRecent(ctx context.Context, userID int64) (*model.Conversation, []model.Message, error) {
	c, err := s.conversations.MostRecent(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	msgs, err := s.messages.List(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, msgs, nil
}

// List returns the user's conversations, most recently active first.
func (s *ConversationService) List(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

// Messages returns a conversation's messages in order.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID int64) ([]model.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, conversationID)
}

// AppendAssistant stores a non-user message as is, without running a turn.
func (s *ConversationService) AppendAssistant(ctx context.Context, userID, conversationID int64, content string, audioURL *string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return model.Message{}, err
	}

	m := &model.Message{ConversationID: conversationID, Content: content, AudioURL: audioURL}
	if err := s.messages.Append(ctx, m); err != nil {
		return model.Message{}, err
	}
	return *m, nil
}
