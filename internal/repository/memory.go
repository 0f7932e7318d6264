package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voxmate/voxmate-go/internal/model"
)

// MemoryStore implements Store in process memory. All repositories share one
// lock, so Append's insert and parent bump are a single critical section.
type MemoryStore struct {
	mu    sync.RWMutex
	clock *clock

	nextID        int64
	users         map[int64]*model.User
	usersByEmail  map[string]int64
	tokens        map[string]*model.AuthToken
	personas      map[int64]*model.Persona
	conversations map[int64]*model.Conversation
	messages      map[int64][]model.Message
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:         newClock(),
		users:         make(map[int64]*model.User),
		usersByEmail:  make(map[string]int64),
		tokens:        make(map[string]*model.AuthToken),
		personas:      make(map[int64]*model.Persona),
		conversations: make(map[int64]*model.Conversation),
		messages:      make(map[int64][]model.Message),
	}
}

func (s *MemoryStore) Users() UserRepository                 { return memUsers{s} }
func (s *MemoryStore) AuthTokens() AuthTokenRepository       { return memTokens{s} }
func (s *MemoryStore) Personas() PersonaRepository           { return memPersonas{s} }
func (s *MemoryStore) Conversations() ConversationRepository { return memConversations{s} }
func (s *MemoryStore) Messages() MessageRepository           { return memMessages{s} }

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) GetOrCreate(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.usersByEmail[email]; ok {
		u := *r.s.users[id]
		return &u, nil
	}

	u := &model.User{ID: r.s.id(), Email: email, CreatedAt: r.s.clock.Now()}
	r.s.users[u.ID] = u
	r.s.usersByEmail[email] = u.ID

	out := *u
	return &out, nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usersByEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *r.s.users[id]
	return &out, nil
}

func (r memUsers) MarkVerified(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

type memTokens struct{ s *MemoryStore }

func (r memTokens) Create(_ context.Context, token *model.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tokens[token.TokenHash]; exists {
		return ErrDuplicate
	}

	token.ID = r.s.id()
	token.CreatedAt = r.s.clock.Now()
	stored := *token
	r.s.tokens[token.TokenHash] = &stored
	return nil
}

func (r memTokens) Consume(_ context.Context, tokenHash string, now time.Time) (*model.AuthToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok || t.Used || t.Expired(now) {
		return nil, ErrTokenInvalid
	}
	t.Used = true

	out := *t
	return &out, nil
}

func (r memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, t := range r.s.tokens {
		if t.Used || t.Expired(now) {
			delete(r.s.tokens, hash)
			n++
		}
	}
	return n, nil
}

type memPersonas struct{ s *MemoryStore }

func (r memPersonas) GetByUser(_ context.Context, userID int64) (*model.Persona, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.personas {
		if p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrPersonaNotFound
}

func (r memPersonas) GetByID(_ context.Context, id int64) (*model.Persona, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.personas[id]
	if !ok {
		return nil, ErrPersonaNotFound
	}
	out := *p
	return &out, nil
}

func (r memPersonas) Upsert(_ context.Context, p *model.Persona) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.clock.Now()
	for _, existing := range r.s.personas {
		if existing.UserID != p.UserID {
			continue
		}
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = now
		if p.CustomVoiceID == nil {
			p.CustomVoiceID = existing.CustomVoiceID
		}
		if len(p.CustomMoodSettings) == 0 {
			p.CustomMoodSettings = existing.CustomMoodSettings
		}
		stored := *p
		r.s.personas[p.ID] = &stored
		return nil
	}

	p.ID = r.s.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	stored := *p
	r.s.personas[p.ID] = &stored
	return nil
}

type memConversations struct{ s *MemoryStore }

func (r memConversations) Create(_ context.Context, c *model.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.Title == "" {
		c.Title = model.DefaultConversationTitle
	}
	now := r.s.clock.Now()
	c.ID = r.s.id()
	c.CreatedAt = now
	c.UpdatedAt = now

	stored := *c
	r.s.conversations[c.ID] = &stored
	return nil
}

func (r memConversations) GetByID(_ context.Context, id int64) (*model.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	out := *c
	return &out, nil
}

func (r memConversations) MostRecent(ctx context.Context, userID int64) (*model.Conversation, error) {
	list, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrConversationNotFound
	}
	return &list[0], nil
}

func (r memConversations) ListByUser(_ context.Context, userID int64) ([]model.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Conversation{}
	for _, c := range r.s.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type memMessages struct{ s *MemoryStore }

func (r memMessages) Append(_ context.Context, m *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[m.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}

	now := r.s.clock.Now()
	m.ID = r.s.id()
	m.CreatedAt = now
	r.s.messages[m.ConversationID] = append(r.s.messages[m.ConversationID], *m)
	c.UpdatedAt = now
	return nil
}

func (r memMessages) List(_ context.Context, conversationID int64) ([]model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Message, len(r.s.messages[conversationID]))
	copy(out, r.s.messages[conversationID])
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
