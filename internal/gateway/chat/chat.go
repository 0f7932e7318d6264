// Package chat provides language-model chat completion.
package chat

import (
	"context"
	"errors"

	"github.com/voxmate/voxmate-go/internal/gateway"
	"github.com/voxmate/voxmate-go/internal/model"
)

// ErrEmptyReply is returned when a provider answers without any text.
var ErrEmptyReply = errors.New("empty completion")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    Role
	Content string
}

// Prompt is the full input of a completion: the system instruction, the
// history in chronological order and the new user text.
type Prompt struct {
	System   string
	Turns    []Turn
	UserText string
	Mood     model.Mood
}

// Completer produces the assistant's reply. Implementations make a single
// attempt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Guarded applies the gateway deadline and accounting to every call.
type Guarded struct {
	next  Completer
	guard gateway.Guard
}

func NewGuarded(next Completer, guard gateway.Guard) *Guarded {
	guard.Gateway = "chat"
	guard.Provider = next.Name()
	return &Guarded{next: next, guard: guard}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Complete(ctx context.Context, p Prompt) (string, error) {
	return gateway.Do(ctx, g.guard, func(ctx context.Context) (string, error) {
		return g.next.Complete(ctx, p)
	})
}
