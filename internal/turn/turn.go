// Package turn runs conversational turns: it persists the user's utterance,
// asks the language model for a reply, synthesizes it and persists the
// reply, degrading instead of failing when an AI service is unavailable.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/capture"
	"github.com/voxmate/voxmate-go/internal/gateway/chat"
	"github.com/voxmate/voxmate-go/internal/gateway/stt"
	"github.com/voxmate/voxmate-go/internal/gateway/tts"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/repository"
)

// State is the turn-taking state of one conversation.
type State string

const (
	StateIdle          State = "idle"
	StateCapturing     State = "capturing"
	StateTranscribing  State = "transcribing"
	StateAwaitingReply State = "awaiting_reply"
	StateSynthesizing  State = "synthesizing"
)

const DefaultMaxCaptureDuration = 2 * time.Minute

var errBlankReply = errors.New("chat returned a blank reply")

// Options override the persona for a single turn.
type Options struct {
	MoodOverride  model.Mood
	VoiceOverride model.Voice
}

// Degraded flags which steps of a turn fell back.
type Degraded struct {
	Reply bool
	Audio bool
}

// Turn is a completed exchange.
type Turn struct {
	UserMessage model.Message
	AIMessage   model.Message
	AudioURL    string
	Degraded    Degraded
}

// Recorder receives turn and capture accounting.
type Recorder interface {
	RecordTurn(kind, outcome string)
	CaptureStarted()
	CaptureEnded()
}

// Config wires an Orchestrator.
type Config struct {
	Store       repository.Store
	Transcriber stt.Transcriber
	Completer   chat.Completer
	Synthesizer tts.Synthesizer
	Audio       audio.Store
	Logger      *slog.Logger
	Metrics     Recorder

	CaptureInterval    time.Duration
	MaxCaptureDuration time.Duration
	MaxInterimFailures int
}

type openCapture struct {
	session  *capture.Session
	userID   int64
	mimeType string
}

// Orchestrator owns the turn state of every conversation served by this
// process.
type Orchestrator struct {
	store       repository.Store
	transcriber stt.Transcriber
	completer   chat.Completer
	synthesizer tts.Synthesizer
	audio       audio.Store
	logger      *slog.Logger
	metrics     Recorder

	captureInterval    time.Duration
	maxCaptureDuration time.Duration
	maxInterimFailures int

	mu       sync.Mutex
	states   map[int64]State
	captures map[int64]*openCapture
	closed   bool
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audio == nil {
		cfg.Audio = audio.DataURLStore{}
	}
	if cfg.CaptureInterval <= 0 {
		cfg.CaptureInterval = capture.DefaultInterval
	}
	if cfg.MaxCaptureDuration <= 0 {
		cfg.MaxCaptureDuration = DefaultMaxCaptureDuration
	}
	if cfg.MaxInterimFailures <= 0 {
		cfg.MaxInterimFailures = capture.DefaultMaxInterimFailures
	}

	return &Orchestrator{
		store:              cfg.Store,
		transcriber:        cfg.Transcriber,
		completer:          cfg.Completer,
		synthesizer:        cfg.Synthesizer,
		audio:              cfg.Audio,
		logger:             cfg.Logger,
		metrics:            cfg.Metrics,
		captureInterval:    cfg.CaptureInterval,
		maxCaptureDuration: cfg.MaxCaptureDuration,
		maxInterimFailures: cfg.MaxInterimFailures,
		states:             make(map[int64]State),
		captures:           make(map[int64]*openCapture),
	}
}

// State reports the current state of a conversation.
func (o *Orchestrator) State(conversationID int64) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[conversationID]; ok {
		return s
	}
	return StateIdle
}

// begin moves an idle conversation into next.
func (o *Orchestrator) begin(conversationID int64, next State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("%w: shutting down", apperr.ErrTurnInProgress)
	}
	if s, ok := o.states[conversationID]; ok && s != StateIdle {
		return fmt.Errorf("%w: conversation is %s", apperr.ErrTurnInProgress, s)
	}
	o.states[conversationID] = next
	return nil
}

func (o *Orchestrator) setState(conversationID int64, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[conversationID] = s
}

func (o *Orchestrator) finish(conversationID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.states, conversationID)
}

// authorize loads the conversation and checks the requester owns it.
func (o *Orchestrator) authorize(ctx context.Context, userID, conversationID int64) (*model.Conversation, error) {
	if conversationID <= 0 {
		return nil, fmt.Errorf("%w: conversationId is required", apperr.ErrValidation)
	}

	conv, err := o.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	return conv, nil
}

// SubmitText runs a full turn for typed text.
func (o *Orchestrator) SubmitText(ctx context.Context, userID, conversationID int64, text string, opts Options) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}

	conv, err := o.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := o.begin(conv.ID, StateAwaitingReply); err != nil {
		return nil, err
	}
	defer o.finish(conv.ID)

	return o.respond(ctx, conv, text, opts, "text")
}

// Reply produces an assistant reply for text against the conversation's
// history without persisting anything. ok is false when the fallback reply
// was used.
func (o *Orchestrator) Reply(ctx context.Context, userID, conversationID int64, text string, mood model.Mood) (string, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, fmt.Errorf("%w: message is required", apperr.ErrValidation)
	}

	conv, err := o.authorize(ctx, userID, conversationID)
	if err != nil {
		return "", false, err
	}

	history, err := o.store.Messages().List(ctx, conv.ID)
	if err != nil {
		return "", false, err
	}

	v := o.resolvePersona(ctx, conv, Options{MoodOverride: mood})
	reply, err := o.complete(ctx, buildPrompt(v.mood, history, text))
	if err != nil {
		return FallbackReply(text), false, nil
	}
	return reply, true, nil
}

// respond persists the user message and produces, synthesizes and persists
// the reply. The caller holds the conversation's turn.
func (o *Orchestrator) respond(ctx context.Context, conv *model.Conversation, text string, opts Options, kind string) (*Turn, error) {
	userMsg := &model.Message{ConversationID: conv.ID, Content: text, IsUserMessage: true}
	if err := o.store.Messages().Append(ctx, userMsg); err != nil {
		o.record(kind, "error")
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	v := o.resolvePersona(ctx, conv, opts)

	history, err := o.store.Messages().List(ctx, conv.ID)
	if err != nil {
		o.record(kind, "error")
		return nil, fmt.Errorf("load history: %w", err)
	}

	var degraded Degraded

	o.setState(conv.ID, StateAwaitingReply)
	prompt := buildPrompt(v.mood, withoutMessage(history, userMsg.ID), text)
	reply, err := o.complete(ctx, prompt)
	if err != nil {
		o.logger.Warn("chat failed, using fallback reply", "conversation_id", conv.ID, "error", err)
		reply = FallbackReply(text)
		degraded.Reply = true
	}

	// The user's row is committed; a client that hangs up now must not
	// leave the turn without its reply. Synthesis waits for this row.
	aiMsg := &model.Message{ConversationID: conv.ID, Content: reply}
	if err := o.store.Messages().Append(context.WithoutCancel(ctx), aiMsg); err != nil {
		o.record(kind, "error")
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	o.setState(conv.ID, StateSynthesizing)
	audioURL, err := o.synthesize(ctx, reply, v)
	if err != nil {
		o.logger.Warn("synthesis failed, using silent audio", "conversation_id", conv.ID, "error", err)
		audioURL = audio.SilentURL
		degraded.Audio = true
	}

	outcome := "ok"
	if degraded.Reply || degraded.Audio {
		outcome = "degraded"
	}
	o.record(kind, outcome)

	return &Turn{
		UserMessage: *userMsg,
		AIMessage:   *aiMsg,
		AudioURL:    audioURL,
		Degraded:    degraded,
	}, nil
}

// complete treats a blank reply like a failed call.
func (o *Orchestrator) complete(ctx context.Context, p chat.Prompt) (string, error) {
	reply, err := o.completer.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errBlankReply
	}
	return reply, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, text string, v voicing) (string, error) {
	out, err := o.synthesizer.Synthesize(ctx, tts.Request{Text: text, Voice: v.voice, Mood: v.mood, VoiceID: v.voiceID})
	if err != nil {
		return "", err
	}
	return o.audio.Put(ctx, out.Audio, out.Format)
}

type voicing struct {
	mood    model.Mood
	voice   model.Voice
	voiceID string
}

// resolvePersona picks mood and voice: the per-turn override, then the
// persona linked to the conversation, then the defaults.
func (o *Orchestrator) resolvePersona(ctx context.Context, conv *model.Conversation, opts Options) voicing {
	v := voicing{mood: opts.MoodOverride, voice: opts.VoiceOverride}

	if conv.PersonaID != nil {
		p, err := o.store.Personas().GetByID(ctx, *conv.PersonaID)
		switch {
		case err == nil:
			if v.mood == "" {
				v.mood = p.Mood
			}
			if v.voice == "" {
				v.voice = p.Voice
			}
			if v.voice == model.VoiceCustom && p.CustomVoiceID != nil {
				v.voiceID = *p.CustomVoiceID
			}
		case !errors.Is(err, apperr.ErrNotFound):
			o.logger.Warn("persona lookup failed", "persona_id", *conv.PersonaID, "error", err)
		}
	}

	if v.mood == "" {
		v.mood = model.DefaultMood
	}
	if v.voice == "" {
		v.voice = model.DefaultVoice
	}
	return v
}

func buildPrompt(mood model.Mood, history []model.Message, text string) chat.Prompt {
	turns := make([]chat.Turn, 0, len(history))
	for _, m := range history {
		role := chat.RoleAssistant
		if m.IsUserMessage {
			role = chat.RoleUser
		}
		turns = append(turns, chat.Turn{Role: role, Content: m.Content})
	}
	return chat.Prompt{
		System:   SystemPrompt(mood),
		Turns:    turns,
		UserText: text,
		Mood:     mood,
	}
}

func withoutMessage(history []model.Message, id int64) []model.Message {
	out := history[:0:0]
	for _, m := range history {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func (o *Orchestrator) record(kind, outcome string) {
	if o.metrics != nil {
		o.metrics.RecordTurn(kind, outcome)
	}
}
