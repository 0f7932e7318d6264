package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/capture"
)

// CaptureOptions configure a live capture.
type CaptureOptions struct {
	Interval time.Duration
	MimeType string
	// Sink receives interim transcripts while the capture is open.
	Sink func(text string)
}

// StartCapture opens a capture for an idle conversation.
func (o *Orchestrator) StartCapture(ctx context.Context, userID, conversationID int64, opts CaptureOptions) error {
	conv, err := o.authorize(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if opts.Interval <= 0 {
		opts.Interval = o.captureInterval
	}
	mime := opts.MimeType

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("%w: shutting down", apperr.ErrTurnInProgress)
	}
	if s, ok := o.states[conv.ID]; ok && s != StateIdle {
		return fmt.Errorf("%w: conversation is %s", apperr.ErrTurnInProgress, s)
	}

	sess := capture.Start(capture.Config{
		Interval:           opts.Interval,
		MaxInterimFailures: o.maxInterimFailures,
		Sink:               opts.Sink,
		Logger:             o.logger.With("conversation_id", conv.ID),
		Transcribe: func(ctx context.Context, data []byte) (string, error) {
			tr, err := o.transcriber.Transcribe(ctx, data, mime)
			return tr.Text, err
		},
	})
	o.states[conv.ID] = StateCapturing
	o.captures[conv.ID] = &openCapture{session: sess, userID: userID, mimeType: mime}
	if o.metrics != nil {
		o.metrics.CaptureStarted()
	}
	return nil
}

// lookupCapture returns the caller's open capture.
func (o *Orchestrator) lookupCapture(userID, conversationID int64) (*openCapture, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.captures[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: no capture in progress", apperr.ErrValidation)
	}
	if c.userID != userID {
		return nil, fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	return c, nil
}

// AppendAudio adds a chunk to the open capture and returns the bytes buffered.
func (o *Orchestrator) AppendAudio(userID, conversationID int64, chunk []byte) (int, error) {
	c, err := o.lookupCapture(userID, conversationID)
	if err != nil {
		return 0, err
	}

	n, err := c.session.Append(chunk)
	switch {
	case errors.Is(err, capture.ErrEmptyChunk), errors.Is(err, capture.ErrBufferFull):
		return n, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	case errors.Is(err, capture.ErrStopped):
		return n, fmt.Errorf("%w: capture already stopped", apperr.ErrValidation)
	}
	return n, err
}

// Interim returns the latest provisional transcript of the open capture.
func (o *Orchestrator) Interim(userID, conversationID int64) (string, time.Time, error) {
	c, err := o.lookupCapture(userID, conversationID)
	if err != nil {
		return "", time.Time{}, err
	}
	text, at := c.session.Interim()
	return text, at, nil
}

// detach removes the capture from the table and stops it. The conversation
// stays out of Idle until the caller finishes it.
func (o *Orchestrator) detach(userID, conversationID int64, next State) ([]byte, *openCapture, error) {
	o.mu.Lock()
	c, ok := o.captures[conversationID]
	if !ok {
		s, busy := o.states[conversationID]
		o.mu.Unlock()
		if busy && s != StateIdle {
			return nil, nil, fmt.Errorf("%w: conversation is %s", apperr.ErrTurnInProgress, s)
		}
		return nil, nil, fmt.Errorf("%w: no capture in progress", apperr.ErrValidation)
	}
	if c.userID != userID {
		o.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: conversation %d", apperr.ErrForbidden, conversationID)
	}
	delete(o.captures, conversationID)
	o.states[conversationID] = next
	o.mu.Unlock()

	data := c.session.Stop()
	if o.metrics != nil {
		o.metrics.CaptureEnded()
	}
	return data, c, nil
}

// StopCapture ends the open capture, transcribes the whole recording and
// runs the turn. A blank transcript ends the turn with ErrNoSpeechDetected
// and nothing persisted.
func (o *Orchestrator) StopCapture(ctx context.Context, userID, conversationID int64, opts Options) (*Turn, error) {
	conv, err := o.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	data, c, err := o.detach(userID, conv.ID, StateTranscribing)
	if err != nil {
		return nil, err
	}
	defer o.finish(conv.ID)

	return o.transcribeAndRespond(ctx, conv.ID, data, c.mimeType, opts)
}

// CancelCapture discards the open capture without running a turn.
func (o *Orchestrator) CancelCapture(userID, conversationID int64) error {
	if _, _, err := o.detach(userID, conversationID, StateIdle); err != nil {
		return err
	}
	o.finish(conversationID)
	return nil
}

// SubmitVoice runs a turn for a complete recording.
func (o *Orchestrator) SubmitVoice(ctx context.Context, userID, conversationID int64, data []byte, mimeType string, opts Options) (*Turn, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: audio is required", apperr.ErrValidation)
	}

	conv, err := o.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := o.begin(conv.ID, StateTranscribing); err != nil {
		return nil, err
	}
	defer o.finish(conv.ID)

	return o.transcribeAndRespond(ctx, conv.ID, data, mimeType, opts)
}

func (o *Orchestrator) transcribeAndRespond(ctx context.Context, conversationID int64, data []byte, mimeType string, opts Options) (*Turn, error) {
	if len(data) == 0 {
		o.record("voice", "no_speech")
		return nil, apperr.ErrNoSpeechDetected
	}

	tr, err := o.transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		o.record("voice", "error")
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		o.record("voice", "no_speech")
		return nil, apperr.ErrNoSpeechDetected
	}

	// Reload after transcription so a persona linked meanwhile is honoured.
	conv, err := o.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		o.record("voice", "error")
		return nil, err
	}

	o.setState(conversationID, StateAwaitingReply)
	return o.respond(ctx, conv, text, opts, "voice")
}

// Reap cancels captures that have been open longer than the maximum capture
// duration and returns how many it cancelled.
func (o *Orchestrator) Reap(now time.Time) int {
	o.mu.Lock()
	var stale []int64
	for id, c := range o.captures {
		if now.Sub(c.session.StartedAt()) > o.maxCaptureDuration {
			stale = append(stale, id)
		}
	}
	o.mu.Unlock()

	reaped := 0
	for _, id := range stale {
		o.mu.Lock()
		c, ok := o.captures[id]
		o.mu.Unlock()
		if !ok {
			continue
		}
		if err := o.CancelCapture(c.userID, id); err == nil {
			o.logger.Info("capture abandoned", "conversation_id", id)
			reaped++
		}
	}
	return reaped
}

// Close stops every open capture and rejects new turns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	captures := o.captures
	o.captures = make(map[int64]*openCapture)
	for id := range captures {
		delete(o.states, id)
	}
	o.mu.Unlock()

	for _, c := range captures {
		c.session.Stop()
		if o.metrics != nil {
			o.metrics.CaptureEnded()
		}
	}
}
