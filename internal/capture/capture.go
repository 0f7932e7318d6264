// Package capture buffers a live recording and transcribes it periodically
// while it grows.
package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval = 2 * time.Second
	// DefaultMaxInterimFailures is how many consecutive interim failures are
	// tolerated before interim transcription is switched off for a session.
	DefaultMaxInterimFailures = 3
	// MaxBufferedBytes caps the audio a session accepts.
	MaxBufferedBytes = 25 << 20
)

var (
	ErrStopped    = errors.New("capture session stopped")
	ErrBufferFull = errors.New("capture buffer full")
	ErrEmptyChunk = errors.New("empty audio chunk")
)

// TranscribeFunc transcribes everything recorded so far.
type TranscribeFunc func(ctx context.Context, audio []byte) (string, error)

// Config configures a Session.
type Config struct {
	Interval           time.Duration
	MaxInterimFailures int
	Transcribe         TranscribeFunc
	// Sink, when set, receives each interim transcript.
	Sink   func(text string)
	Logger *slog.Logger
}

// Session is one open recording. Its ticker goroutine is the only caller of
// Transcribe and Sink, and never calls either after Stop returns.
type Session struct {
	cfg Config

	mu        sync.Mutex
	buf       bytes.Buffer
	stopped   bool
	interim   string
	interimAt time.Time
	lastSize  int
	failures  int
	startedAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start opens a session and starts its interim ticker.
func Start(cfg Config) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxInterimFailures <= 0 {
		cfg.MaxInterimFailures = DefaultMaxInterimFailures
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		cancel:    cancel,
		startedAt: time.Now(),
	}

	if cfg.Transcribe != nil {
		s.wg.Add(1)
		go s.run(ctx)
	}
	return s
}

// StartedAt is when the session was opened.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Append adds a chunk to the recording and returns the buffered size.
func (s *Session) Append(chunk []byte) (int, error) {
	if len(chunk) == 0 {
		return 0, ErrEmptyChunk
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, ErrStopped
	}
	if s.buf.Len()+len(chunk) > MaxBufferedBytes {
		return s.buf.Len(), ErrBufferFull
	}
	s.buf.Write(chunk)
	return s.buf.Len(), nil
}

// Size is the number of buffered bytes.
func (s *Session) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Interim returns the latest interim transcript and when it was produced.
func (s *Session) Interim() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim, s.interimAt
}

// Stop halts the ticker, waits for it to exit and returns the whole
// recording. Only the first call returns audio.
func (s *Session) Stop() []byte {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	s.buf.Reset()
	return out
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one interim transcription. It returns false once the session
// has used up its failure budget.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.stopped || s.buf.Len() == 0 || s.buf.Len() == s.lastSize {
		s.mu.Unlock()
		return true
	}
	snapshot := make([]byte, s.buf.Len())
	copy(snapshot, s.buf.Bytes())
	s.mu.Unlock()

	text, err := s.cfg.Transcribe(ctx, snapshot)
	if ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	if err != nil {
		s.failures++
		failures := s.failures
		s.mu.Unlock()

		s.cfg.Logger.Warn("interim transcription failed",
			"attempt", failures, "max", s.cfg.MaxInterimFailures, "error", err)
		if failures >= s.cfg.MaxInterimFailures {
			s.cfg.Logger.Warn("interim transcription disabled for session", "failures", failures)
			return false
		}
		return true
	}

	s.failures = 0
	s.lastSize = len(snapshot)
	s.interim = text
	s.interimAt = time.Now()
	stopped := s.stopped
	s.mu.Unlock()

	if !stopped && s.cfg.Sink != nil {
		s.cfg.Sink(text)
	}
	return true
}
