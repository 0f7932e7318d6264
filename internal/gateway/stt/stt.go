// Package stt provides speech-to-text transcription.
package stt

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/voxmate/voxmate-go/internal/gateway"
)

// DefaultConfidence is reported for non-empty transcripts from providers
// that do not score their output.
const DefaultConfidence = 0.9

// Transcript is the result of transcription.
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber converts recorded audio to text. mimeHint is the client's
// media type and may be empty or wrong.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (Transcript, error)
}

// newTranscript trims text and settles the confidence into [0,1].
func newTranscript(text string, confidence *float64) Transcript {
	text = strings.TrimSpace(text)
	if text == "" {
		return Transcript{}
	}

	c := DefaultConfidence
	if confidence != nil {
		c = *confidence
	}
	switch {
	case c < 0:
		c = 0
	case c > 1:
		c = 1
	}
	return Transcript{Text: text, Confidence: c}
}

// Fallback tries Primary and, when it fails, Secondary once.
type Fallback struct {
	Primary   Transcriber
	Secondary Transcriber
	Logger    *slog.Logger
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Fallback) Transcribe(ctx context.Context, data []byte, mimeHint string) (Transcript, error) {
	t, err := f.Primary.Transcribe(ctx, data, mimeHint)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil {
		return Transcript{}, err
	}

	if f.Logger != nil {
		f.Logger.Warn("primary transcriber failed, trying secondary",
			"primary", f.Primary.Name(), "secondary", f.Secondary.Name(), "error", err)
	}

	t, err2 := f.Secondary.Transcribe(ctx, data, mimeHint)
	if err2 != nil {
		return Transcript{}, errors.Join(err, err2)
	}
	return t, nil
}

// Guarded applies the gateway deadline and accounting to every call.
type Guarded struct {
	next  Transcriber
	guard gateway.Guard
}

func NewGuarded(next Transcriber, guard gateway.Guard) *Guarded {
	guard.Gateway = "stt"
	guard.Provider = next.Name()
	return &Guarded{next: next, guard: guard}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Transcribe(ctx context.Context, data []byte, mimeHint string) (Transcript, error) {
	return gateway.Do(ctx, g.guard, func(ctx context.Context) (Transcript, error) {
		return g.next.Transcribe(ctx, data, mimeHint)
	})
}
