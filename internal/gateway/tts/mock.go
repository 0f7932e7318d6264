package tts

import (
	"context"

	"github.com/voxmate/voxmate-go/internal/audio"
)

// Mock synthesizes half a second of silence.
type Mock struct{}

func (Mock) Name() string { return "mock" }

func (Mock) Synthesize(ctx context.Context, _ Request) (Synthesis, error) {
	if err := ctx.Err(); err != nil {
		return Synthesis{}, err
	}
	return Synthesis{Audio: audio.SilentWAV(500), Format: audio.FormatWAV}, nil
}
