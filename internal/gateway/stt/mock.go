package stt

import (
	"context"

	"github.com/voxmate/voxmate-go/internal/audio"
)

// MockPhrase is what Mock hears in any non-silent recording.
const MockPhrase = "Hello, can you hear me?"

// Mock transcribes without a provider. Empty or all-zero WAV input yields an
// empty transcript so the no-speech path works offline.
type Mock struct{}

func (Mock) Name() string { return "mock" }

func (Mock) Transcribe(ctx context.Context, data []byte, _ string) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	if len(data) == 0 || audio.IsSilentPCM(data) {
		return Transcript{}, nil
	}
	return newTranscript(MockPhrase, nil), nil
}
