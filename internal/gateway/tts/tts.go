// Package tts provides speech synthesis.
package tts

import (
	"context"

	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/gateway"
	"github.com/voxmate/voxmate-go/internal/model"
)

// Request describes one synthesis. VoiceID, when set, overrides the voice
// table.
type Request struct {
	Text    string
	Voice   model.Voice
	Mood    model.Mood
	VoiceID string
}

// Synthesis is synthesized audio.
type Synthesis struct {
	Audio  []byte
	Format audio.Format
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (Synthesis, error)
}

// Settings are the expressive parameters for a mood.
type Settings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

var voiceTable = map[model.Voice]map[model.Mood]string{
	model.VoiceFemale: {
		model.MoodCheerful: "MF3mGyEYCl7XYWbV9V6O",
		model.MoodChill:    "21m00Tcm4TlvDq8ikWAM",
		model.MoodSassy:    "AZnzlk1XvdvUeBnXmlld",
		model.MoodRomantic: "EXAVITQu4vr4xnAU0gSQ",
		model.MoodRealist:  "21m00Tcm4TlvDq8ikWAM",
	},
	model.VoiceMale: {
		model.MoodCheerful: "ErXwobaYiN019PkySvjV",
		model.MoodChill:    "pNInz6obpgDQGcFmaJgB",
		model.MoodSassy:    "VR6AewLTigWG4xSOukaG",
		model.MoodRomantic: "TxGEqnHWrfWFTfGW9XjX",
		model.MoodRealist:  "pNInz6obpgDQGcFmaJgB",
	},
}

var moodSettings = map[model.Mood]Settings{
	model.MoodCheerful: {Stability: 0.35, SimilarityBoost: 0.75, Style: 0.6},
	model.MoodChill:    {Stability: 0.6, SimilarityBoost: 0.75, Style: 0.2},
	model.MoodSassy:    {Stability: 0.3, SimilarityBoost: 0.8, Style: 0.7},
	model.MoodRomantic: {Stability: 0.5, SimilarityBoost: 0.85, Style: 0.5},
	model.MoodRealist:  {Stability: 0.75, SimilarityBoost: 0.75, Style: 0.1},
}

// VoiceID resolves the provider voice for a request. Unknown voices and
// moods fall back to the female voice and the chill entry.
func VoiceID(req Request) string {
	if req.VoiceID != "" {
		return req.VoiceID
	}
	byMood, ok := voiceTable[req.Voice]
	if !ok {
		byMood = voiceTable[model.DefaultVoice]
	}
	if id, ok := byMood[req.Mood]; ok {
		return id
	}
	if id, ok := byMood[model.DefaultMood]; ok {
		return id
	}
	return defaultVoiceID
}

// SettingsFor returns the synthesis settings for mood, chill when unknown.
func SettingsFor(mood model.Mood) Settings {
	if s, ok := moodSettings[mood]; ok {
		return s
	}
	return moodSettings[model.DefaultMood]
}

// Guarded applies the gateway deadline and accounting to every call.
type Guarded struct {
	next  Synthesizer
	guard gateway.Guard
}

func NewGuarded(next Synthesizer, guard gateway.Guard) *Guarded {
	guard.Gateway = "tts"
	guard.Provider = next.Name()
	return &Guarded{next: next, guard: guard}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Synthesize(ctx context.Context, req Request) (Synthesis, error) {
	return gateway.Do(ctx, g.guard, func(ctx context.Context) (Synthesis, error) {
		return g.next.Synthesize(ctx, req)
	})
}
