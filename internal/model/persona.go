package model

import (
	"encoding/json"
	"time"
)

// Voice selects the synthesis voice family.
type Voice string

const (
	VoiceMale   Voice = "male"
	VoiceFemale Voice = "female"
	VoiceCustom Voice = "custom"
)

// Valid reports whether v is one of the enumerated voices.
func (v Voice) Valid() bool {
	switch v {
	case VoiceMale, VoiceFemale, VoiceCustom:
		return true
	}
	return false
}

// Mood is the personality tag that shapes the system prompt and the
// synthesis parameters.
type Mood string

const (
	MoodCheerful Mood = "cheerful"
	MoodChill    Mood = "chill"
	MoodSassy    Mood = "sassy"
	MoodRomantic Mood = "romantic"
	MoodRealist  Mood = "realist"
	MoodCustom   Mood = "custom"
)

// Valid reports whether m is one of the enumerated moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodCheerful, MoodChill, MoodSassy, MoodRomantic, MoodRealist, MoodCustom:
		return true
	}
	return false
}

const (
	DefaultMood  = MoodChill
	DefaultVoice = VoiceFemale
)

// Persona is the user's voice and mood configuration. A user has at most one.
type Persona struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"userId"`
	Voice              Voice           `json:"voice"`
	Mood               Mood            `json:"mood"`
	CustomVoiceID      *string         `json:"customVoiceId,omitempty"`
	CustomMoodSettings json.RawMessage `json:"customMoodSettings,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// PersonaRequest represents a persona upsert.
type PersonaRequest struct {
	Voice              Voice           `json:"voice"`
	Mood               Mood            `json:"mood"`
	CustomVoiceID      *string         `json:"customVoiceId,omitempty"`
	CustomMoodSettings json.RawMessage `json:"customMoodSettings,omitempty"`
}
