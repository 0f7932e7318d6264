package model

import "time"

// ChatRequest represents POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversationId"`
	PersonaMood    Mood   `json:"personaMood,omitempty"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
}

// SpeechToTextRequest carries base64 encoded audio.
type SpeechToTextRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType,omitempty"`
}

// SpeechToTextResponse is returned by POST /api/speech-to-text.
type SpeechToTextResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TextToSpeechRequest represents POST /api/text-to-speech.
type TextToSpeechRequest struct {
	Text    string `json:"text"`
	Voice   Voice  `json:"voice"`
	Mood    Mood   `json:"mood"`
	VoiceID string `json:"voiceId,omitempty"`
}

// TextToSpeechResponse is returned by POST /api/text-to-speech.
type TextToSpeechResponse struct {
	AudioURL string `json:"audioUrl"`
}

// StartCaptureRequest opens a capture session for a conversation.
type StartCaptureRequest struct {
	IntervalMs int    `json:"intervalMs,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

// CaptureStateResponse reports the turn state of a conversation.
type CaptureStateResponse struct {
	State string `json:"state"`
}

// CaptureAudioRequest appends a base64 encoded chunk to the open capture.
type CaptureAudioRequest struct {
	Audio string `json:"audio"`
}

// CaptureAudioResponse reports how much audio has been buffered so far.
type CaptureAudioResponse struct {
	BufferedBytes int `json:"bufferedBytes"`
}

// InterimTranscriptResponse is the latest provisional transcript.
type InterimTranscriptResponse struct {
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StopCaptureRequest finishes a capture and runs the turn.
type StopCaptureRequest struct {
	PersonaMood Mood  `json:"personaMood,omitempty"`
	Voice       Voice `json:"voice,omitempty"`
}

// VoiceTurnRequest submits a complete audio artifact as one turn.
type VoiceTurnRequest struct {
	Audio       string `json:"audio"`
	MimeType    string `json:"mimeType,omitempty"`
	PersonaMood Mood   `json:"personaMood,omitempty"`
	Voice       Voice  `json:"voice,omitempty"`
}
