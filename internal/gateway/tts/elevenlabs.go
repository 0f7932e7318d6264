package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/gateway"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsModel   = "eleven_turbo_v2_5"
	// maxAudioBytes bounds a synthesized reply.
	maxAudioBytes = 10 << 20
)

var errEmptyAudio = errors.New("elevenlabs returned no audio")

type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsBaseURL,
		httpClient: gateway.DefaultHTTPClient(),
	}
}

func NewElevenLabsWithClient(apiKey, baseURL string, client *http.Client) *ElevenLabsProvider {
	e := NewElevenLabs(apiKey)
	if baseURL != "" {
		e.baseURL = strings.TrimRight(baseURL, "/")
	}
	if client != nil {
		e.httpClient = client
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type voiceSettings struct {
	Settings
	UseSpeakerBoost bool `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (e *ElevenLabsProvider) Synthesize(ctx context.Context, req Request) (Synthesis, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:          req.Text,
		ModelID:       elevenLabsModel,
		VoiceSettings: voiceSettings{Settings: SettingsFor(req.Mood), UseSpeakerBoost: true},
	})
	if err != nil {
		return Synthesis{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128",
		e.baseURL, url.PathEscape(VoiceID(req)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Synthesis{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", e.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return Synthesis{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Synthesis{}, gateway.ReadError(e.Name(), resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return Synthesis{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return Synthesis{}, errEmptyAudio
	}

	format := audio.DetectFormat(data)
	if format == audio.FormatUnknown {
		format = audio.FormatMP3
	}
	return Synthesis{Audio: data, Format: format}, nil
}
