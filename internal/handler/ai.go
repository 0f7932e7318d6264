package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/gateway/stt"
	"github.com/voxmate/voxmate-go/internal/gateway/tts"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/turn"
)

// AIHandler exposes the AI gateways directly.
type AIHandler struct {
	turns       *turn.Orchestrator
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	audio       audio.Store
	logger      *slog.Logger
}

func NewAIHandler(turns *turn.Orchestrator, transcriber stt.Transcriber, synthesizer tts.Synthesizer, store audio.Store, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		turns:       turns,
		transcriber: transcriber,
		synthesizer: synthesizer,
		audio:       store,
		logger:      logger,
	}
}

// HandleChat handles POST /api/chat requests. The reply is not persisted;
// success is false when the fallback reply was used.
func (h *AIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ChatRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if _, err := turnOptions(req.PersonaMood, ""); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	text, ok, err := h.turns.Reply(r.Context(), userID, req.ConversationID, req.Message, req.PersonaMood)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{Text: text, Success: ok})
}

// HandleSpeechToText handles POST /api/speech-to-text requests.
func (h *AIHandler) HandleSpeechToText(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.SpeechToTextRequest
	if !decodeJSON(w, r, maxAudioBody, &req) {
		return
	}
	data, mime, err := decodeAudio(req.Audio)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.MimeType != "" {
		mime = req.MimeType
	}

	tr, err := h.transcriber.Transcribe(r.Context(), data, mime)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SpeechToTextResponse{Text: tr.Text, Confidence: tr.Confidence})
}

// HandleTextToSpeech handles POST /api/text-to-speech requests.
func (h *AIHandler) HandleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.TextToSpeechRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: text is required", apperr.ErrValidation))
		return
	}
	opts, err := turnOptions(req.Mood, req.Voice)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if opts.MoodOverride == "" {
		opts.MoodOverride = model.DefaultMood
	}
	if opts.VoiceOverride == "" {
		opts.VoiceOverride = model.DefaultVoice
	}

	url, err := h.speak(r, tts.Request{
		Text:    req.Text,
		Voice:   opts.VoiceOverride,
		Mood:    opts.MoodOverride,
		VoiceID: strings.TrimSpace(req.VoiceID),
	})
	if err != nil {
		h.logger.Warn("synthesis failed, using silent audio", "error", err)
		url = audio.SilentURL
	}

	writeJSON(w, http.StatusOK, model.TextToSpeechResponse{AudioURL: url})
}

func (h *AIHandler) speak(r *http.Request, req tts.Request) (string, error) {
	out, err := h.synthesizer.Synthesize(r.Context(), req)
	if err != nil {
		return "", err
	}
	url, err := h.audio.Put(r.Context(), out.Audio, out.Format)
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return url, nil
}
