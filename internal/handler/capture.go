package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/turn"
)

const (
	minCaptureInterval = 250 * time.Millisecond
	maxCaptureInterval = 30 * time.Second
)

// CaptureHandler handles the voice path: live capture sessions and one-shot
// voice turns.
type CaptureHandler struct {
	turns  *turn.Orchestrator
	logger *slog.Logger
}

func NewCaptureHandler(turns *turn.Orchestrator, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{turns: turns, logger: logger}
}

func turnResponse(t *turn.Turn) model.TurnResponse {
	return model.TurnResponse{
		UserMessage:   t.UserMessage,
		AIMessage:     t.AIMessage,
		AudioURL:      t.AudioURL,
		ReplyDegraded: t.Degraded.Reply,
		AudioDegraded: t.Degraded.Audio,
	}
}

// HandleStart handles POST /api/conversations/{id}/capture requests.
func (h *CaptureHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req model.StartCaptureRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	var interval time.Duration
	if req.IntervalMs > 0 {
		interval = min(max(time.Duration(req.IntervalMs)*time.Millisecond, minCaptureInterval), maxCaptureInterval)
	}

	if err := h.turns.StartCapture(r.Context(), userID, id, turn.CaptureOptions{
		Interval: interval,
		MimeType: req.MimeType,
	}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CaptureStateResponse{State: string(h.turns.State(id))})
}

// HandleAppend handles POST /api/conversations/{id}/capture/audio requests.
func (h *CaptureHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req model.CaptureAudioRequest
	if !decodeJSON(w, r, maxAudioBody, &req) {
		return
	}
	chunk, _, err := decodeAudio(req.Audio)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n, err := h.turns.AppendAudio(userID, id, chunk)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CaptureAudioResponse{BufferedBytes: n})
}

// HandleInterim handles GET /api/conversations/{id}/capture/interim requests.
func (h *CaptureHandler) HandleInterim(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	text, at, err := h.turns.Interim(userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.InterimTranscriptResponse{Text: text, UpdatedAt: at})
}

// HandleStop handles POST /api/conversations/{id}/capture/stop requests.
func (h *CaptureHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req model.StopCaptureRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	opts, err := turnOptions(req.PersonaMood, req.Voice)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.turns.StopCapture(r.Context(), userID, id, opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse(t))
}

// HandleCancel handles DELETE /api/conversations/{id}/capture requests.
func (h *CaptureHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.turns.CancelCapture(userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true})
}

// HandleVoice handles POST /api/conversations/{id}/voice requests.
func (h *CaptureHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req model.VoiceTurnRequest
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

	opts, err := turnOptions(req.PersonaMood, req.Voice)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.turns.SubmitVoice(r.Context(), userID, id, data, mime, opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse(t))
}
