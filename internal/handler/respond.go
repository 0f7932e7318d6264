package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/middleware"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/turn"
)

const (
	maxJSONBody  = 1 << 20  // 1MB
	maxAudioBody = 36 << 20 // 25MB of audio once base64 encoded
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps err onto the API's status codes. 5xx details are logged,
// not returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse(apperr.Message(err)))
}

// decodeJSON reads a JSON body of at most limit bytes into v. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return 0, false
	}
	return userID, true
}

// conversationIDParam parses the {id} URL parameter.
func conversationIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid conversation id %q", apperr.ErrValidation, raw)
	}
	return id, nil
}

// decodeAudio accepts raw base64 or a base64 data URL. The media type of a
// data URL is returned when present.
func decodeAudio(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", fmt.Errorf("%w: audio is required", apperr.ErrValidation)
	}

	var mime string
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: audio data URL must be base64", apperr.ErrValidation)
		}
		mime = strings.TrimSuffix(header, ";base64")
		if i := strings.Index(mime, ";"); i >= 0 {
			mime = mime[:i]
		}
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: audio is not valid base64", apperr.ErrValidation)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: audio is empty", apperr.ErrValidation)
	}
	return data, mime, nil
}

// turnOptions validates per-turn persona overrides. Empty values mean no
// override.
func turnOptions(mood model.Mood, voice model.Voice) (turn.Options, error) {
	if mood != "" && !mood.Valid() {
		return turn.Options{}, fmt.Errorf("%w: unknown mood %q", apperr.ErrValidation, mood)
	}
	if voice != "" && !voice.Valid() {
		return turn.Options{}, fmt.Errorf("%w: unknown voice %q", apperr.ErrValidation, voice)
	}
	return turn.Options{MoodOverride: mood, VoiceOverride: voice}, nil
}
