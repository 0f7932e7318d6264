package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxmate/voxmate-go/internal/metrics"
	"github.com/voxmate/voxmate-go/internal/middleware"
	"github.com/voxmate/voxmate-go/internal/session"
)

// RouterConfig carries everything the HTTP API is built from.
type RouterConfig struct {
	Auth          *AuthHandler
	Personas      *PersonaHandler
	Conversations *ConversationHandler
	Capture       *CaptureHandler
	AI            *AIHandler

	Sessions    *session.Manager
	RateLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires the API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Handler
	}

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/api/auth/login", cfg.Auth.HandleLogin)
		r.Post("/api/auth/verify", cfg.Auth.HandleVerify)
	})
	r.Post("/api/auth/logout", cfg.Auth.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.Sessions))
		r.Get("/api/auth/me", cfg.Auth.HandleMe)

		r.Post("/api/personas", cfg.Personas.HandleUpsert)
		r.Get("/api/personas/current", cfg.Personas.HandleCurrent)

		r.Get("/api/conversations", cfg.Conversations.HandleList)
		r.Post("/api/conversations", cfg.Conversations.HandleCreate)
		r.Get("/api/conversations/recent", cfg.Conversations.HandleRecent)
		r.Get("/api/conversations/{id}/messages", cfg.Conversations.HandleMessages)

		r.Post("/api/conversations/{id}/capture", cfg.Capture.HandleStart)
		r.Delete("/api/conversations/{id}/capture", cfg.Capture.HandleCancel)
		r.Post("/api/conversations/{id}/capture/audio", cfg.Capture.HandleAppend)
		r.Get("/api/conversations/{id}/capture/interim", cfg.Capture.HandleInterim)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/api/messages", cfg.Conversations.HandlePostMessage)
			r.Post("/api/conversations/{id}/capture/stop", cfg.Capture.HandleStop)
			r.Post("/api/conversations/{id}/voice", cfg.Capture.HandleVoice)
			r.Post("/api/chat", cfg.AI.HandleChat)
			r.Post("/api/speech-to-text", cfg.AI.HandleSpeechToText)
			r.Post("/api/text-to-speech", cfg.AI.HandleTextToSpeech)
		})
	})

	return r
}
