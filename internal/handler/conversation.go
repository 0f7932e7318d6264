package handler

import (
	"log/slog"
	"net/http"

	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/service"
	"github.com/voxmate/voxmate-go/internal/turn"
)

// ConversationHandler handles HTTP requests for conversations and messages.
type ConversationHandler struct {
	service *service.ConversationService
	turns   *turn.Orchestrator
	logger  *slog.Logger
}

func NewConversationHandler(svc *service.ConversationService, turns *turn.Orchestrator, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{service: svc, turns: turns, logger: logger}
}

// HandleCreate handles POST /api/conversations requests.
func (h *ConversationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateConversationRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// HandleList handles GET /api/conversations requests.
func (h *ConversationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleRecent handles GET /api/conversations/recent requests.
func (h *ConversationHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, msgs, err := h.service.MostRecent(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.RecentConversationResponse{Conversation: c, Messages: msgs})
}

// HandleMessages handles GET /api/conversations/{id}/messages requests.
func (h *ConversationHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	msgs, err := h.service.Messages(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

// HandlePostMessage handles POST /api/messages requests. A user message runs
// a full turn; an assistant message is stored as is.
func (h *ConversationHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.MessageRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	if req.IsUserMessage != nil && !*req.IsUserMessage {
		m, err := h.service.AppendAssistant(r.Context(), userID, req.ConversationID, req.Content, req.AudioURL)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		resp := model.PostMessageResponse{Message: m}
		if m.AudioURL != nil {
			resp.AudioURL = *m.AudioURL
		}
		writeJSON(w, http.StatusCreated, resp)
		return
	}

	opts, err := turnOptions(req.PersonaMood, req.Voice)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.turns.SubmitText(r.Context(), userID, req.ConversationID, req.Content, opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.PostMessageResponse{
		Message:   t.UserMessage,
		AIMessage: &t.AIMessage,
		AudioURL:  t.AudioURL,
	})
}
