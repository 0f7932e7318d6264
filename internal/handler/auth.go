package handler

import (
	"log/slog"
	"net/http"

	"github.com/voxmate/voxmate-go/internal/middleware"
	"github.com/voxmate/voxmate-go/internal/model"
	"github.com/voxmate/voxmate-go/internal/service"
	"github.com/voxmate/voxmate-go/internal/session"
)

// AuthOptions control how logins turn into sessions.
type AuthOptions struct {
	// RequireVerification withholds the session until the magic link is
	// redeemed.
	RequireVerification bool
	// ExposeToken returns the magic-link token in the login response.
	ExposeToken bool
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service  *service.AuthService
	sessions *session.Manager
	opts     AuthOptions
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, sessions *session.Manager, opts AuthOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, sessions: sessions, opts: opts, logger: logger}
}

// HandleLogin handles POST /api/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if !h.opts.RequireVerification {
		if err := h.startSession(w, r, res.User.ID); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	resp := model.LoginResponse{Success: true, User: res.User}
	if h.opts.ExposeToken {
		resp.Token = res.Token
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleVerify handles POST /api/auth/verify requests.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}

	user, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, model.VerifyResponse{Success: true, User: user})
}

// HandleMe handles GET /api/auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleLogout handles POST /api/auth/logout requests. It always succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil {
		if err := h.sessions.Destroy(r.Context(), c.Value); err != nil {
			h.logger.Warn("session destroy failed", "error", err)
		}
	}

	http.SetCookie(w, h.cookie("", -1))
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	value, _, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, h.cookie(value, int(h.sessions.TTL().Seconds())))
	return nil
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
