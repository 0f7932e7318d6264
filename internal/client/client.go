// Package client is a Go client for the VoxMate HTTP API. It keeps the
// session cookie between calls.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
)

const defaultTimeout = 90 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voxmate api: %d %s", e.Status, e.Message)
}

// Is lets callers match API errors against the apperr sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == apperr.ErrValidation
	case http.StatusUnauthorized:
		return target == apperr.ErrUnauthenticated
	case http.StatusForbidden:
		return target == apperr.ErrForbidden
	case http.StatusNotFound:
		return target == apperr.ErrNotFound
	case http.StatusConflict:
		return target == apperr.ErrTurnInProgress
	case http.StatusUnprocessableEntity:
		return target == apperr.ErrNoSpeechDetected
	case http.StatusBadGateway:
		return target == apperr.ErrUpstream
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar must be set for the
// session to survive between calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Login requests a magic link. The token is only returned by development
// servers.
func (c *Client) Login(ctx context.Context, email string) (model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", model.LoginRequest{Email: email}, &out)
	return out, err
}

// Verify redeems a magic-link token and starts the session.
func (c *Client) Verify(ctx context.Context, token string) (model.User, error) {
	var out model.VerifyResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/verify", model.VerifyRequest{Token: token}, &out)
	return out.User, err
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) CurrentPersona(ctx context.Context) (model.Persona, error) {
	var out model.Persona
	err := c.do(ctx, http.MethodGet, "/api/personas/current", nil, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context, req model.CreateConversationRequest) (model.Conversation, error) {
	var out model.Conversation
	err := c.do(ctx, http.MethodPost, "/api/conversations", req, &out)
	return out, err
}

// RecentConversation returns the most recently active conversation, or nil.
func (c *Client) RecentConversation(ctx context.Context) (*model.Conversation, []model.Message, error) {
	var out model.RecentConversationResponse
	if err := c.do(ctx, http.MethodGet, "/api/conversations/recent", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Conversation, out.Messages, nil
}

// SendText runs a text turn and returns the user message and the reply.
func (c *Client) SendText(ctx context.Context, conversationID int64, text string) (model.PostMessageResponse, error) {
	var out model.PostMessageResponse
	err := c.do(ctx, http.MethodPost, "/api/messages", model.MessageRequest{
		ConversationID: conversationID,
		Content:        text,
	}, &out)
	return out, err
}

func capturePath(conversationID int64) string {
	return fmt.Sprintf("/api/conversations/%d/capture", conversationID)
}

func (c *Client) StartCapture(ctx context.Context, conversationID int64, mimeType string, interval time.Duration) error {
	return c.do(ctx, http.MethodPost, capturePath(conversationID), model.StartCaptureRequest{
		IntervalMs: int(interval.Milliseconds()),
		MimeType:   mimeType,
	}, nil)
}

// AppendAudio uploads a chunk and returns how many bytes the server holds.
func (c *Client) AppendAudio(ctx context.Context, conversationID int64, chunk []byte) (int, error) {
	var out model.CaptureAudioResponse
	err := c.do(ctx, http.MethodPost, capturePath(conversationID)+"/audio", model.CaptureAudioRequest{
		Audio: base64.StdEncoding.EncodeToString(chunk),
	}, &out)
	return out.BufferedBytes, err
}

func (c *Client) Interim(ctx context.Context, conversationID int64) (model.InterimTranscriptResponse, error) {
	var out model.InterimTranscriptResponse
	err := c.do(ctx, http.MethodGet, capturePath(conversationID)+"/interim", nil, &out)
	return out, err
}

func (c *Client) StopCapture(ctx context.Context, conversationID int64) (model.TurnResponse, error) {
	var out model.TurnResponse
	err := c.do(ctx, http.MethodPost, capturePath(conversationID)+"/stop", model.StopCaptureRequest{}, &out)
	return out, err
}

func (c *Client) CancelCapture(ctx context.Context, conversationID int64) error {
	return c.do(ctx, http.MethodDelete, capturePath(conversationID), nil, nil)
}
