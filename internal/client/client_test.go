package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/model"
)

func TestSessionCookieIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/verify":
			http.SetCookie(w, &http.Cookie{Name: "voxmate_session", Value: "abc", Path: "/"})
			json.NewEncoder(w).Encode(model.VerifyResponse{Success: true, User: model.User{ID: 3}})
		case "/api/auth/me":
			c, err := r.Cookie("voxmate_session")
			if err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"not authenticated"}`))
				return
			}
			json.NewEncoder(w).Encode(model.User{ID: 3, Email: "ana@example.com"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	user, err := c.Verify(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me.Email)
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conversations/7/capture/stop":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"no speech detected"}`))
		case "/api/conversations/7/capture":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"turn in progress"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.StopCapture(ctx, 7)
	assert.ErrorIs(t, err, apperr.ErrNoSpeechDetected)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no speech detected", apiErr.Message)

	assert.ErrorIs(t, c.StartCapture(ctx, 7, "audio/webm", 0), apperr.ErrTurnInProgress)

	_, err = c.Me(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestAppendAudioEncodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/5/capture/audio", r.URL.Path)
		var req model.CaptureAudioRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := base64.StdEncoding.DecodeString(req.Audio)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(model.CaptureAudioResponse{BufferedBytes: len(raw)})
	}))
	defer srv.Close()

	n, err := New(srv.URL).AppendAudio(context.Background(), 5, []byte("opus-bytes"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRecentConversationEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	conv, msgs, err := New(srv.URL).RecentConversation(context.Background())
	require.NoError(t, err)
	assert.Nil(t, conv)
	assert.Nil(t, msgs)
}
