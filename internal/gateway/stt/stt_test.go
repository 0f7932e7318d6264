package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmate/voxmate-go/internal/apperr"
	"github.com/voxmate/voxmate-go/internal/audio"
	"github.com/voxmate/voxmate-go/internal/gateway"
)

var webmBytes = []byte{0x1A, 0x45, 0xDF, 0xA3, 0x42, 0x86, 0x81, 0x01}

func uploadedFilename(t *testing.T, r *http.Request) string {
	t.Helper()
	require.NoError(t, r.ParseMultipartForm(1<<20))
	_, hdr, err := r.FormFile("file")
	require.NoError(t, err)
	return hdr.Filename
}

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "audio.webm", uploadedFilename(t, r))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, _ = io.WriteString(w, `{"text":"  hello there  "}`)
	}))
	defer srv.Close()

	p := NewOpenAI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := p.Transcribe(context.Background(), webmBytes, "")

	require.NoError(t, err)
	assert.Equal(t, "hello there", got.Text)
	assert.Equal(t, DefaultConfidence, got.Confidence)
}

func TestOpenAIRetriesAlternateContainer(t *testing.T) {
	var names []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := uploadedFilename(t, r)
		names = append(names, name)
		if name == "audio.webm" {
			http.Error(w, `{"error":"Invalid file format"}`, http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"text":"ok","confidence":1.7}`)
	}))
	defer srv.Close()

	p := NewOpenAI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	got, err := p.Transcribe(context.Background(), webmBytes, "audio/webm")

	require.NoError(t, err)
	assert.Equal(t, []string{"audio.webm", "audio.ogg"}, names)
	assert.Equal(t, "ok", got.Text)
	assert.Equal(t, 1.0, got.Confidence, "confidence is clamped")
}

func TestOpenAIDoesNotRetryServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAI("key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Transcribe(context.Background(), webmBytes, "")

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, gateway.StatusOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCartesiaTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stt", r.URL.Path)
		assert.Equal(t, cartesiaVersion, r.Header.Get("Cartesia-Version"))
		assert.Equal(t, "audio.wav", uploadedFilename(t, r))
		_, _ = io.WriteString(w, `{"text":"from cartesia"}`)
	}))
	defer srv.Close()

	p := NewCartesiaWithClient("key", srv.URL, srv.Client())
	got, err := p.Transcribe(context.Background(), audio.SilentWAV(10), "")

	require.NoError(t, err)
	assert.Equal(t, "from cartesia", got.Text)
}

type stubTranscriber struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubTranscriber) Name() string { return s.name }

func (s *stubTranscriber) Transcribe(context.Context, []byte, string) (Transcript, error) {
	s.calls++
	if s.err != nil {
		return Transcript{}, s.err
	}
	return newTranscript(s.text, nil), nil
}

func TestFallback(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubTranscriber{name: "a", text: "one"}
		secondary := &stubTranscriber{name: "b", text: "two"}
		f := &Fallback{Primary: primary, Secondary: secondary}

		got, err := f.Transcribe(context.Background(), webmBytes, "")
		require.NoError(t, err)
		assert.Equal(t, "one", got.Text)
		assert.Equal(t, 0, secondary.calls)
	})

	t.Run("secondary rescues", func(t *testing.T) {
		primary := &stubTranscriber{name: "a", err: errors.New("down")}
		secondary := &stubTranscriber{name: "b", text: "two"}
		f := &Fallback{Primary: primary, Secondary: secondary}

		got, err := f.Transcribe(context.Background(), webmBytes, "")
		require.NoError(t, err)
		assert.Equal(t, "two", got.Text)
		assert.Equal(t, 1, secondary.calls)
	})

	t.Run("both fail", func(t *testing.T) {
		e1, e2 := errors.New("down"), errors.New("also down")
		f := &Fallback{
			Primary:   &stubTranscriber{name: "a", err: e1},
			Secondary: &stubTranscriber{name: "b", err: e2},
		}

		_, err := f.Transcribe(context.Background(), webmBytes, "")
		assert.ErrorIs(t, err, e1)
		assert.ErrorIs(t, err, e2)
		assert.Equal(t, "a+b", f.Name())
	})
}

func TestMock(t *testing.T) {
	var m Mock

	got, err := m.Transcribe(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.Zero(t, got.Confidence)

	got, err = m.Transcribe(context.Background(), audio.SilentWAV(500), "audio/wav")
	require.NoError(t, err)
	assert.Empty(t, got.Text)

	got, err = m.Transcribe(context.Background(), webmBytes, "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, MockPhrase, got.Text)
	assert.Equal(t, DefaultConfidence, got.Confidence)
}

func TestGuardedTimeout(t *testing.T) {
	slow := &blockingTranscriber{}
	g := NewGuarded(slow, gateway.Guard{Timeout: 10 * time.Millisecond})

	_, err := g.Transcribe(context.Background(), webmBytes, "")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

type blockingTranscriber struct{}

func (blockingTranscriber) Name() string { return "blocking" }

func (blockingTranscriber) Transcribe(ctx context.Context, _ []byte, _ string) (Transcript, error) {
	<-ctx.Done()
	return Transcript{}, ctx.Err()
}
