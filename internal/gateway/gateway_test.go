package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxmate/voxmate-go/internal/apperr"
)

type recordedCall struct {
	gateway, provider string
	err               error
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) RecordGatewayCall(gateway, provider string, err error, _ time.Duration) {
	f.calls = append(f.calls, recordedCall{gateway, provider, err})
}

func TestDoSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	g := Guard{Gateway: "chat", Provider: "mock", Timeout: time.Second, Metrics: rec}

	out, err := Do(context.Background(), g, func(context.Context) (string, error) { return "hi", nil })

	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	require.Len(t, rec.calls, 1)
	assert.NoError(t, rec.calls[0].err)
}

func TestDoWrapsFailureAsUpstream(t *testing.T) {
	rec := &fakeRecorder{}
	g := Guard{Gateway: "tts", Provider: "elevenlabs", Metrics: rec}
	cause := errors.New("boom")

	_, err := Do(context.Background(), g, func(context.Context) (int, error) { return 0, cause })

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	require.Len(t, rec.calls, 1)
	assert.Error(t, rec.calls[0].err)
}

func TestDoTimeoutIsFailure(t *testing.T) {
	g := Guard{Gateway: "stt", Provider: "slow", Timeout: 20 * time.Millisecond}

	_, err := Do(context.Background(), g, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadErrorTruncates(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 2000))),
	}

	err := ReadError("openai", resp)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Len(t, he.Body, maxErrorBody)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}
