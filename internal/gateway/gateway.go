// Package gateway holds what the external AI clients share: the per-call
// deadline, failure accounting and upstream error decoding.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voxmate/voxmate-go/internal/apperr"
)

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 512

// Recorder receives one observation per gateway call.
type Recorder interface {
	RecordGatewayCall(gateway, provider string, err error, duration time.Duration)
}

// Guard runs gateway calls under a deadline and records their outcome.
type Guard struct {
	Gateway  string
	Provider string
	Timeout  time.Duration
	Logger   *slog.Logger
	Metrics  Recorder
}

// Do calls fn with a context bounded by the guard's timeout. Any failure,
// including the deadline, is returned wrapped in apperr.ErrUpstream.
func Do[T any](ctx context.Context, g Guard, fn func(context.Context) (T, error)) (T, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)

	if g.Metrics != nil {
		g.Metrics.RecordGatewayCall(g.Gateway, g.Provider, err, elapsed)
	}
	if err != nil {
		if g.Logger != nil {
			g.Logger.Warn("gateway call failed",
				"gateway", g.Gateway,
				"provider", g.Provider,
				"duration_ms", elapsed.Milliseconds(),
				"error", err,
			)
		}
		var zero T
		if errors.Is(err, apperr.ErrUpstream) {
			return zero, err
		}
		return zero, fmt.Errorf("%s %w: %w", g.Gateway, apperr.ErrUpstream, err)
	}
	return out, nil
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.Status, e.Body)
}

// ReadError drains at most maxErrorBody bytes of resp into an HTTPError.
func ReadError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		Provider: provider,
		Status:   resp.StatusCode,
		Body:     strings.TrimSpace(string(body)),
	}
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// DefaultHTTPClient is used when a provider is built without one. Deadlines
// come from the caller's context, so the client carries no timeout.
func DefaultHTTPClient() *http.Client {
	return &http.Client{}
}
