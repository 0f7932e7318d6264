// Package playback plays assistant replies on the client, one at a time.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/voxmate/voxmate-go/internal/audio"
)

// RetryDelay is the pause before the single retry of a failed playback.
const RetryDelay = 500 * time.Millisecond

// NotificationSound is played when a reply cannot be played at all.
var NotificationSound = audio.DataURL(audio.ToneWAV(880, 180), audio.FormatWAV)

// Player renders the audio behind url, blocking until it finishes or ctx is
// cancelled. volume is in [0,1].
type Player interface {
	Play(ctx context.Context, url string, volume float64) error
}

// Controller owns the single active playback.
type Controller struct {
	player     Player
	logger     *slog.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	volume  float64
	current *playing
}

type playing struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(player Player, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		player:     player,
		logger:     logger,
		retryDelay: RetryDelay,
		volume:     1,
	}
}

// SetVolume sets the volume for subsequent playbacks, clamped to [0,1].
func (c *Controller) SetVolume(v float64) {
	switch {
	case v < 0 || math.IsNaN(v):
		v = 0
	case v > 1:
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()
}

// Volume returns the current volume.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Playing reports whether a playback is in progress.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Play stops any playback in progress and plays url. A failed playback is
// retried once after RetryDelay; when that fails too the notification sound
// is played instead. Play only returns an error when ctx is cancelled before
// it starts.
func (c *Controller) Play(ctx context.Context, url string) error {
	c.Stop()
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &playing{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	for c.current != nil {
		// Another Play installed itself meanwhile; it yields to this one.
		prev := c.current
		c.mu.Unlock()
		prev.cancel()
		<-prev.done
		c.mu.Lock()
	}
	c.current = p
	volume := c.volume
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.current == p {
			c.current = nil
		}
		c.mu.Unlock()
		close(p.done)
	}()

	err := c.player.Play(ctx, url, volume)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	c.logger.Warn("playback failed, retrying", "error", err)

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(c.retryDelay):
	}

	err = c.player.Play(ctx, url, volume)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	c.logger.Warn("playback retry failed, playing notification", "error", err)

	if err := c.player.Play(ctx, NotificationSound, volume); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("notification sound failed", "error", err)
	}
	return nil
}

// Stop cancels the playback in progress and waits for it to release its
// resources. It is safe to call at any time.
func (c *Controller) Stop() {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}
