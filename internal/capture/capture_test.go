package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndStop(t *testing.T) {
	s := Start(Config{})

	n, err := s.Append([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Append([]byte("de"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, []byte("abcde"), s.Stop())
	assert.Nil(t, s.Stop(), "second Stop returns nothing")

	_, err = s.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestAppendRejectsEmptyChunk(t *testing.T) {
	s := Start(Config{})
	defer s.Stop()

	_, err := s.Append(nil)
	assert.ErrorIs(t, err, ErrEmptyChunk)
}

func TestInterimTranscription(t *testing.T) {
	var mu sync.Mutex
	var got []string

	s := Start(Config{
		Interval: 10 * time.Millisecond,
		Transcribe: func(_ context.Context, audio []byte) (string, error) {
			return string(audio), nil
		},
		Sink: func(text string) {
			mu.Lock()
			got = append(got, text)
			mu.Unlock()
		},
	})
	defer s.Stop()

	_, err := s.Append([]byte("hello"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		text, _ := s.Interim()
		return text == "hello"
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, got, "hello")
}

func TestNoInterimCallbackAfterStop(t *testing.T) {
	var afterStop atomic.Bool
	var late atomic.Int32

	s := Start(Config{
		Interval: time.Millisecond,
		Transcribe: func(ctx context.Context, audio []byte) (string, error) {
			time.Sleep(2 * time.Millisecond)
			return "partial", nil
		},
		Sink: func(string) {
			if afterStop.Load() {
				late.Add(1)
			}
		},
	})

	for i := 0; i < 20; i++ {
		_, err := s.Append([]byte{byte(i)})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	s.Stop()
	afterStop.Store(true)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), late.Load())
}

func TestInterimFailureBudget(t *testing.T) {
	var calls atomic.Int32

	s := Start(Config{
		Interval:           5 * time.Millisecond,
		MaxInterimFailures: 3,
		Transcribe: func(context.Context, []byte) (string, error) {
			calls.Add(1)
			return "", errors.New("stt down")
		},
	})
	defer s.Stop()

	go func() {
		for i := 0; i < 40; i++ {
			if _, err := s.Append([]byte{1}); err != nil {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestStopCancelsInFlightTranscription(t *testing.T) {
	started := make(chan struct{})
	s := Start(Config{
		Interval: time.Millisecond,
		Transcribe: func(ctx context.Context, _ []byte) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		},
	})
	_, err := s.Append([]byte("x"))
	require.NoError(t, err)

	<-started
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
