package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

const (
	recordingMIME = "audio/ogg"
	chunkSize     = 16 << 10
)

func defaultInputDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation::default"
	case "windows":
		return "dshow:audio=default"
	}
	return "pulse:default"
}

// recorder captures the microphone as an Ogg/Opus stream through ffmpeg.
type recorder struct {
	cmd    *exec.Cmd
	chunks chan []byte

	mu  sync.Mutex
	err error
}

func startRecorder(ctx context.Context, device string) (*recorder, error) {
	format, input, ok := cutDevice(device)
	if !ok {
		return nil, fmt.Errorf("input device %q must look like format:device", device)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", input,
		"-ac", "1", "-ar", "16000",
		"-c:a", "libopus", "-b:a", "32k",
		"-f", "ogg", "pipe:1",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	r := &recorder{cmd: cmd, chunks: make(chan []byte, 8)}
	go r.read(out)
	return r, nil
}

func cutDevice(device string) (format, input string, ok bool) {
	format, input, found := strings.Cut(device, ":")
	return format, input, found && format != "" && input != ""
}

// read forwards ffmpeg's output until EOF, then reaps the process.
func (r *recorder) read(out io.Reader) {
	defer close(r.chunks)
	// ffmpeg exits non-zero when interrupted; its exit status carries nothing.
	defer r.cmd.Wait()

	for {
		buf := make([]byte, chunkSize)
		n, err := out.Read(buf)
		if n > 0 {
			r.chunks <- buf[:n]
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.setErr(err)
			}
			return
		}
	}
}

func (r *recorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Chunks is closed once ffmpeg has exited and its output is drained.
func (r *recorder) Chunks() <-chan []byte {
	return r.chunks
}

func (r *recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stop asks ffmpeg to finish the stream cleanly.
func (r *recorder) Stop() {
	if r.cmd.Process == nil {
		return
	}
	// ffmpeg writes the trailing Ogg page when interrupted.
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		r.cmd.Process.Kill()
	}
}
