package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ffplay plays audio URLs through the ffplay binary.
type ffplay struct{}

func (ffplay) Play(ctx context.Context, url string, volume float64) error {
	src := url
	if strings.HasPrefix(url, "data:") {
		path, err := writeDataURL(url)
		if err != nil {
			return err
		}
		defer os.Remove(path)
		src = path
	}

	cmd := exec.CommandContext(ctx, "ffplay",
		"-nodisp", "-autoexit", "-loglevel", "error",
		"-volume", strconv.Itoa(int(volume*100)),
		src,
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}

// writeDataURL decodes a base64 data URL into a temporary file.
func writeDataURL(url string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", errors.New("unsupported data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode data URL: %w", err)
	}

	f, err := os.CreateTemp("", "voxmate-*.audio")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
