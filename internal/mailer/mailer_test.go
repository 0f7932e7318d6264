package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicLink(t *testing.T) {
	assert.Equal(t, "https://app.example/auth/verify?token=abc123", MagicLink("https://app.example", "abc123"))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.SendMagicLink(context.Background(), "a@example.com", "https://x/verify"))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.Contains(t, buf.String(), "https://x/verify")
}
