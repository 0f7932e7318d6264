// Package mailer delivers magic-link login mails.
package mailer

import (
	"context"
	"log/slog"
	"net/url"
)

// Mailer sends a magic link to an address.
type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

// LogMailer writes magic links to the log instead of sending mail. It is the
// development transport.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.logger.Info("magic link issued", "email", email, "link", link)
	return nil
}

// MagicLink builds the verification link the client consumes.
func MagicLink(baseURL, token string) string {
	return baseURL + "/auth/verify?token=" + url.QueryEscape(token)
}
