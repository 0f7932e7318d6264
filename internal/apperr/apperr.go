// Package apperr defines the error taxonomy shared by services, the turn
// orchestrator and HTTP handlers. Callers wrap these sentinels with
// fmt.Errorf("%w: ...") and match them with errors.Is.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrUpstream         = errors.New("upstream service failure")
	ErrNoSpeechDetected = errors.New("no speech detected")
	ErrTurnInProgress   = errors.New("turn in progress")
	ErrInvalidToken     = errors.New("invalid or expired token")
)

// Status maps an error to the HTTP status code the API reports for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrNoSpeechDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUpstream), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err. Internal errors are not
// leaked.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
