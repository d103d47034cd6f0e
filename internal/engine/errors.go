package engine

import (
	"context"
	"errors"

	"github.com/raysh454/courtfetch/internal/browsing"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrChallengeMismatch = errors.New("challenge answer mismatch")
	ErrInvalidSearch     = errors.New("invalid search request")
	ErrEngineStopped     = errors.New("engine not running")
)

// UserMessage turns an engine error into text safe to show to a visitor.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionNotFound):
		return "This challenge has expired or was already used. Please request a new one."
	case errors.Is(err, ErrChallengeMismatch):
		return "The characters entered did not match the image. Please request a new challenge and try again."
	case errors.Is(err, ErrInvalidSearch):
		return "Case type, case number and filing year are all required."
	case errors.Is(err, ErrEngineStopped):
		return "The service is shutting down. Please try again shortly."
	case errors.Is(err, browsing.ErrBackendUnavailable):
		return "The court portal could not be reached right now. Please try again shortly."
	case errors.Is(err, browsing.ErrChallengeNotFound):
		return "The court portal did not show a verification image. Please try again shortly."
	case errors.Is(err, browsing.ErrNavigationTimeout):
		return "The court portal did not return a result in time. Please try again."
	case errors.Is(err, browsing.ErrElementNotFound):
		return "The court portal page was not laid out as expected. The court configuration may need updating."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before it finished."
	default:
		return "Something went wrong while talking to the court portal."
	}
}
