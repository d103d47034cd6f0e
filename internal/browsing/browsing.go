// Package browsing drives a court portal page on behalf of one visitor. A
// Backend owns the driver (a browser allocator or an HTTP transport) and hands
// out Handles, each of which is an isolated page with its own cookies.
package browsing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBackendUnavailable = errors.New("browsing backend unavailable")
	ErrChallengeNotFound  = errors.New("challenge image not found")
	ErrNavigationTimeout  = errors.New("navigation timed out")
	ErrElementNotFound    = errors.New("element not found")
	ErrHandleClosed       = errors.New("handle closed")
)

// OptionMatch selects how Select compares an option against the wanted value.
type OptionMatch int

const (
	// MatchLabel compares the option's visible text, trimmed.
	MatchLabel OptionMatch = iota
	// MatchValue compares the option's value attribute.
	MatchValue
)

func (m OptionMatch) String() string {
	if m == MatchValue {
		return "value"
	}
	return "label"
}

type Backend interface {
	Name() string

	// Open starts a fresh page. It fails with ErrBackendUnavailable when the
	// driver cannot be started within the configured open timeout.
	Open(ctx context.Context) (Handle, error)

	Close() error
}

// Handle is a single page. Methods are not safe for concurrent use except
// Close, which may be called at any time and more than once.
type Handle interface {
	Navigate(ctx context.Context, url string) error

	// CaptureChallenge returns the image bytes of the challenge element.
	CaptureChallenge(ctx context.Context, selector string) ([]byte, error)

	Fill(ctx context.Context, selector, value string) error
	Select(ctx context.Context, selector, option string, by OptionMatch) error
	Click(ctx context.Context, selector string) error

	// WaitFor blocks until selector is present or timeout elapses, in which
	// case it returns ErrNavigationTimeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	Content(ctx context.Context) (finalURL, html string, err error)

	// ExpectedAnswer reports the challenge solution when the handle drew the
	// challenge itself.
	ExpectedAnswer() (string, bool)

	Close() error
}
