package webclient

import "time"

// Config tunes the net/http backed client.
type Config struct {
	// Timeout bounds a whole request including reading the body. Zero means 30s.
	Timeout time.Duration

	// UserAgent is sent unless the request sets its own.
	UserAgent string

	// MaxBodyBytes caps a response body; a larger one fails with
	// ErrBodyTooLarge. Zero means 16 MiB.
	MaxBodyBytes int64

	// CookieJar gives the client its own cookie session, keyed by the public
	// suffix list so cookies never leak across registrable domains.
	CookieJar bool
}

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 16 << 20
	DefaultUserAgent    = "courtfetch/0.1 (+case-status lookup)"
)
