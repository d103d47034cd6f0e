package browsing

import (
	"time"

	"github.com/raysh454/courtfetch/internal/webclient"
)

const (
	BackendChromedp = "chromedp"
	BackendHTTP     = "http"
)

type Config struct {
	// Backend names a registered backend. Empty means chromedp.
	Backend string

	// Headless runs the browser without a window. Ignored by the http backend.
	Headless bool

	// ExecPath overrides the browser binary lookup.
	ExecPath string

	// OpenTimeout bounds starting a page.
	OpenTimeout time.Duration

	// ElementTimeout bounds every single-element interaction.
	ElementTimeout time.Duration

	// IdleAfter is how long the network must stay quiet after a navigation
	// before the page counts as settled.
	IdleAfter time.Duration

	// LocalChallenge makes CaptureChallenge draw its own code instead of
	// reading the portal's image. Only the http backend supports it.
	LocalChallenge bool

	WebClient webclient.Config
}

func DefaultConfig() Config {
	return Config{
		Backend:        BackendChromedp,
		Headless:       true,
		OpenTimeout:    20 * time.Second,
		ElementTimeout: 10 * time.Second,
		IdleAfter:      500 * time.Millisecond,
		WebClient: webclient.Config{
			Timeout: 30 * time.Second,
		},
	}
}

// withDefaults fills zero durations so callers may pass a partial Config.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.ElementTimeout <= 0 {
		c.ElementTimeout = d.ElementTimeout
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = d.IdleAfter
	}
	return c
}
