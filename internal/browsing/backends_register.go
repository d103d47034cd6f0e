package browsing

import "github.com/raysh454/courtfetch/internal/logging"

// RegisterDefaultBackends registers the chromedp and http backends. Call it
// early in main, before NewBackend.
func RegisterDefaultBackends() {
	RegisterBackend(BackendChromedp, func(cfg Config, logger logging.Logger) (Backend, error) {
		return NewChromedpBackend(cfg, logger)
	})
	RegisterBackend(BackendHTTP, func(cfg Config, logger logging.Logger) (Backend, error) {
		return NewHTTPBackend(cfg, logger)
	})
}
