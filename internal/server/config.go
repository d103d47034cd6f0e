package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string
	// DownloadTimeout bounds a proxied order download before falling back to
	// a redirect.
	DownloadTimeout time.Duration
	// MaxBodyBytes caps the size of a search request body.
	MaxBodyBytes int64
	// HistoryLimit is the default page size of GET /queries.
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8000",
		DownloadTimeout: 60 * time.Second,
		MaxBodyBytes:    64 << 10,
		HistoryLimit:    50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = d.DownloadTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	return c
}
