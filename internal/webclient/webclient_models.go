package webclient

import (
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request *Request
	// FinalURL is the URL of the last request after redirects.
	FinalURL   string
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}
