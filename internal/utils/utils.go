package utils

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("url has no host")
)

type URLTools struct {
	URL *url.URL
}

// NewURLTools parses raw and normalizes scheme/host case, default ports and the
// fragment. The path is left untouched so that document links resolve verbatim.
func NewURLTools(raw string) (*URLTools, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}

	urlTools := &URLTools{
		URL: u,
	}
	urlTools.normalize()

	return urlTools, nil
}

func (u *URLTools) normalize() {
	u.URL.Fragment = ""
	u.URL.Scheme = strings.ToLower(u.URL.Scheme)
	u.URL.Host = strings.ToLower(u.URL.Host)

	if (u.URL.Scheme == "http" && strings.HasSuffix(u.URL.Host, ":80")) ||
		(u.URL.Scheme == "https" && strings.HasSuffix(u.URL.Host, ":443")) {
		u.URL.Host, _, _ = strings.Cut(u.URL.Host, ":")
	}
}

// Hostname returns the lower-cased ASCII (punycode) host without port.
func (u *URLTools) Hostname() string {
	host := strings.ToLower(u.URL.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		return puny
	}
	return host
}

// DomainIsSame compares hosts after IDN normalization.
func (u *URLTools) DomainIsSame(target *URLTools) bool {
	return u.Hostname() != "" && u.Hostname() == target.Hostname()
}

func (u *URLTools) DomainIsSameString(targetURL string) (bool, error) {
	parsed, err := NewURLTools(targetURL)
	if err != nil {
		return false, err
	}

	return u.DomainIsSame(parsed), nil
}

// Resolve resolves ref against u and returns an absolute URL string.
//
// Examples:
//
//	Base: https://court.example
//	Resolve("/orders/x.pdf")          → "https://court.example/orders/x.pdf"
//	Resolve("orders/x.pdf")           → "https://court.example/orders/x.pdf"
//	Resolve("//cdn.example/x.pdf")    → "https://cdn.example/x.pdf"
//	Resolve("https://other.example/") → "https://other.example/"
//
//	Base: https://court.example/app
//	Resolve("orders/x.pdf")           → "https://court.example/app/orders/x.pdf"
//
// The base is a directory: its last path segment is kept.
func (u *URLTools) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyURL
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("couldn't parse url %s: %w", ref, err)
	}
	base := *u.URL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}
	out := base.ResolveReference(parsed)
	if out.Host == "" {
		return "", &url.Error{Op: "resolve", URL: ref, Err: ErrMissingHost}
	}
	return out.String(), nil
}

// Absolutize resolves href against base. Already-absolute hrefs are returned
// unchanged (apart from normalization done by url.Parse).
func Absolutize(base, href string) (string, error) {
	if u, err := url.Parse(strings.TrimSpace(href)); err == nil && u.IsAbs() && u.Host != "" {
		return u.String(), nil
	}
	b, err := NewURLTools(base)
	if err != nil {
		return "", fmt.Errorf("base url: %w", err)
	}
	return b.Resolve(href)
}

// HasExtension reports whether the path of rawURL (ignoring query and fragment)
// ends in one of exts, case-insensitively. exts must be lower-case with a dot.
func HasExtension(rawURL string, exts []string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
