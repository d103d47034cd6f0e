// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ErrorCount returns the number of recorded error messages.
func (l *DummyLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Errors)
}

// ─── Browsing backend ──────────────────────────────────────────────────

// FakeBackend implements browsing.Backend with scripted handles. Every handle
// it opens serves Page once Click has been called, and Challenge before that.
// Opens and closes are counted so tests can assert that no handle leaks.
type FakeBackend struct {
	// Challenge is returned by CaptureChallenge. Empty means a 1x1 PNG.
	Challenge []byte
	// Expected, when set, is reported by every handle's ExpectedAnswer.
	Expected string
	// Page is the HTML returned by Content after a Click.
	Page string
	// FinalURL is returned by Content after a Click.
	FinalURL string

	// OpenErr fails Open. The other fields fail the matching handle method.
	OpenErr      error
	NavigateErr  error
	CaptureErr   error
	ClickErr     error
	WaitErr      error
	ContentErr   error
	MissingLabel bool // Select by label fails, forcing the value fallback

	// WaitDelay makes WaitFor block until its timeout or ctx ends, then fail
	// with browsing.ErrNavigationTimeout.
	WaitDelay bool

	mu      sync.Mutex
	opens   int
	closes  int
	closed  bool
	handles []*FakeHandle
}

var tinyPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func (b *FakeBackend) Name() string { return "fake" }

func (b *FakeBackend) Open(ctx context.Context) (browsing.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("fake closed: %w", browsing.ErrBackendUnavailable)
	}
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.opens++
	h := &FakeHandle{backend: b, Values: map[string]string{}}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *FakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Opens returns how many handles were opened.
func (b *FakeBackend) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

// Closes returns how many handles were closed, counting each handle once.
func (b *FakeBackend) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Closed reports whether Close was called on the backend.
func (b *FakeBackend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Handles returns the handles opened so far.
func (b *FakeBackend) Handles() []*FakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeHandle(nil), b.handles...)
}

// FakeHandle records the interaction applied to it.
type FakeHandle struct {
	backend *FakeBackend

	mu        sync.Mutex
	closed    bool
	clicked   bool
	Navigated []string
	Values    map[string]string // selector -> filled or selected value
	SelectBy  []browsing.OptionMatch
	Clicks    []string
}

func (h *FakeHandle) check() error {
	if h.closed {
		return browsing.ErrHandleClosed
	}
	return nil
}

func (h *FakeHandle) Navigate(_ context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return err
	}
	if h.backend.NavigateErr != nil {
		return h.backend.NavigateErr
	}
	h.Navigated = append(h.Navigated, url)
	return nil
}

func (h *FakeHandle) CaptureChallenge(_ context.Context, selector string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return nil, err
	}
	if h.backend.CaptureErr != nil {
		return nil, h.backend.CaptureErr
	}
	if len(h.backend.Challenge) > 0 {
		return h.backend.Challenge, nil
	}
	return tinyPNG, nil
}

func (h *FakeHandle) Fill(_ context.Context, selector, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return err
	}
	h.Values[selector] = value
	return nil
}

func (h *FakeHandle) Select(_ context.Context, selector, option string, by browsing.OptionMatch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return err
	}
	h.SelectBy = append(h.SelectBy, by)
	if by == browsing.MatchLabel && h.backend.MissingLabel {
		return fmt.Errorf("select %s: %w", selector, browsing.ErrElementNotFound)
	}
	h.Values[selector] = option
	return nil
}

func (h *FakeHandle) Click(_ context.Context, selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return err
	}
	if h.backend.ClickErr != nil {
		return h.backend.ClickErr
	}
	h.Clicks = append(h.Clicks, selector)
	h.clicked = true
	return nil
}

func (h *FakeHandle) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	h.mu.Lock()
	if err := h.check(); err != nil {
		h.mu.Unlock()
		return err
	}
	waitErr, delay := h.backend.WaitErr, h.backend.WaitDelay
	h.mu.Unlock()

	if delay {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return fmt.Errorf("wait for %s: %w", selector, browsing.ErrNavigationTimeout)
	}
	return waitErr
}

func (h *FakeHandle) Content(_ context.Context) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.check(); err != nil {
		return "", "", err
	}
	if h.backend.ContentErr != nil {
		return "", "", h.backend.ContentErr
	}
	if !h.clicked {
		return "", "", errors.New("fake: nothing submitted")
	}
	return h.backend.FinalURL, h.backend.Page, nil
}

func (h *FakeHandle) ExpectedAnswer() (string, bool) {
	return h.backend.Expected, h.backend.Expected != ""
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.backend.mu.Lock()
	h.backend.closes++
	h.backend.mu.Unlock()
	return nil
}

// IsClosed reports whether Close was called.
func (h *FakeHandle) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Value returns what was filled or selected into selector.
func (h *FakeHandle) Value(selector string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Values[selector]
}
