// Package engine runs the challenge/response flow against a court portal. It
// opens a page per visitor, keeps it parked in a session store while the
// visitor solves the challenge, then replays the search on that same page and
// extracts the case record from the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/extract"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/session"
)

type Engine struct {
	cfg       Config
	court     *courtcfg.CourtConfig
	backend   browsing.Backend
	store     *session.Store
	extractor extract.Extractor
	logger    logging.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type Option func(*Engine)

// WithStore injects the session store, for tests that control its clock.
func WithStore(s *session.Store) Option {
	return func(e *Engine) { e.store = s }
}

func WithExtractor(x extract.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// New builds an engine that owns backend. The engine closes it on Stop.
func New(cfg Config, court *courtcfg.CourtConfig, backend browsing.Backend, logger logging.Logger, opts ...Option) (*Engine, error) {
	if court == nil {
		return nil, errors.New("engine: nil court config")
	}
	if backend == nil {
		return nil, errors.New("engine: nil backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		court:   court,
		backend: backend,
		logger: logger.With(
			logging.Field{Key: "component", Value: "engine"},
			logging.Field{Key: "court", Value: court.Name}),
		stopCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	if e.store == nil {
		e.store = session.NewStore()
	}
	if e.extractor == nil {
		e.extractor = extract.New(court)
	}
	return e, nil
}

// Start launches the session reaper. Calling Start on a running engine is a
// no-op; a stopped engine cannot be restarted.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	if e.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.running = true

	e.wg.Add(1)
	go e.reap()

	e.logger.Info("engine started",
		logging.Field{Key: "backend", Value: e.backend.Name()},
		logging.Field{Key: "extractor", Value: extract.Mode(e.court)},
		logging.Field{Key: "session_ttl", Value: e.cfg.SessionTTL.String()})
	return nil
}

// Stop ends the reaper, closes every parked session and closes the backend.
// It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()

	var errs []error
	drained := e.store.Drain()
	for _, sess := range drained {
		if err := sess.Handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", sess.ID, err))
		}
	}
	if err := e.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	e.logger.Info("engine stopped", logging.Field{Key: "drained_sessions", Value: len(drained)})
	return errors.Join(errs...)
}

func (e *Engine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) reap() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Sweep closes and forgets every session older than the TTL, returning how
// many were reaped.
func (e *Engine) Sweep() int {
	expired := e.store.TakeExpired(e.cfg.SessionTTL)
	for _, sess := range expired {
		e.closeHandle(sess)
	}
	if len(expired) > 0 {
		e.logger.Info("reaped expired sessions", logging.Field{Key: "count", Value: len(expired)})
	}
	return len(expired)
}

// Pending returns the number of sessions waiting for an answer.
func (e *Engine) Pending() int { return e.store.Len() }

// Court returns the court configuration the engine was built with.
func (e *Engine) Court() *courtcfg.CourtConfig { return e.court }

func (e *Engine) closeHandle(sess *session.Session) {
	if err := sess.Handle.Close(); err != nil {
		e.logger.Warn("failed to close handle",
			logging.Field{Key: "session_id", Value: sess.ID},
			logging.Field{Key: "error", Value: err})
	}
}
