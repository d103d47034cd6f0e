// Package session holds issued challenges until they are answered, expire, or
// the engine shuts down. Every transition out of the store is a removal, so a
// session is handed out at most once.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/raysh454/courtfetch/internal/browsing"
)

var (
	ErrStoreClosed = errors.New("session store closed")
	ErrDuplicateID = errors.New("duplicate session id")
)

// Session is an issued challenge together with the page it was captured from.
// The holder of a Session owns its Handle and must close it.
type Session struct {
	ID     string
	Handle browsing.Handle

	// ExpectedAnswer is set when the challenge was drawn locally.
	ExpectedAnswer string
	HasExpected    bool

	CreatedAt time.Time
}

// Store is safe for concurrent use. All operations are atomic with respect to
// each other.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: map[string]*Session{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time { return s.now() }

// Put adds sess, stamping CreatedAt when it is zero. After Drain every Put
// fails with ErrStoreClosed and the caller still owns the handle.
func (s *Store) Put(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrDuplicateID
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Take removes and returns the session for id. Of any number of concurrent
// callers with the same id, exactly one gets it.
func (s *Store) Take(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return sess, ok
}

// TakeExpired removes and returns every session created more than ttl ago.
func (s *Store) TakeExpired(ttl time.Duration) []*Session {
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Session
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			out = append(out, sess)
			delete(s.sessions, id)
		}
	}
	return out
}

// Expired reports whether sess is older than ttl.
func (s *Store) Expired(sess *Session, ttl time.Duration) bool {
	return ttl > 0 && s.now().Sub(sess.CreatedAt) > ttl
}

// Drain closes the store and returns everything it still held.
func (s *Store) Drain() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.sessions = map[string]*Session{}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
