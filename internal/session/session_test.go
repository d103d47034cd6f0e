package session_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raysh454/courtfetch/internal/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ─── Put / Take ────────────────────────────────────────────────────────

func TestStore_TakeRemoves(t *testing.T) {
	t.Parallel()
	s := session.NewStore()
	if err := s.Put(&session.Session{ID: "a"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Take("a")
	if !ok || got.ID != "a" {
		t.Fatalf("expected session a, got %+v %v", got, ok)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}
	if _, ok := s.Take("a"); ok {
		t.Error("second Take must not find the session")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestStore_PutDuplicate(t *testing.T) {
	t.Parallel()
	s := session.NewStore()
	_ = s.Put(&session.Session{ID: "a"})
	if err := s.Put(&session.Session{ID: "a"}); !errors.Is(err, session.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestStore_ConcurrentTakeSingleWinner(t *testing.T) {
	t.Parallel()
	s := session.NewStore()
	for i := 0; i < 50; i++ {
		_ = s.Put(&session.Session{ID: fmt.Sprintf("s%d", i)})
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("s%d", i)
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := s.Take(id); ok {
					wins.Add(1)
				}
			}()
		}
	}
	wg.Wait()
	if wins.Load() != 50 {
		t.Errorf("expected exactly one winner per id (50), got %d", wins.Load())
	}
}

// ─── Expiry ────────────────────────────────────────────────────────────

func TestStore_TakeExpired(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := session.NewStore(session.WithClock(clock.Now))

	_ = s.Put(&session.Session{ID: "old"})
	clock.Advance(8 * time.Minute)
	_ = s.Put(&session.Session{ID: "new"})
	clock.Advance(3 * time.Minute)

	expired := s.TakeExpired(10 * time.Minute)
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Fatalf("expected only old to expire, got %+v", expired)
	}
	if _, ok := s.Take("new"); !ok {
		t.Error("fresh session should survive the sweep")
	}
}

func TestStore_Expired(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := session.NewStore(session.WithClock(clock.Now))
	sess := &session.Session{ID: "a"}
	_ = s.Put(sess)

	if s.Expired(sess, time.Minute) {
		t.Error("new session should not be expired")
	}
	clock.Advance(2 * time.Minute)
	if !s.Expired(sess, time.Minute) {
		t.Error("session past ttl should be expired")
	}
	if s.Expired(sess, 0) {
		t.Error("zero ttl disables expiry")
	}
}

// ─── Drain ─────────────────────────────────────────────────────────────

func TestStore_DrainClosesStore(t *testing.T) {
	t.Parallel()
	s := session.NewStore()
	_ = s.Put(&session.Session{ID: "a"})
	_ = s.Put(&session.Session{ID: "b"})

	drained := s.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained sessions, got %d", len(drained))
	}
	if err := s.Put(&session.Session{ID: "c"}); !errors.Is(err, session.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed after drain, got %v", err)
	}
	if len(s.Drain()) != 0 {
		t.Error("second drain should be empty")
	}
}
