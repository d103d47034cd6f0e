package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/engine"
	"github.com/raysh454/courtfetch/internal/portalmock"
	"github.com/raysh454/courtfetch/internal/session"
	"github.com/raysh454/courtfetch/internal/testutil"
)

const resultHTML = `<html><body><div id="case-result"><table>
<tr><td>Petitioner</td><td>ABC Pvt. Ltd.</td></tr>
<tr><td>Respondent</td><td>State</td></tr>
</table><a href="/orders/a.pdf">Order</a></div></body></html>`

func fakeCourt() *courtcfg.CourtConfig {
	return &courtcfg.CourtConfig{
		Name:               "Fake Court",
		PortalURL:          "https://portal.example/case-status",
		BaseURL:            "https://portal.example",
		DocumentExtensions: []string{".pdf"},
		Selectors:          portalmock.FormSelectors(),
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEngine(t *testing.T, b browsing.Backend, cfg engine.Config, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg, fakeCourt(), b, &testutil.DummyLogger{}, opts...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func search(id string) engine.SearchRequest {
	return engine.SearchRequest{SessionID: id, CaseType: "CRL", CaseNumber: "123", FilingYear: "2024", Solution: "AbC123"}
}

// ─── Construction ─────────────────────────────────────────────────────

func TestNew_RejectsBadInput(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	if _, err := engine.New(engine.DefaultConfig(), nil, &testutil.FakeBackend{}, logger); err == nil {
		t.Error("expected error for nil court")
	}
	if _, err := engine.New(engine.DefaultConfig(), fakeCourt(), nil, logger); err == nil {
		t.Error("expected error for nil backend")
	}
	if _, err := engine.New(engine.Config{}, fakeCourt(), &testutil.FakeBackend{}, logger); err == nil {
		t.Error("expected error for zero config")
	}
}

func TestEngine_NotStarted(t *testing.T) {
	t.Parallel()
	e, err := engine.New(engine.DefaultConfig(), fakeCourt(), &testutil.FakeBackend{}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.NewChallenge(context.Background()); !errors.Is(err, engine.ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

// ─── Challenge ────────────────────────────────────────────────────────

func TestNewChallenge_ParksSession(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{}
	e := newEngine(t, b, engine.DefaultConfig())

	ch, err := e.NewChallenge(context.Background())
	if err != nil {
		t.Fatalf("NewChallenge: %v", err)
	}
	if ch.SessionID == "" {
		t.Error("expected a session id")
	}
	if !strings.HasPrefix(ch.ImageDataURL, "data:image/png;base64,") {
		t.Errorf("unexpected data url %.40s", ch.ImageDataURL)
	}
	if e.Pending() != 1 {
		t.Errorf("expected 1 pending session, got %d", e.Pending())
	}
	hs := b.Handles()
	if len(hs) != 1 || len(hs[0].Navigated) != 1 || hs[0].Navigated[0] != fakeCourt().PortalURL {
		t.Errorf("expected one navigation to the portal, got %+v", hs)
	}
	if hs[0].IsClosed() {
		t.Error("parked handle must stay open")
	}
}

func TestNewChallenge_FailuresCloseHandle(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		backend *testutil.FakeBackend
		want    error
	}{
		{"capture", &testutil.FakeBackend{CaptureErr: browsing.ErrChallengeNotFound}, browsing.ErrChallengeNotFound},
		{"capture other", &testutil.FakeBackend{CaptureErr: errors.New("cdp gone")}, browsing.ErrChallengeNotFound},
		{"navigate", &testutil.FakeBackend{NavigateErr: errors.New("connection refused")}, browsing.ErrBackendUnavailable},
		{"open", &testutil.FakeBackend{OpenErr: errors.New("no chrome")}, browsing.ErrBackendUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newEngine(t, tc.backend, engine.DefaultConfig())
			_, err := e.NewChallenge(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.backend.Opens() != tc.backend.Closes() {
				t.Errorf("handle leak: %d opens, %d closes", tc.backend.Opens(), tc.backend.Closes())
			}
			if e.Pending() != 0 {
				t.Errorf("no session may be parked, got %d", e.Pending())
			}
		})
	}
}

// ─── Submit ───────────────────────────────────────────────────────────

func TestSubmit_SessionIsSingleUse(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML, FinalURL: "https://portal.example/case-status"}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	page, err := e.Submit(ctx, search(ch.SessionID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if page.FinalURL != b.FinalURL || page.HTML != resultHTML {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := e.Submit(ctx, search(ch.SessionID)); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on replay, got %v", err)
	}
	if b.Opens() != 1 || b.Closes() != 1 {
		t.Errorf("expected 1 open and 1 close, got %d/%d", b.Opens(), b.Closes())
	}
}

func TestSubmit_DrivesForm(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	req := search(ch.SessionID)
	req.CaseNumber = "  123 "
	if _, err := e.Submit(ctx, req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	h := b.Handles()[0]
	sel := portalmock.FormSelectors()
	checks := map[string]string{
		sel.CaseTypeSelect:  "CRL",
		sel.CaseNumberInput: "123",
		sel.CaseYearInput:   "2024",
		sel.CaptchaInput:    "AbC123",
	}
	for selector, want := range checks {
		if got := h.Value(selector); got != want {
			t.Errorf("%s: expected %q, got %q", selector, want, got)
		}
	}
	if len(h.Clicks) != 1 || h.Clicks[0] != sel.SubmitButton {
		t.Errorf("expected submit click, got %v", h.Clicks)
	}
	if len(h.SelectBy) != 1 || h.SelectBy[0] != browsing.MatchLabel {
		t.Errorf("expected a single select by label, got %v", h.SelectBy)
	}
}

func TestSubmit_CaseTypeFallsBackToValue(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML, MissingLabel: true}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	req := search(ch.SessionID)
	req.CaseType = "1"
	if _, err := e.Submit(ctx, req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h := b.Handles()[0]
	want := []browsing.OptionMatch{browsing.MatchLabel, browsing.MatchValue}
	if len(h.SelectBy) != 2 || h.SelectBy[0] != want[0] || h.SelectBy[1] != want[1] {
		t.Errorf("expected label then value, got %v", h.SelectBy)
	}
	if h.Value(portalmock.FormSelectors().CaseTypeSelect) != "1" {
		t.Error("expected raw value to be selected")
	}
}

func TestSubmit_ConcurrentSameSession(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()
	ch, _ := e.NewChallenge(ctx)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Submit(ctx, search(ch.SessionID))
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, engine.ErrSessionNotFound):
			notFound++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || notFound != n-1 {
		t.Errorf("expected exactly one winner, got ok=%d notFound=%d", ok, notFound)
	}
	if b.Closes() != 1 {
		t.Errorf("expected the handle closed once, got %d", b.Closes())
	}
}

func TestSubmit_MismatchRetiresSession(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML, Expected: "XyZ789"}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	req := search(ch.SessionID)
	req.Solution = "xyz789"
	_, err := e.Submit(ctx, req)
	if !errors.Is(err, engine.ErrChallengeMismatch) {
		t.Fatalf("expected ErrChallengeMismatch, got %v", err)
	}
	if strings.Contains(err.Error(), "XyZ789") || strings.Contains(engine.UserMessage(err), "XyZ789") {
		t.Error("mismatch must not reveal the expected answer")
	}
	if !b.Handles()[0].IsClosed() {
		t.Error("handle must be closed after a mismatch")
	}
	if len(b.Handles()[0].Clicks) != 0 {
		t.Error("portal must not be driven after a mismatch")
	}

	req.Solution = "XyZ789"
	if _, err := e.Submit(ctx, req); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after mismatch, got %v", err)
	}
}

func TestSubmit_MatchingLocalAnswer(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML, Expected: "AbC123"}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	if _, err := e.Submit(ctx, search(ch.SessionID)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSubmit_InvalidRequestRetiresSession(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML}
	e := newEngine(t, b, engine.DefaultConfig())
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	req := search(ch.SessionID)
	req.FilingYear = "   "
	if _, err := e.Submit(ctx, req); !errors.Is(err, engine.ErrInvalidSearch) {
		t.Fatalf("expected ErrInvalidSearch, got %v", err)
	}
	if _, err := e.Submit(ctx, search(ch.SessionID)); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if b.Opens() != b.Closes() {
		t.Errorf("handle leak: %d/%d", b.Opens(), b.Closes())
	}
}

func TestSubmit_ResultTimeout(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{Page: resultHTML, WaitDelay: true}
	cfg := engine.DefaultConfig()
	cfg.ResultTimeout = 20 * time.Millisecond
	e := newEngine(t, b, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ch, err := e.NewChallenge(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.Submit(ctx, search(ch.SessionID)); !errors.Is(err, browsing.ErrNavigationTimeout) {
			t.Fatalf("expected ErrNavigationTimeout, got %v", err)
		}
	}
	if b.Opens() != 3 || b.Closes() != 3 {
		t.Errorf("expected close count to equal open count, got %d/%d", b.Opens(), b.Closes())
	}
	if e.Pending() != 0 {
		t.Errorf("expected no parked sessions, got %d", e.Pending())
	}
}

func TestSubmit_UnknownSession(t *testing.T) {
	t.Parallel()
	e := newEngine(t, &testutil.FakeBackend{}, engine.DefaultConfig())
	_, err := e.Submit(context.Background(), search("never-issued"))
	if !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// ─── Expiry ───────────────────────────────────────────────────────────

func TestSweep_ReapsExpiredSessions(t *testing.T) {
	t.Parallel()
	c := &clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	b := &testutil.FakeBackend{Page: resultHTML}
	e := newEngine(t, b, engine.DefaultConfig(), engine.WithStore(session.NewStore(session.WithClock(c.Now))))
	ctx := context.Background()

	old, _ := e.NewChallenge(ctx)
	c.Advance(9 * time.Minute)
	fresh, _ := e.NewChallenge(ctx)
	c.Advance(2 * time.Minute)

	if n := e.Sweep(); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if !b.Handles()[0].IsClosed() || b.Handles()[1].IsClosed() {
		t.Error("only the expired handle should be closed")
	}
	if _, err := e.Submit(ctx, search(old.SessionID)); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Errorf("expected reaped session to be gone, got %v", err)
	}
	if _, err := e.Submit(ctx, search(fresh.SessionID)); err != nil {
		t.Errorf("fresh session should still work, got %v", err)
	}
}

func TestSubmit_RejectsExpiredBeforeSweep(t *testing.T) {
	t.Parallel()
	c := &clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	b := &testutil.FakeBackend{Page: resultHTML}
	e := newEngine(t, b, engine.DefaultConfig(), engine.WithStore(session.NewStore(session.WithClock(c.Now))))
	ctx := context.Background()

	ch, _ := e.NewChallenge(ctx)
	c.Advance(11 * time.Minute)
	if _, err := e.Submit(ctx, search(ch.SessionID)); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for an expired session, got %v", err)
	}
	if !b.Handles()[0].IsClosed() {
		t.Error("expired handle must be closed")
	}
}

func TestReaper_RunsInBackground(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{}
	cfg := engine.DefaultConfig()
	cfg.SessionTTL = time.Millisecond
	cfg.SweepInterval = 5 * time.Millisecond
	e := newEngine(t, b, cfg)

	if _, err := e.NewChallenge(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e.Pending() != 0 || b.Closes() != 1 {
		t.Errorf("expected the reaper to close the session, pending=%d closes=%d", e.Pending(), b.Closes())
	}
}

// ─── Stop ─────────────────────────────────────────────────────────────

func TestStop_ClosesEverything(t *testing.T) {
	t.Parallel()
	b := &testutil.FakeBackend{}
	e, _ := engine.New(engine.DefaultConfig(), fakeCourt(), b, &testutil.DummyLogger{})
	ctx := context.Background()
	_ = e.Start(ctx)
	_ = e.Start(ctx)

	for i := 0; i < 3; i++ {
		if _, err := e.NewChallenge(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("second Stop must be a no-op, got %v", err)
	}
	if b.Closes() != 3 || !b.Closed() {
		t.Errorf("expected all handles and the backend closed, got closes=%d backend=%v", b.Closes(), b.Closed())
	}
	if _, err := e.NewChallenge(ctx); !errors.Is(err, engine.ErrEngineStopped) {
		t.Errorf("expected ErrEngineStopped after Stop, got %v", err)
	}
	if err := e.Start(ctx); !errors.Is(err, engine.ErrEngineStopped) {
		t.Errorf("expected restart to fail, got %v", err)
	}
}

// ─── Messages ─────────────────────────────────────────────────────────

func TestUserMessage(t *testing.T) {
	t.Parallel()
	cases := map[error]string{
		engine.ErrSessionNotFound:      "request a new one",
		engine.ErrChallengeMismatch:    "did not match",
		engine.ErrInvalidSearch:        "required",
		browsing.ErrBackendUnavailable: "could not be reached",
		browsing.ErrChallengeNotFound:  "verification image",
		browsing.ErrNavigationTimeout:  "in time",
		browsing.ErrElementNotFound:    "configuration",
		context.Canceled:               "cancelled",
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("ctx: %w", err)
		if got := engine.UserMessage(wrapped); !strings.Contains(got, want) {
			t.Errorf("UserMessage(%v) = %q, want substring %q", err, got, want)
		}
	}
	if got := engine.UserMessage(errors.New("something unexpected")); !strings.Contains(got, "went wrong") {
		t.Errorf("unexpected fallback message %q", got)
	}
	if engine.UserMessage(nil) != "" {
		t.Error("nil error should have no message")
	}
}
