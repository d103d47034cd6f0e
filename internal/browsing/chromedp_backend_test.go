package browsing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/testutil"
)

// openChromedp skips the test when no browser can be launched here.
func openChromedp(t *testing.T) (browsing.Backend, browsing.Handle) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	b, err := browsing.NewChromedpBackend(browsing.Config{
		Headless:       true,
		OpenTimeout:    15 * time.Second,
		ElementTimeout: 5 * time.Second,
		IdleAfter:      200 * time.Millisecond,
	}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewChromedpBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	h, err := b.Open(context.Background())
	if err != nil {
		t.Skipf("Skipping chromedp test (environment does not support chromedp): %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return b, h
}

func TestChromedpBackend_SubmitsPortalForm(t *testing.T) {
	_, ts := openPortal(t, "K7pQ2m")
	_, h := openChromedp(t)
	ctx := context.Background()

	if err := h.Navigate(ctx, ts.URL+"/case-status"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	img, err := h.CaptureChallenge(ctx, "#captcha-image")
	if err != nil {
		t.Fatalf("CaptureChallenge: %v", err)
	}
	if len(img) == 0 {
		t.Fatal("expected screenshot bytes")
	}

	if err := h.Select(ctx, "select[name=case_type]", "CRL", browsing.MatchLabel); err != nil {
		t.Fatalf("Select: %v", err)
	}
	_ = h.Fill(ctx, "input[name=case_no]", "123")
	_ = h.Fill(ctx, "input[name=case_year]", "2024")
	_ = h.Fill(ctx, "input[name=captcha]", "K7pQ2m")
	if err := h.Click(ctx, "#search-btn"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if err := h.WaitFor(ctx, "#case-result", 5*time.Second); err != nil {
		t.Fatalf("WaitFor: %v", err)
	}

	_, html, err := h.Content(ctx)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if !strings.Contains(html, "ABC Pvt. Ltd.") {
		t.Error("expected the case record in the result page")
	}
}

func TestChromedpBackend_WaitForTimesOut(t *testing.T) {
	_, ts := openPortal(t, "")
	_, h := openChromedp(t)
	ctx := context.Background()

	if err := h.Navigate(ctx, ts.URL+"/case-status"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	err := h.WaitFor(ctx, "#case-result", 300*time.Millisecond)
	if !errors.Is(err, browsing.ErrNavigationTimeout) {
		t.Fatalf("expected ErrNavigationTimeout, got %v", err)
	}
	if err := h.Select(ctx, "select[name=case_type]", "NOPE", browsing.MatchLabel); !errors.Is(err, browsing.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound for a missing option, got %v", err)
	}

	_ = h.Close()
	if err := h.Navigate(ctx, ts.URL); !errors.Is(err, browsing.ErrHandleClosed) {
		t.Errorf("expected ErrHandleClosed, got %v", err)
	}
}
