package browsing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/raysh454/courtfetch/internal/logging"
)

// ChromedpBackend runs one browser process and opens one tab per Handle.
type ChromedpBackend struct {
	cfg    Config
	logger logging.Logger

	allocCtx    context.Context
	cancelAlloc context.CancelFunc

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	closed        bool
}

func NewChromedpBackend(cfg Config, logger logging.Logger) (*ChromedpBackend, error) {
	if cfg.LocalChallenge {
		return nil, errors.New("chromedp backend does not draw local challenges")
	}
	cfg = cfg.withDefaults()

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.WebClient.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.WebClient.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	componentLogger := logger.With(logging.Field{Key: "backend", Value: BackendChromedp})
	componentLogger.Debug("created chromedp backend",
		logging.Field{Key: "headless", Value: cfg.Headless},
		logging.Field{Key: "idle_after", Value: cfg.IdleAfter.String()})

	return &ChromedpBackend{
		cfg:         cfg,
		logger:      componentLogger,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
	}, nil
}

func (b *ChromedpBackend) Name() string { return BackendChromedp }

// browser starts the browser process on first use. The first Run on a chromedp
// context owns the process, so it runs on the long-lived browser context and is
// raced against the open timeout instead of receiving a deadline.
func (b *ChromedpBackend) browser(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("backend closed: %w", ErrBackendUnavailable)
	}
	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	browserCtx, cancel := chromedp.NewContext(b.allocCtx)
	if err := runBounded(ctx, b.cfg.OpenTimeout, browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %v: %w", err, ErrBackendUnavailable)
	}
	b.browserCtx, b.cancelBrowser = browserCtx, cancel
	b.logger.Info("browser started")
	return browserCtx, nil
}

// runBounded performs the first Run on target without tying its lifetime to
// the deadline.
func runBounded(ctx context.Context, timeout time.Duration, target context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errors.New("timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChromedpBackend) Open(ctx context.Context) (Handle, error) {
	browserCtx, err := b.browser(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	if err := runBounded(ctx, b.cfg.OpenTimeout, tabCtx); err != nil {
		cancelTab()
		return nil, fmt.Errorf("open tab: %v: %w", err, ErrBackendUnavailable)
	}
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancelTab()
		return nil, fmt.Errorf("enable network events: %v: %w", err, ErrBackendUnavailable)
	}

	return &chromedpHandle{
		cfg:       b.cfg,
		logger:    b.logger,
		tabCtx:    tabCtx,
		cancelTab: cancelTab,
	}, nil
}

// Close kills the browser. Handles still open become unusable.
func (b *ChromedpBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.cancelBrowser != nil {
		b.cancelBrowser()
	}
	b.cancelAlloc()
	b.logger.Debug("closing chromedp backend")
	return nil
}

type chromedpHandle struct {
	cfg    Config
	logger logging.Logger

	tabCtx    context.Context
	cancelTab context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
}

// op derives a context for one action from the tab, bounded by timeout and
// cancelled along with ctx.
func (h *chromedpHandle) op(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if h.closed.Load() {
		return nil, nil, ErrHandleClosed
	}
	opCtx, cancel := context.WithTimeout(h.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() { stop(); cancel() }, nil
}

// classify maps a failed action onto onTimeout when the action's own deadline
// expired, and onto the caller's error when the caller gave up.
func classify(ctx, opCtx context.Context, err, onTimeout error, what string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, ctx.Err())
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, onTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (h *chromedpHandle) Navigate(ctx context.Context, url string) error {
	opCtx, cancel, err := h.op(ctx, h.cfg.OpenTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	idle := waitNetworkIdle(opCtx, h.cfg.IdleAfter)
	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return classify(ctx, opCtx, err, ErrNavigationTimeout, "navigate "+url)
	}
	h.settle(opCtx, idle)
	h.logger.Debug("navigated", logging.Field{Key: "url", Value: url})
	return nil
}

// settle waits for the network to go quiet. A page that never settles is used
// as is once the action deadline passes.
func (h *chromedpHandle) settle(ctx context.Context, idle <-chan struct{}) {
	timer := time.NewTimer(h.cfg.ElementTimeout)
	defer timer.Stop()
	select {
	case <-idle:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (h *chromedpHandle) CaptureChallenge(ctx context.Context, selector string) ([]byte, error) {
	if selector == "" {
		return nil, fmt.Errorf("no challenge selector: %w", ErrChallengeNotFound)
	}
	opCtx, cancel, err := h.op(ctx, h.cfg.ElementTimeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var img []byte
	err = chromedp.Run(opCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Screenshot(selector, &img, chromedp.ByQuery),
	)
	if err != nil {
		return nil, classify(ctx, opCtx, err, ErrChallengeNotFound, "capture "+selector)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("capture %s: empty screenshot: %w", selector, ErrChallengeNotFound)
	}
	return img, nil
}

func (h *chromedpHandle) Fill(ctx context.Context, selector, value string) error {
	opCtx, cancel, err := h.op(ctx, h.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	err = chromedp.Run(opCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return classify(ctx, opCtx, err, ErrElementNotFound, "fill "+selector)
	}
	return nil
}

// selectOption sets a <select> by label or value and fires change, returning
// false when the element or the option is missing.
const selectOption = `(function(selector, option, byValue) {
	const el = document.querySelector(selector);
	if (!el || !el.options) return false;
	for (const opt of el.options) {
		const hit = byValue ? opt.value === option : opt.text.trim() === option;
		if (hit) {
			el.value = opt.value;
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
	}
	return false;
})(%s, %s, %t)`

func (h *chromedpHandle) Select(ctx context.Context, selector, option string, by OptionMatch) error {
	opCtx, cancel, err := h.op(ctx, h.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	sel, _ := json.Marshal(selector)
	opt, _ := json.Marshal(option)
	script := fmt.Sprintf(selectOption, sel, opt, by == MatchValue)

	var ok bool
	err = chromedp.Run(opCtx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, &ok, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true)
		}),
	)
	if err != nil {
		return classify(ctx, opCtx, err, ErrElementNotFound, "select "+selector)
	}
	if !ok {
		return fmt.Errorf("select %s: no option with %s %q: %w", selector, by, option, ErrElementNotFound)
	}
	return nil
}

func (h *chromedpHandle) Click(ctx context.Context, selector string) error {
	opCtx, cancel, err := h.op(ctx, h.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return classify(ctx, opCtx, err, ErrElementNotFound, "click "+selector)
	}
	idle := waitNetworkIdle(opCtx, h.cfg.IdleAfter)
	if err := chromedp.Run(opCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return classify(ctx, opCtx, err, ErrElementNotFound, "click "+selector)
	}
	h.settle(opCtx, idle)
	return nil
}

func (h *chromedpHandle) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel, err := h.op(ctx, timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return classify(ctx, opCtx, err, ErrNavigationTimeout, "wait for "+selector)
	}
	return nil
}

func (h *chromedpHandle) Content(ctx context.Context) (string, string, error) {
	opCtx, cancel, err := h.op(ctx, h.cfg.ElementTimeout)
	if err != nil {
		return "", "", err
	}
	defer cancel()

	var location, html string
	err = chromedp.Run(opCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", classify(ctx, opCtx, err, ErrNavigationTimeout, "read content")
	}
	return location, html, nil
}

func (h *chromedpHandle) ExpectedAnswer() (string, bool) { return "", false }

func (h *chromedpHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.cancelTab()
	})
	return nil
}

// waitNetworkIdle signals once no request has been in flight for idleAfter.
// Listening stops when ctx is done.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{}, 1)
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					idleChan <- struct{}{}
				})
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})
	// a page that issues no requests at all is idle too
	startTimer()

	return idleChan
}
