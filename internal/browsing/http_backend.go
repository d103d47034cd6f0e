package browsing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/courtfetch/internal/captcha"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/webclient"
	"golang.org/x/net/html"
)

// HTTPBackend drives portals whose forms work without scripts. Every Handle
// gets its own cookie jar; connections are pooled across handles.
type HTTPBackend struct {
	cfg       Config
	logger    logging.Logger
	transport *http.Transport

	mu     sync.Mutex
	closed bool
}

func NewHTTPBackend(cfg Config, logger logging.Logger) (*HTTPBackend, error) {
	cfg = cfg.withDefaults()
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("default transport is not *http.Transport")
	}

	componentLogger := logger.With(logging.Field{Key: "backend", Value: BackendHTTP})
	componentLogger.Debug("created http backend",
		logging.Field{Key: "local_challenge", Value: cfg.LocalChallenge})

	return &HTTPBackend{
		cfg:       cfg,
		logger:    componentLogger,
		transport: transport.Clone(),
	}, nil
}

func (b *HTTPBackend) Name() string { return BackendHTTP }

func (b *HTTPBackend) Open(ctx context.Context) (Handle, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("backend closed: %w", ErrBackendUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wcCfg := b.cfg.WebClient
	wcCfg.CookieJar = true
	httpClient := &http.Client{Transport: b.transport, Timeout: wcCfg.Timeout}
	client, err := webclient.NewNetHTTPClient(wcCfg, b.logger, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create client: %v: %w", err, ErrBackendUnavailable)
	}

	return &httpHandle{
		cfg:       b.cfg,
		logger:    b.logger,
		client:    client,
		overrides: map[*html.Node]string{},
	}, nil
}

func (b *HTTPBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.transport.CloseIdleConnections()
	b.logger.Debug("closing http backend")
	return nil
}

// httpHandle keeps the last fetched page as a parsed document. Fill and Select
// record values against form controls; Click submits the enclosing form.
type httpHandle struct {
	cfg    Config
	logger logging.Logger
	client *webclient.NetHTTPClient

	mu        sync.Mutex
	closed    bool
	page      *url.URL
	body      string
	doc       *goquery.Document
	overrides map[*html.Node]string

	expected    string
	hasExpected bool
}

func (h *httpHandle) lock() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandleClosed
	}
	return nil
}

// bounded applies the open timeout to a page request.
func (h *httpHandle) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.cfg.OpenTimeout)
}

func (h *httpHandle) Navigate(ctx context.Context, rawURL string) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	reqCtx, cancel := h.bounded(ctx)
	defer cancel()
	resp, err := h.client.Get(reqCtx, rawURL)
	if err != nil {
		return requestError(ctx, reqCtx, err, "navigate "+rawURL)
	}
	return h.load(resp)
}

// requestError reports an expired request deadline as ErrNavigationTimeout.
func requestError(ctx, reqCtx context.Context, err error, what string) error {
	if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, ErrNavigationTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// load replaces the page state with resp. Error statuses still produce a page,
// portals render their error messages that way.
func (h *httpHandle) load(resp *webclient.Response) error {
	page, err := url.Parse(resp.FinalURL)
	if err != nil {
		return fmt.Errorf("parse final url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	h.page, h.body, h.doc = page, string(resp.Body), doc
	h.overrides = map[*html.Node]string{}
	h.logger.Debug("loaded page",
		logging.Field{Key: "url", Value: resp.FinalURL},
		logging.Field{Key: "status", Value: resp.StatusCode})
	return nil
}

// find returns the first element matching selector on the current page.
func (h *httpHandle) find(selector string) (*goquery.Selection, error) {
	if h.doc == nil {
		return nil, fmt.Errorf("%s: no page loaded: %w", selector, ErrElementNotFound)
	}
	if selector == "" {
		return nil, fmt.Errorf("empty selector: %w", ErrElementNotFound)
	}
	sel := h.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", selector, ErrElementNotFound)
	}
	return sel, nil
}

func (h *httpHandle) CaptureChallenge(ctx context.Context, selector string) ([]byte, error) {
	if err := h.lock(); err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	if h.cfg.LocalChallenge {
		code, img, err := captcha.Generate(captcha.DefaultLength)
		if err != nil {
			return nil, fmt.Errorf("draw challenge: %w", err)
		}
		h.expected, h.hasExpected = code, true
		return img, nil
	}

	el, err := h.find(selector)
	if err != nil {
		return nil, fmt.Errorf("capture: %w: %w", ErrChallengeNotFound, err)
	}
	src := strings.TrimSpace(el.AttrOr("src", ""))
	if src == "" {
		return nil, fmt.Errorf("capture %s: element has no src: %w", selector, ErrChallengeNotFound)
	}
	if strings.HasPrefix(src, "data:") {
		return decodeDataURL(src)
	}

	target, err := h.page.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("capture %s: bad src %q: %w", selector, src, ErrChallengeNotFound)
	}
	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.ElementTimeout)
	defer cancel()
	resp, err := h.client.Do(reqCtx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     target.String(),
		Headers: http.Header{"Referer": {h.page.String()}},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("capture %s: %w", selector, ctx.Err())
		}
		return nil, fmt.Errorf("capture %s: %v: %w", selector, err, ErrChallengeNotFound)
	}
	if resp.StatusCode != http.StatusOK || len(resp.Body) == 0 {
		return nil, fmt.Errorf("capture %s: status %d: %w", selector, resp.StatusCode, ErrChallengeNotFound)
	}
	return resp.Body, nil
}

func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url: %w", ErrChallengeNotFound)
	}
	if !strings.HasSuffix(meta, ";base64") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %v: %w", err, ErrChallengeNotFound)
		}
		return []byte(unescaped), nil
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(img) == 0 {
		return nil, fmt.Errorf("decode data url: %w", ErrChallengeNotFound)
	}
	return img, nil
}

func (h *httpHandle) Fill(_ context.Context, selector, value string) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	el, err := h.find(selector)
	if err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	switch goquery.NodeName(el) {
	case "input", "textarea":
	default:
		return fmt.Errorf("fill %s: <%s> is not a text control: %w", selector, goquery.NodeName(el), ErrElementNotFound)
	}
	h.overrides[el.Get(0)] = value
	return nil
}

func (h *httpHandle) Select(_ context.Context, selector, option string, by OptionMatch) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	el, err := h.find(selector)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	if goquery.NodeName(el) != "select" {
		return fmt.Errorf("select %s: <%s> is not a select: %w", selector, goquery.NodeName(el), ErrElementNotFound)
	}

	var picked string
	var found bool
	el.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		value := optionValue(opt)
		candidate := value
		if by == MatchLabel {
			candidate = strings.TrimSpace(opt.Text())
		}
		if candidate == option {
			picked, found = value, true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("select %s: no option with %s %q: %w", selector, by, option, ErrElementNotFound)
	}
	h.overrides[el.Get(0)] = picked
	return nil
}

func (h *httpHandle) Click(ctx context.Context, selector string) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	el, err := h.find(selector)
	if err != nil {
		return fmt.Errorf("click: %w", err)
	}

	req, err := h.submission(el)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}

	reqCtx, cancel := h.bounded(ctx)
	defer cancel()
	resp, err := h.client.Do(reqCtx, req)
	if err != nil {
		return requestError(ctx, reqCtx, err, "submit "+req.URL)
	}
	h.logger.Debug("submitted form",
		logging.Field{Key: "method", Value: req.Method},
		logging.Field{Key: "url", Value: req.URL})
	return h.load(resp)
}

// WaitFor checks the loaded page. Pages fetched over plain HTTP do not change
// after loading, so an absent element is a timeout right away.
func (h *httpHandle) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	if _, err := h.find(selector); err != nil {
		return fmt.Errorf("wait for %s (%s): %w", selector, timeout, ErrNavigationTimeout)
	}
	return nil
}

func (h *httpHandle) Content(_ context.Context) (string, string, error) {
	if err := h.lock(); err != nil {
		return "", "", err
	}
	defer h.mu.Unlock()

	if h.page == nil {
		return "", "", errors.New("no page loaded")
	}
	return h.page.String(), h.body, nil
}

func (h *httpHandle) ExpectedAnswer() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expected, h.hasExpected
}

func (h *httpHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.doc, h.overrides = nil, nil
	return nil
}
