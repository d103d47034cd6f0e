package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raysh454/courtfetch/internal/audit"
	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/engine"
	"github.com/raysh454/courtfetch/internal/extract"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/utils"
	"github.com/raysh454/courtfetch/internal/webclient"
)

// Searcher is the part of the engine the API drives.
type Searcher interface {
	NewChallenge(ctx context.Context) (*engine.Challenge, error)
	SubmitSearch(ctx context.Context, req engine.SearchRequest) (*engine.SearchResult, error)
	Court() *courtcfg.CourtConfig
}

// AuditLog records searches and serves them back.
type AuditLog interface {
	BeginQuery(ctx context.Context, q audit.NewQuery) (string, error)
	RecordSuccess(ctx context.Context, queryID, finalURL, html string, rec *extract.CaseRecord) error
	RecordFailure(ctx context.Context, queryID, message string) error
	ListQueries(ctx context.Context, limit int) ([]audit.Query, error)
	GetQuery(ctx context.Context, id string) (*audit.Query, error)
	ListOrders(ctx context.Context, queryID string) ([]extract.OrderLink, error)
	GetRawResponse(ctx context.Context, queryID string) (*audit.RawResponse, error)
}

// Server is the HTTP API surface for case-status lookups.
type Server struct {
	cfg        Config
	searcher   Searcher
	audit      AuditLog
	downloader webclient.WebClient
	courtHost  *utils.URLTools
	router     chi.Router
	logger     logging.Logger
}

// NewServer wires the API routes. downloader fetches order documents for
// GET /download.
func NewServer(cfg Config, searcher Searcher, auditLog AuditLog, downloader webclient.WebClient, logger logging.Logger) (*Server, error) {
	if searcher == nil || auditLog == nil || downloader == nil {
		return nil, errors.New("server: searcher, audit log and downloader are required")
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}
	court := searcher.Court()
	if court == nil {
		return nil, errors.New("server: searcher has no court configuration")
	}
	host, err := utils.NewURLTools(court.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing court base url: %w", err)
	}

	s := &Server{
		cfg:        cfg.withDefaults(),
		searcher:   searcher,
		audit:      auditLog,
		downloader: downloader,
		courtHost:  host,
		router:     chi.NewRouter(),
		logger:     logger.With(logging.Field{Key: "component", Value: "server"}),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Options("/search", s.optionsHandler("POST"))
	r.Options("/captcha/new", s.optionsHandler("GET"))

	r.Get("/healthz", s.handleHealth)
	r.Get("/captcha/new", s.handleNewChallenge)
	r.Post("/search", s.handleSearch)
	r.Get("/download", s.handleDownload)

	r.Get("/queries", s.handleListQueries)
	r.Get("/queries/{queryID}", s.handleGetQuery)
	r.Get("/queries/{queryID}/page", s.handleGetQueryPage)

	s.swaggerRoutes(r)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// searches and downloads can take a while at the portal
		WriteTimeout: 2 * time.Minute,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeEngineError maps an engine failure to a status code and a message fit
// for a visitor.
func writeEngineError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, ErrorResponse{Error: engine.UserMessage(err), Kind: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, engine.ErrChallengeMismatch):
		return http.StatusUnprocessableEntity, "challenge_mismatch"
	case errors.Is(err, engine.ErrInvalidSearch):
		return http.StatusBadRequest, "invalid_search"
	case errors.Is(err, engine.ErrEngineStopped):
		return http.StatusServiceUnavailable, "engine_stopped"
	case errors.Is(err, browsing.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, browsing.ErrChallengeNotFound):
		return http.StatusBadGateway, "challenge_not_found"
	case errors.Is(err, browsing.ErrNavigationTimeout):
		return http.StatusGatewayTimeout, "navigation_timeout"
	case errors.Is(err, browsing.ErrElementNotFound):
		return http.StatusBadGateway, "element_not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "court": s.searcher.Court().Name})
}

// handleNewChallenge godoc
// @Summary Start a lookup session
// @Description Opens a portal session and returns its CAPTCHA image.
// @Tags search
// @Produce json
// @Success 200 {object} ChallengeResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /captcha/new [get]
func (s *Server) handleNewChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := s.searcher.NewChallenge(r.Context())
	if err != nil {
		s.logger.Warn("issuing challenge", logging.Field{Key: "error", Value: err.Error()})
		writeEngineError(w, err)
		return
	}
	s.logger.Info("issued challenge", logging.Field{Key: "session_id", Value: ch.SessionID})
	writeJSON(w, http.StatusOK, ChallengeResponse{
		SessionID:    ch.SessionID,
		ImageDataURL: ch.ImageDataURL,
		ExpiresAt:    ch.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleSearch godoc
// @Summary Submit a case search
// @Description Answers the session's challenge and returns the case record.
// @Tags search
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body SearchRequest true "Search"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := decodeSearch(r)
	if err != nil {
		s.logger.Warn("decoding search body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := engine.SearchRequest{
		SessionID:  strings.TrimSpace(body.SessionID),
		CaseType:   strings.TrimSpace(body.CaseType),
		CaseNumber: strings.TrimSpace(body.CaseNumber),
		FilingYear: strings.TrimSpace(body.FilingYear),
		Solution:   body.Captcha,
	}

	// the audit log is best effort; a lookup is never refused because of it
	queryID, err := s.audit.BeginQuery(r.Context(), audit.NewQuery{
		SessionID:  req.SessionID,
		Court:      s.searcher.Court().Name,
		CaseType:   req.CaseType,
		CaseNumber: req.CaseNumber,
		FilingYear: req.FilingYear,
	})
	if err != nil {
		s.logger.Error("logging query", logging.Field{Key: "error", Value: err.Error()})
	}

	res, err := s.searcher.SubmitSearch(r.Context(), req)
	if err != nil {
		s.logger.Warn("search failed",
			logging.Field{Key: "session_id", Value: req.SessionID},
			logging.Field{Key: "error", Value: err.Error()})
		if queryID != "" {
			// detached so a client hang-up still gets recorded
			if aerr := s.audit.RecordFailure(context.WithoutCancel(r.Context()), queryID, err.Error()); aerr != nil {
				s.logger.Error("recording failed query", logging.Field{Key: "error", Value: aerr.Error()})
			}
		}
		writeEngineError(w, err)
		return
	}

	if queryID != "" {
		if aerr := s.audit.RecordSuccess(context.WithoutCancel(r.Context()), queryID, res.FinalURL, res.HTML, res.Record); aerr != nil {
			s.logger.Error("recording query result", logging.Field{Key: "error", Value: aerr.Error()})
		}
	}
	s.logger.Info("search completed",
		logging.Field{Key: "query_id", Value: queryID},
		logging.Field{Key: "found", Value: res.Record.Found},
		logging.Field{Key: "orders", Value: len(res.Record.Orders)})
	writeJSON(w, http.StatusOK, SearchResponse{
		QueryID:         queryID,
		Record:          res.Record,
		MostRecentOrder: res.Record.MostRecent(),
		FinalURL:        res.FinalURL,
	})
}

func decodeSearch(r *http.Request) (SearchRequest, error) {
	var body SearchRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return body, fmt.Errorf("decode json: %w", err)
		}
		return body, nil
	}

	if err := r.ParseForm(); err != nil {
		return body, fmt.Errorf("parse form: %w", err)
	}
	body.SessionID = r.PostForm.Get("session_id")
	body.CaseType = r.PostForm.Get("case_type")
	body.CaseNumber = r.PostForm.Get("case_number")
	body.FilingYear = r.PostForm.Get("filing_year")
	body.Captcha = r.PostForm.Get("captcha")
	if body.Captcha == "" {
		body.Captcha = r.PostForm.Get("captcha_text")
	}
	return body, nil
}

// handleDownload godoc
// @Summary Download an order document
// @Description Proxies a document from the court's host. Falls back to a redirect when the proxy fails.
// @Tags orders
// @Produce application/pdf
// @Param url query string true "Document URL"
// @Success 200 {file} file
// @Failure 302 {string} string "redirect to the document"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /download [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	target, err := s.courtHost.Resolve(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	same, err := s.courtHost.DomainIsSameString(target)
	if err != nil || !same || !isHTTP(target) {
		s.logger.Warn("refusing download outside the court host", logging.Field{Key: "url", Value: target})
		writeError(w, http.StatusForbidden, "url is not on the court's host")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.DownloadTimeout)
	defer cancel()
	resp, err := s.downloader.Get(ctx, target)
	if err != nil || resp.StatusCode >= http.StatusBadRequest {
		fields := []logging.Field{{Key: "url", Value: target}}
		if err != nil {
			fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
		} else {
			fields = append(fields, logging.Field{Key: "status", Value: resp.StatusCode})
		}
		s.logger.Warn("proxy download failed, redirecting", fields...)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName(target)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, bytes.NewReader(resp.Body)); err != nil {
		s.logger.Warn("writing download", logging.Field{Key: "error", Value: err.Error()})
	}
}

func isHTTP(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func fileName(target string) string {
	u, err := utils.NewURLTools(target)
	if err != nil {
		return "order.pdf"
	}
	name := path.Base(u.URL.Path)
	if name == "." || name == "/" || name == "" {
		return "order.pdf"
	}
	return name
}

// handleListQueries godoc
// @Summary List recent searches
// @Tags history
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} audit.Query
// @Router /queries [get]
func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	qs, err := s.audit.ListQueries(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing queries", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not list queries")
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

// handleGetQuery godoc
// @Summary Get one search with its orders
// @Tags history
// @Produce json
// @Param queryID path string true "Query ID"
// @Success 200 {object} QueryDetails
// @Failure 404 {object} ErrorResponse
// @Router /queries/{queryID} [get]
func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "queryID")

	q, err := s.audit.GetQuery(r.Context(), id)
	if errors.Is(err, audit.ErrNotFound) {
		writeError(w, http.StatusNotFound, "query not found")
		return
	}
	if err != nil {
		s.logger.Warn("getting query", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not load query")
		return
	}
	orders, err := s.audit.ListOrders(r.Context(), id)
	if err != nil {
		s.logger.Warn("listing orders", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not load orders")
		return
	}
	writeJSON(w, http.StatusOK, QueryDetails{Query: q, Orders: orders})
}

// handleGetQueryPage godoc
// @Summary Raw portal page of a successful search
// @Tags history
// @Produce html
// @Param queryID path string true "Query ID"
// @Success 200 {string} string
// @Failure 404 {object} ErrorResponse
// @Router /queries/{queryID}/page [get]
func (s *Server) handleGetQueryPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "queryID")

	raw, err := s.audit.GetRawResponse(r.Context(), id)
	if errors.Is(err, audit.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no stored page for this query")
		return
	}
	if err != nil {
		s.logger.Warn("loading stored page", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not load page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Final-URL", raw.FinalURL)
	// the portal's markup is served inert
	w.Header().Set("Content-Security-Policy", "sandbox")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, raw.HTML)
}
