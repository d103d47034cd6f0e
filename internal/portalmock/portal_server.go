// Package portalmock serves a small court case-status portal: a search form
// guarded by an image challenge, a result page and order documents. It backs
// the end-to-end tests and local demos.
package portalmock

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/raysh454/courtfetch/internal/captcha"
	"github.com/raysh454/courtfetch/internal/logging"
)

const sessionCookie = "PORTALSESSID"

// visitor is the portal-side state behind one session cookie.
type visitor struct {
	code  string
	token string
}

// Server is the mock portal.
type Server struct {
	cfg    Config
	logger logging.Logger
	labels map[string]string // case type value -> label
	cases  map[string]Case

	mu       sync.Mutex
	visitors map[string]*visitor
	searches int
}

// New creates a mock portal.
func New(cfg Config, logger logging.Logger) *Server {
	cases := cfg.Cases
	if cases == nil {
		cases = SampleCases()
	}
	byKey := make(map[string]Case, len(cases))
	for _, c := range cases {
		byKey[caseKey(c.Type, c.Number, c.Year)] = c
	}
	labels := map[string]string{}
	for _, ct := range CaseTypes() {
		labels[ct.Value] = ct.Label
	}

	return &Server{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "portalmock"}),
		labels:   labels,
		cases:    byKey,
		visitors: map[string]*visitor{},
	}
}

func caseKey(caseType, number, year string) string {
	return caseType + "|" + strings.TrimLeft(number, "0") + "|" + year
}

// Handler returns the portal's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /case-status", s.formHandler)
	mux.HandleFunc("POST /case-status", s.searchHandler)
	mux.HandleFunc("GET /captcha.png", s.captchaHandler)
	mux.HandleFunc("GET /orders/{file}", s.orderHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/case-status", http.StatusFound)
	})
	return mux
}

// Start serves the portal on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("mock portal starting", logging.Field{Key: "addr", Value: addr})
	return http.ListenAndServe(addr, s.Handler())
}

// Searches returns how many searches passed the challenge.
func (s *Server) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

// Code returns the current challenge answer for the session id, so tests can
// play the human.
func (s *Server) Code(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visitors[sessionID]
	if !ok || v.code == "" {
		return "", false
	}
	return v.code, true
}

// Sessions returns the ids of every visitor seen.
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.visitors))
	for id := range s.visitors {
		out = append(out, id)
	}
	return out
}

func (s *Server) newCode() (string, error) {
	if s.cfg.FixedCode != "" {
		return s.cfg.FixedCode, nil
	}
	return captcha.NewCode(captcha.DefaultLength)
}

// visit returns the visitor for the request, minting a session cookie for
// new ones.
func (s *Server) visit(w http.ResponseWriter, r *http.Request) (string, *visitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, err := r.Cookie(sessionCookie); err == nil {
		if v, ok := s.visitors[c.Value]; ok {
			return c.Value, v
		}
	}
	id := uuid.NewString()
	v := &visitor{token: uuid.NewString()}
	s.visitors[id] = v
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	return id, v
}

type formData struct {
	Error     string
	Token     string
	Nonce     string
	CaseTypes []CaseType
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, message string) {
	_, v := s.visit(w, r)
	code, err := s.newCode()
	if err != nil {
		http.Error(w, "challenge unavailable", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	v.code = code
	token := v.token
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = searchPage.Execute(w, formData{
		Error:     message,
		Token:     token,
		Nonce:     uuid.NewString()[:8],
		CaseTypes: CaseTypes(),
	})
}

func (s *Server) formHandler(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, http.StatusOK, "")
}

func (s *Server) captchaHandler(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}
	code, ok := s.Code(c.Value)
	if !ok {
		http.Error(w, "no challenge", http.StatusNotFound)
		return
	}
	img, err := captcha.Render(code)
	if err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

type resultData struct {
	Label string
	Case  *Case
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		s.renderForm(w, r, http.StatusForbidden, "Your session has expired. Please try again.")
		return
	}

	s.mu.Lock()
	v, ok := s.visitors[c.Value]
	var valid bool
	if ok {
		// the code is single use whatever the outcome
		valid = v.code != "" && r.PostForm.Get("captcha") == v.code && r.PostForm.Get("token") == v.token
		v.code = ""
		if valid {
			s.searches++
		}
	}
	s.mu.Unlock()

	if !valid {
		s.logger.Info("rejected search", logging.Field{Key: "session", Value: c.Value})
		s.renderForm(w, r, http.StatusOK, "Invalid verification code. Please try again.")
		return
	}

	caseType := r.PostForm.Get("case_type")
	data := resultData{Label: s.labels[caseType]}
	if found, ok := s.cases[caseKey(caseType, r.PostForm.Get("case_no"), r.PostForm.Get("case_year"))]; ok {
		data.Case = &found
	}
	s.logger.Info("served search",
		logging.Field{Key: "case_type", Value: caseType},
		logging.Field{Key: "found", Value: data.Case != nil})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = resultPage.Execute(w, data)
}

// orderHandler serves a placeholder PDF for any order on file.
func (s *Server) orderHandler(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	var title string
	for _, c := range s.cases {
		for _, o := range c.Orders {
			if o.File == file {
				title = o.Title
			}
		}
	}
	if title == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file))
	_, _ = fmt.Fprintf(w, "%%PDF-1.4\n%% %s\n%%%%EOF\n", title)
}
