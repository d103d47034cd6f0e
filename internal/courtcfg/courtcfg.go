// Package courtcfg loads and validates per-court portal configuration: where the
// case-status form lives, how its controls are addressed, and (optionally) how the
// result page is mapped into a case record.
package courtcfg

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("invalid court configuration")

// ConfigError reports every problem found in a court configuration.
type ConfigError struct {
	Source   string
	Problems []string
}

func (e *ConfigError) Error() string {
	src := e.Source
	if src == "" {
		src = "court config"
	}
	return fmt.Sprintf("%s: %s", src, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Selectors addresses portal controls and, optionally, result page fields.
// All values are CSS selectors.
type Selectors struct {
	CaptchaImage    string `yaml:"captcha_img"`
	CaseTypeSelect  string `yaml:"case_type_select"`
	CaseTypeInput   string `yaml:"case_type_input"`
	CaseNumberInput string `yaml:"case_number_input"`
	CaseYearInput   string `yaml:"case_year_input"`
	CaptchaInput    string `yaml:"captcha_input"`
	SubmitButton    string `yaml:"submit_button"`
	ResultMarker    string `yaml:"result_marker"`

	Petitioner      string `yaml:"petitioner"`
	Respondent      string `yaml:"respondent"`
	FilingDate      string `yaml:"filing_date"`
	NextHearingDate string `yaml:"next_hearing_date"`
	OrdersTableRows string `yaml:"orders_table_rows"`
	OrderLink       string `yaml:"order_link"`
	OrderDate       string `yaml:"order_date"`
}

// Declarative reports whether any result-page selector is configured, which
// switches extraction from the heuristic table scan to selector lookups.
func (s Selectors) Declarative() bool {
	return s.Petitioner != "" || s.Respondent != "" || s.FilingDate != "" ||
		s.NextHearingDate != "" || s.OrdersTableRows != ""
}

// CourtConfig is the parsed court configuration, consumed read-only.
type CourtConfig struct {
	Name               string    `yaml:"court_name"`
	PortalURL          string    `yaml:"case_status_url"`
	BaseURL            string    `yaml:"base_url"`
	DocumentExtensions []string  `yaml:"document_extensions"`
	Selectors          Selectors `yaml:"selectors"`
}

// DefaultDocumentExtensions are used when a configuration lists none.
var DefaultDocumentExtensions = []string{".pdf"}

// Options tunes validation to how the engine will run.
type Options struct {
	// LocalChallenge means the backend draws its own challenge, so no
	// captcha image selector is needed.
	LocalChallenge bool
}

// Load reads a YAML court configuration from path, applies defaults and validates it.
func Load(path string, opts Options) (*CourtConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read court config %s: %w", path, err)
	}
	cfg, err := Parse(raw, opts)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Source = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML bytes into a validated CourtConfig. Unknown keys are rejected
// so that typos in selector names surface at startup.
func Parse(raw []byte, opts Options) (*CourtConfig, error) {
	var cfg CourtConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Problems: []string{"decode yaml: " + err.Error()}}
	}
	if err := cfg.Normalize(opts); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims values, fills defaults (base URL from the portal origin, document
// extensions) and validates the result. A base URL with a path always ends in
// "/" so relative links resolve beneath it.
func (c *CourtConfig) Normalize(opts Options) error {
	c.PortalURL = strings.TrimSpace(c.PortalURL)
	c.BaseURL = normalizeBaseURL(c.BaseURL)
	if c.BaseURL == "" {
		if u, err := url.Parse(c.PortalURL); err == nil && u.Host != "" {
			c.BaseURL = u.Scheme + "://" + u.Host
		}
	}
	if len(c.DocumentExtensions) == 0 {
		c.DocumentExtensions = append([]string(nil), DefaultDocumentExtensions...)
	}
	for i, ext := range c.DocumentExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.DocumentExtensions[i] = ext
	}
	return c.Validate(opts)
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	u.Path += "/"
	u.RawPath = ""
	return u.String()
}

// Validate checks that the configuration can drive a search.
func (c *CourtConfig) Validate(opts Options) error {
	var problems []string
	if u, err := url.Parse(c.PortalURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		problems = append(problems, "case_status_url must be an absolute http(s) URL")
	}
	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
			problems = append(problems, "base_url must be an absolute URL")
		}
	}

	s := c.Selectors
	required := []struct{ key, val string }{
		{"case_number_input", s.CaseNumberInput},
		{"case_year_input", s.CaseYearInput},
		{"submit_button", s.SubmitButton},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			problems = append(problems, "selectors."+r.key+" is required")
		}
	}
	if s.CaseTypeSelect == "" && s.CaseTypeInput == "" {
		problems = append(problems, "one of selectors.case_type_select or selectors.case_type_input is required")
	}
	if s.CaptchaImage == "" && !opts.LocalChallenge {
		problems = append(problems, "selectors.captcha_img is required unless challenges are generated locally")
	}
	if (s.OrdersTableRows == "") != (s.OrderLink == "") {
		problems = append(problems, "selectors.orders_table_rows and selectors.order_link must be set together")
	}
	if s.OrderDate != "" && s.OrdersTableRows == "" {
		problems = append(problems, "selectors.order_date requires selectors.orders_table_rows")
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
