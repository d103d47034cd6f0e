package courtcfg_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raysh454/courtfetch/internal/courtcfg"
)

const validYAML = `
court_name: Test High Court
case_status_url: https://court.example/case-status
selectors:
  captcha_img: "#captcha-img"
  case_type_select: "#case_type"
  case_number_input: "#case_no"
  case_year_input: "#case_year"
  captcha_input: "#captcha"
  submit_button: "#search-btn"
  result_marker: "#case-result"
`

func TestParse_ValidAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := courtcfg.Parse([]byte(validYAML), courtcfg.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.BaseURL != "https://court.example" {
		t.Errorf("expected base url derived from portal origin, got %q", cfg.BaseURL)
	}
	if len(cfg.DocumentExtensions) != 1 || cfg.DocumentExtensions[0] != ".pdf" {
		t.Errorf("expected default document extensions, got %v", cfg.DocumentExtensions)
	}
	if cfg.Selectors.Declarative() {
		t.Error("no extraction selectors configured, expected heuristic mode")
	}
}

func TestParse_NormalizesExtensionsAndBaseURL(t *testing.T) {
	t.Parallel()
	raw := validYAML + `
base_url: "https://docs.court.example/"
document_extensions: ["PDF", ".Docx"]
`
	cfg, err := courtcfg.Parse([]byte(raw), courtcfg.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.BaseURL != "https://docs.court.example" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.DocumentExtensions[0] != ".pdf" || cfg.DocumentExtensions[1] != ".docx" {
		t.Errorf("unexpected extensions: %v", cfg.DocumentExtensions)
	}
}

func TestParse_BaseURLWithPathKeepsDirectory(t *testing.T) {
	t.Parallel()
	for _, base := range []string{"https://court.example/app", "https://court.example/app/", " https://court.example/app// "} {
		cfg, err := courtcfg.Parse([]byte(validYAML+"base_url: \""+base+"\"\n"), courtcfg.Options{})
		if err != nil {
			t.Fatalf("Parse(%q): %v", base, err)
		}
		if cfg.BaseURL != "https://court.example/app/" {
			t.Errorf("base %q: expected https://court.example/app/, got %q", base, cfg.BaseURL)
		}
	}
}

func TestParse_MissingRequiredKeys(t *testing.T) {
	t.Parallel()
	raw := `
case_status_url: "not a url"
selectors:
  orders_table_rows: "table.orders tr"
`
	_, err := courtcfg.Parse([]byte(raw), courtcfg.Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, courtcfg.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	var ce *courtcfg.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	msg := err.Error()
	for _, want := range []string{
		"case_status_url",
		"case_number_input",
		"case_year_input",
		"submit_button",
		"case_type_select",
		"captcha_img",
		"orders_table_rows and selectors.order_link",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected problem mentioning %q in %q", want, msg)
		}
	}
}

func TestParse_LocalChallengeDoesNotNeedCaptchaImage(t *testing.T) {
	t.Parallel()
	raw := `
case_status_url: https://court.example/
selectors:
  case_type_input: "#case_type"
  case_number_input: "#case_no"
  case_year_input: "#case_year"
  submit_button: "#go"
`
	if _, err := courtcfg.Parse([]byte(raw), courtcfg.Options{}); err == nil {
		t.Fatal("expected captcha_img to be required by default")
	}
	if _, err := courtcfg.Parse([]byte(raw), courtcfg.Options{LocalChallenge: true}); err != nil {
		t.Fatalf("expected local challenge config to validate, got %v", err)
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	t.Parallel()
	raw := validYAML + "  petitoner: \".pet\"\n"
	if _, err := courtcfg.Parse([]byte(raw), courtcfg.Options{}); !errors.Is(err, courtcfg.ErrInvalidConfig) {
		t.Fatalf("expected unknown selector key to be rejected, got %v", err)
	}
}

func TestSelectors_Declarative(t *testing.T) {
	t.Parallel()
	if (courtcfg.Selectors{}).Declarative() {
		t.Error("empty selectors should be heuristic")
	}
	if !(courtcfg.Selectors{Petitioner: ".pet"}).Declarative() {
		t.Error("petitioner selector should switch to declarative")
	}
	if !(courtcfg.Selectors{OrdersTableRows: "tr", OrderLink: "a"}).Declarative() {
		t.Error("orders selectors should switch to declarative")
	}
}

func TestLoad_ReportsPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "court.yml")
	if err := os.WriteFile(path, []byte("case_status_url: ftp://x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := courtcfg.Load(path, courtcfg.Options{})
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error mentioning %s, got %v", path, err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := courtcfg.Load(filepath.Join(t.TempDir(), "nope.yml"), courtcfg.Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, courtcfg.ErrInvalidConfig) {
		t.Error("a missing file is an I/O error, not a config error")
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	t.Parallel()
	paths, err := filepath.Glob(filepath.Join("..", "..", "configs", "courts", "*.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Skip("no shipped court configs")
	}
	for _, p := range paths {
		if _, err := courtcfg.Load(p, courtcfg.Options{}); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
}
