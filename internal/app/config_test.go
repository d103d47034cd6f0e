package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/courtfetch/internal/app"
	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/cli"
	"github.com/raysh454/courtfetch/internal/logging"
)

// ─── Defaults ──────────────────────────────────────────────────────────

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.BrowsingCfg.Backend != browsing.BackendChromedp || cfg.EngineCfg.SessionTTL != 10*time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Level() != logging.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.Level())
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	t.Parallel()
	cases := map[string]func(c *app.Config){
		"court path":       func(c *app.Config) { c.CourtConfigPath = " " },
		"db path":          func(c *app.Config) { c.DBPath = "" },
		"listen addr":      func(c *app.Config) { c.ServerCfg.ListenAddr = "" },
		"log level":        func(c *app.Config) { c.LogLevel = "loud" },
		"local+chromedp":   func(c *app.Config) { c.BrowsingCfg.LocalChallenge = true },
		"negative ttl":     func(c *app.Config) { c.EngineCfg.SessionTTL = -time.Second },
		"zero result wait": func(c *app.Config) { c.EngineCfg.ResultTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := app.DefaultConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// ─── Environment ───────────────────────────────────────────────────────

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("COURTFETCH_ADDR", "127.0.0.1:9100")
	t.Setenv("COURTFETCH_BACKEND", "http")
	t.Setenv("COURTFETCH_LOCAL_CHALLENGE", "true")
	t.Setenv("COURTFETCH_SESSION_TTL", "2m")
	t.Setenv("COURTFETCH_USER_AGENT", "test-agent")

	cfg, err := app.LoadConfig(writeEnvFile(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerCfg.ListenAddr != "127.0.0.1:9100" || cfg.BrowsingCfg.Backend != "http" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if !cfg.BrowsingCfg.LocalChallenge || cfg.EngineCfg.SessionTTL != 2*time.Minute {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.DownloadCfg.UserAgent != "test-agent" {
		t.Errorf("expected user agent shared with downloads, got %q", cfg.DownloadCfg.UserAgent)
	}
}

func TestLoadConfig_DotenvFile(t *testing.T) {
	key := "COURTFETCH_DB_PATH"
	t.Setenv(key, "") // registers restore
	os.Unsetenv(key)

	path := writeEnvFile(t, key+"=/var/lib/courtfetch/audit.db\n")
	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBPath != "/var/lib/courtfetch/audit.db" {
		t.Errorf("expected dotenv value, got %q", cfg.DBPath)
	}
}

func TestLoadConfig_ProcessEnvWinsOverDotenv(t *testing.T) {
	t.Setenv("COURTFETCH_COURT_CONFIG", "from-env.yml")

	cfg, err := app.LoadConfig(writeEnvFile(t, "COURTFETCH_COURT_CONFIG=from-file.yml\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CourtConfigPath != "from-env.yml" {
		t.Errorf("expected process env to win, got %q", cfg.CourtConfigPath)
	}
}

func TestLoadConfig_BadValues(t *testing.T) {
	t.Setenv("COURTFETCH_HEADLESS", "maybe")
	t.Setenv("COURTFETCH_RESULT_TIMEOUT", "soon")

	if _, err := app.LoadConfig(writeEnvFile(t, "")); err == nil {
		t.Fatal("expected error for unparseable values")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := app.LoadConfig(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatal("expected error for a named env file that does not exist")
	}
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ─── Flags ─────────────────────────────────────────────────────────────

func TestApplyArgs_OnlySetFlags(t *testing.T) {
	t.Parallel()
	args, err := cli.ParseArgs([]string{"-backend", "http", "-session-ttl", "30s", "-local-challenge"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := app.DefaultConfig()
	cfg.DBPath = "custom.db"
	cfg.ApplyArgs(args)

	if cfg.BrowsingCfg.Backend != "http" || cfg.EngineCfg.SessionTTL != 30*time.Second || !cfg.BrowsingCfg.LocalChallenge {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.DBPath != "custom.db" {
		t.Errorf("unset -db must not override, got %q", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}

	cfg.ApplyArgs(nil)
}
