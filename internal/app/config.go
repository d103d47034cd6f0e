package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/cli"
	"github.com/raysh454/courtfetch/internal/engine"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/server"
	"github.com/raysh454/courtfetch/internal/webclient"
)

// EnvPrefix prefixes every environment variable LoadConfig reads.
const EnvPrefix = "COURTFETCH_"

// Config is the runtime configuration for one court portal.
type Config struct {
	// CourtConfigPath is the court YAML describing the portal.
	CourtConfigPath string

	// DBPath is the sqlite file holding the audit log.
	DBPath string

	LogLevel string

	ServerCfg   server.Config
	BrowsingCfg browsing.Config
	EngineCfg   engine.Config

	// DownloadCfg configures the client proxying order documents.
	DownloadCfg webclient.Config
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		CourtConfigPath: "configs/courts/example.yml",
		DBPath:          "data/courtfetch.db",
		LogLevel:        "info",
		ServerCfg:       server.DefaultConfig(),
		BrowsingCfg:     browsing.DefaultConfig(),
		EngineCfg:       engine.DefaultConfig(),
		DownloadCfg: webclient.Config{
			Timeout: 60 * time.Second,
		},
	}
}

// LoadConfig loads dotenv files (".env" when none are named, skipped when
// absent) and overlays COURTFETCH_* variables on the defaults. Variables
// already in the environment win over dotenv values.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	cfg := DefaultConfig()
	var errs []error

	cfg.ServerCfg.ListenAddr = getEnv("ADDR", cfg.ServerCfg.ListenAddr)
	cfg.CourtConfigPath = getEnv("COURT_CONFIG", cfg.CourtConfigPath)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.BrowsingCfg.Backend = getEnv("BACKEND", cfg.BrowsingCfg.Backend)
	cfg.BrowsingCfg.ExecPath = getEnv("CHROME_PATH", cfg.BrowsingCfg.ExecPath)
	cfg.BrowsingCfg.Headless = getEnvBool("HEADLESS", cfg.BrowsingCfg.Headless, &errs)
	cfg.BrowsingCfg.LocalChallenge = getEnvBool("LOCAL_CHALLENGE", cfg.BrowsingCfg.LocalChallenge, &errs)
	cfg.BrowsingCfg.WebClient.UserAgent = getEnv("USER_AGENT", cfg.BrowsingCfg.WebClient.UserAgent)
	cfg.DownloadCfg.UserAgent = cfg.BrowsingCfg.WebClient.UserAgent

	cfg.EngineCfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.EngineCfg.SessionTTL, &errs)
	cfg.EngineCfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", cfg.EngineCfg.SweepInterval, &errs)
	cfg.EngineCfg.ResultTimeout = getEnvDuration("RESULT_TIMEOUT", cfg.EngineCfg.ResultTimeout, &errs)
	cfg.ServerCfg.DownloadTimeout = getEnvDuration("DOWNLOAD_TIMEOUT", cfg.ServerCfg.DownloadTimeout, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// ApplyArgs overlays the flags that were given on the command line.
func (c *Config) ApplyArgs(args *cli.CLIArgs) {
	if args == nil {
		return
	}
	if args.IsSet("addr") {
		c.ServerCfg.ListenAddr = args.Addr
	}
	if args.IsSet("court") {
		c.CourtConfigPath = args.CourtConfig
	}
	if args.IsSet("db") {
		c.DBPath = args.DBPath
	}
	if args.IsSet("backend") {
		c.BrowsingCfg.Backend = args.Backend
	}
	if args.IsSet("headless") {
		c.BrowsingCfg.Headless = args.Headless
	}
	if args.IsSet("local-challenge") {
		c.BrowsingCfg.LocalChallenge = args.LocalChallenge
	}
	if args.IsSet("session-ttl") {
		c.EngineCfg.SessionTTL = args.SessionTTL
	}
	if args.IsSet("log-level") {
		c.LogLevel = args.LogLevel
	}
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.CourtConfigPath) == "" {
		errs = append(errs, errors.New("court config path is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if strings.TrimSpace(c.ServerCfg.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	backend := strings.ToLower(strings.TrimSpace(c.BrowsingCfg.Backend))
	if backend == browsing.BackendChromedp && c.BrowsingCfg.LocalChallenge {
		errs = append(errs, errors.New("local challenges need the http backend"))
	}
	if err := c.EngineCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level is the parsed log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(EnvPrefix + key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return fallback
	}
	return d
}
