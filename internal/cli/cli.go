package cli

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// CLIArgs are the command-line overrides for a server run. A field only
// applies when IsSet reports its flag was given.
type CLIArgs struct {
	// Addr is the HTTP listen address.
	Addr string

	// CourtConfig is the path to the court YAML.
	CourtConfig string

	// DBPath is the audit database file.
	DBPath string

	// Backend names the browsing backend (chromedp|http).
	Backend string

	Headless       bool
	LocalChallenge bool

	// SessionTTL is how long an unanswered challenge stays valid.
	SessionTTL time.Duration

	LogLevel string

	// EnvFile is an optional dotenv file read before the environment.
	EnvFile string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string

	set map[string]bool
}

// IsSet reports whether the named flag appeared on the command line.
func (a *CLIArgs) IsSet(name string) bool {
	return a != nil && a.set[name]
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("courtfetch", flag.ContinueOnError)
	var (
		addr           = fs.String("addr", ":8000", "HTTP listen address")
		court          = fs.String("court", "configs/courts/example.yml", "Court configuration YAML")
		dbPath         = fs.String("db", "data/courtfetch.db", "Audit database path")
		backend        = fs.String("backend", "chromedp", "Browsing backend: chromedp|http")
		headless       = fs.Bool("headless", true, "Run the browser headless")
		localChallenge = fs.Bool("local-challenge", false, "Draw challenges locally (http backend only)")
		sessionTTL     = fs.Duration("session-ttl", 10*time.Minute, "How long an unanswered challenge stays valid")
		logLevel       = fs.String("log-level", "info", "Log level: debug|info|warn|error")
		envFile        = fs.String("env", "", "Optional dotenv file")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *sessionTTL < 0 {
		return nil, fmt.Errorf("-session-ttl must not be negative")
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return &CLIArgs{
		Addr:           *addr,
		CourtConfig:    *court,
		DBPath:         *dbPath,
		Backend:        *backend,
		Headless:       *headless,
		LocalChallenge: *localChallenge,
		SessionTTL:     *sessionTTL,
		LogLevel:       *logLevel,
		EnvFile:        *envFile,
		RawArgs:        args,
		set:            set,
	}, nil
}
