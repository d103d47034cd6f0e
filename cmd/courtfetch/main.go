// Command courtfetch serves case-status lookups for one court portal.
// Usage: go run ./cmd/courtfetch -court configs/courts/example.yml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/courtfetch/internal/app"
	"github.com/raysh454/courtfetch/internal/cli"
	"github.com/raysh454/courtfetch/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "courtfetch:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}

	var envFiles []string
	if args.EnvFile != "" {
		envFiles = append(envFiles, args.EnvFile)
	}
	cfg, err := app.LoadConfig(envFiles...)
	if err != nil {
		return err
	}
	cfg.ApplyArgs(args)

	logger := logging.NewLogger(os.Stdout, "courtfetch", cfg.Level())

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(); err != nil {
		_ = application.Shutdown(context.Background())
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-application.ServeErr():
		if ok {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
	return serveErr
}
