package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/courtfetch/internal/audit"
	"github.com/raysh454/courtfetch/internal/browsing"
	"github.com/raysh454/courtfetch/internal/courtcfg"
	"github.com/raysh454/courtfetch/internal/engine"
	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/server"
	"github.com/raysh454/courtfetch/internal/webclient"
)

// Application is the global runtime state container. It owns the engine, the
// audit store and the HTTP server for one court.
type Application struct {
	Config *Config
	Court  *courtcfg.CourtConfig
	Logger logging.Logger

	Engine *engine.Engine
	Audit  *audit.Store
	Server *server.Server

	downloader *webclient.NetHTTPClient
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error

	// internal context for cancellation / lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApplication loads the court configuration and builds every component.
// Nothing runs until Start.
func NewApplication(cfg *Config, logger logging.Logger) (_ *Application, err error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("courtfetch")
	}

	court, err := courtcfg.Load(cfg.CourtConfigPath, courtcfg.Options{LocalChallenge: cfg.BrowsingCfg.LocalChallenge})
	if err != nil {
		return nil, err
	}

	// everything opened below is closed again if construction fails
	var opened closers
	defer func() {
		if err != nil {
			_ = opened.closeAll()
		}
	}()

	browsing.RegisterDefaultBackends()
	backend, err := browsing.NewBackend(cfg.BrowsingCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating browsing backend: %w", err)
	}
	opened = append(opened, backend)

	eng, err := engine.New(cfg.EngineCfg, court, backend, logger)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	store, err := audit.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}
	opened = append(opened, store)

	downloader, err := webclient.NewNetHTTPClient(cfg.DownloadCfg, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download client: %w", err)
	}
	opened = append(opened, downloader)

	srv, err := server.NewServer(cfg.ServerCfg, eng, store, downloader, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		Config:     cfg,
		Court:      court,
		Logger:     logger.With(logging.Field{Key: "component", Value: "app"}),
		Engine:     eng,
		Audit:      store,
		Server:     srv,
		downloader: downloader,
		serveErr:   make(chan error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// closers releases partially built components, newest first.
type closers []io.Closer

func (cs closers) closeAll() error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start starts the engine and begins serving HTTP. It returns once the
// listener is bound.
func (a *Application) Start() error {
	if a == nil {
		return errors.New("application is nil")
	}
	if err := a.Engine.Start(a.ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	a.httpServer = a.Server.HTTPServer()
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.httpServer.Addr, err)
	}
	a.listener = ln

	a.Logger.Info("application starting",
		logging.Field{Key: "court", Value: a.Court.Name},
		logging.Field{Key: "addr", Value: ln.Addr().String()},
		logging.Field{Key: "backend", Value: a.Config.BrowsingCfg.Backend})

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("http server stopped", logging.Field{Key: "error", Value: err.Error()})
			a.serveErr <- err
		}
		close(a.serveErr)
	}()
	return nil
}

// Addr is the bound listen address, available after Start.
func (a *Application) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// ServeErr delivers an HTTP server failure and is closed when serving ends.
func (a *Application) ServeErr() <-chan error {
	return a.serveErr
}

// Shutdown stops accepting requests, then retires every session and closes
// the stores. It is safe to call more than once.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.shutdownOnce.Do(func() {
		a.Logger.Info("application shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		var errs []error
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http server: %w", err))
			}
		}
		if err := a.Engine.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("engine: %w", err))
		}
		if err := a.downloader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("download client: %w", err))
		}
		if err := a.Audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit store: %w", err))
		}

		// cancel internal ctx to signal local components/tests
		a.cancel()
		a.shutdownErr = errors.Join(errs...)
	})
	return a.shutdownErr
}
