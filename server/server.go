package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caasmo/farmgate/config"
	"golang.org/x/sync/errgroup"
)

// Daemon is a background component started with the server and stopped
// on shutdown, e.g. the job scheduler.
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

type Server struct {
	configProvider *config.Provider
	handler        http.Handler
	logger         *slog.Logger
	reload         func() error
	daemons        []Daemon

	// exitFunc is replaced in tests
	exitFunc func(int)
}

// NewServer creates the server. reload is called on SIGHUP.
func NewServer(provider *config.Provider, handler http.Handler, logger *slog.Logger, reload func() error) *Server {
	return &Server{
		configProvider: provider,
		handler:        handler,
		logger:         logger,
		reload:         reload,
		exitFunc:       os.Exit,
	}
}

// AddDaemon registers a daemon. Daemons start in order after the
// listener is up and stop concurrently on shutdown.
func (s *Server) AddDaemon(d Daemon) {
	s.daemons = append(s.daemons, d)
}

// Run serves until SIGINT, SIGTERM or a fatal error, then shuts down
// gracefully and exits the process.
func (s *Server) Run() {
	cfg := s.configProvider.Get().Server

	// Signals are registered before anything starts.
	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(stopSignals)
	reloadSignals := make(chan os.Signal, 1)
	signal.Notify(reloadSignals, syscall.SIGHUP)
	defer signal.Stop(reloadSignals)

	s.logger.Info("Server configuration",
		"addr", cfg.Addr,
		"read_timeout", cfg.ReadTimeout,
		"read_header_timeout", cfg.ReadHeaderTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownGracefulTimeout,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.logger.Error("Failed to listen", "addr", cfg.Addr, "err", err)
		s.exitFunc(1)
		return
	}

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	var started []Daemon
	exitCode := 0
	for _, d := range s.daemons {
		if err := d.Start(); err != nil {
			s.logger.Error("Daemon failed to start", "daemon", d.Name(), "err", err)
			exitCode = 1
			break
		}
		started = append(started, d)
	}

	if exitCode == 0 {
	loop:
		for {
			select {
			case sig := <-stopSignals:
				s.logger.Info("Received shutdown signal - gracefully shutting down", "signal", sig.String())
				break loop
			case <-reloadSignals:
				s.logger.Info("Received SIGHUP - reloading configuration")
				if err := s.reload(); err != nil {
					s.logger.Error("Configuration reload failed, keeping the current one", "err", err)
				}
			case err := <-serverError:
				s.logger.Error("Server error - initiating shutdown", "err", err)
				exitCode = 1
				break loop
			}
		}
	}

	if err := s.shutdown(srv, started); err != nil {
		s.logger.Error("Error during shutdown", "err", err)
		exitCode = 1
	} else {
		s.logger.Info("All systems stopped gracefully")
	}
	s.exitFunc(exitCode)
}

func (s *Server) shutdown(srv *http.Server, daemons []Daemon) error {
	timeout := s.configProvider.Get().Server.ShutdownGracefulTimeout.Duration
	gracefulCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(gracefulCtx)
	})
	for _, d := range daemons {
		g.Go(func() error {
			s.logger.Info("Stopping daemon", "daemon", d.Name())
			if err := d.Stop(gracefulCtx); err != nil {
				s.logger.Error("Daemon stop error", "daemon", d.Name(), "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
