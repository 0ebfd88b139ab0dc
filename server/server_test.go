package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/caasmo/farmgate/config"
)

const waitTimeout = 500 * time.Millisecond

type fakeDaemon struct {
	name     string
	startErr error
	stopErr  error
	started  chan struct{}
	stopped  chan struct{}
}

func newFakeDaemon(name string) *fakeDaemon {
	return &fakeDaemon{
		name:    name,
		started: make(chan struct{}, 1),
		stopped: make(chan struct{}, 1),
	}
}

func (d *fakeDaemon) Name() string { return d.name }

func (d *fakeDaemon) Start() error {
	d.started <- struct{}{}
	return d.startErr
}

func (d *fakeDaemon) Stop(ctx context.Context) error {
	d.stopped <- struct{}{}
	return d.stopErr
}

func newTestServer(t *testing.T, addr string, reload func() error) *Server {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.Addr = addr
	cfg.Server.ShutdownGracefulTimeout.Duration = 200 * time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if reload == nil {
		reload = func() error { return nil }
	}
	return NewServer(config.NewProvider(cfg), handler, logger, reload)
}

// start runs s in the background and returns the channel receiving its
// exit code.
func start(s *Server) <-chan int {
	exit := make(chan int, 1)
	s.exitFunc = func(code int) { exit <- code }
	go s.Run()
	return exit
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func waitExit(t *testing.T, exit <-chan int) int {
	t.Helper()
	select {
	case code := <-exit:
		return code
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the server to exit")
		return -1
	}
}

func signalSelf(t *testing.T, sig syscall.Signal) {
	t.Helper()
	if err := syscall.Kill(syscall.Getpid(), sig); err != nil {
		t.Fatalf("failed to send %v: %v", sig, err)
	}
}

func TestServer_Run_FullLifecycle(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:0", nil)
	scheduler := newFakeDaemon("scheduler")
	s.AddDaemon(scheduler)

	exit := start(s)
	waitFor(t, scheduler.started, "the daemon to start")

	signalSelf(t, syscall.SIGINT)

	waitFor(t, scheduler.stopped, "the daemon to stop")
	if code := waitExit(t, exit); code != 0 {
		t.Errorf("exit code = %d, want 0 for a graceful shutdown", code)
	}
}

func TestServer_Run_DaemonStartFailure(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:0", nil)
	ok := newFakeDaemon("scheduler")
	failing := newFakeDaemon("broken")
	failing.startErr = errors.New("startup failed")
	s.AddDaemon(ok)
	s.AddDaemon(failing)

	exit := start(s)

	waitFor(t, ok.started, "the first daemon to start")
	waitFor(t, failing.started, "the second daemon start attempt")
	waitFor(t, ok.stopped, "the started daemon to be stopped")
	if code := waitExit(t, exit); code == 0 {
		t.Error("exit code = 0 after a daemon failed to start")
	}
	select {
	case <-failing.stopped:
		t.Error("a daemon that failed to start was stopped")
	default:
	}
}

func TestServer_Run_DaemonStopFailure(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:0", nil)
	d := newFakeDaemon("scheduler")
	d.stopErr = errors.New("jobs still running")
	s.AddDaemon(d)

	exit := start(s)
	waitFor(t, d.started, "the daemon to start")
	signalSelf(t, syscall.SIGTERM)

	if code := waitExit(t, exit); code != 1 {
		t.Errorf("exit code = %d, want 1 when a daemon fails to stop", code)
	}
}

func TestServer_Run_ListenFailure(t *testing.T) {
	s := newTestServer(t, "127.0.0.1:99999", nil)
	d := newFakeDaemon("scheduler")
	s.AddDaemon(d)

	if code := waitExit(t, start(s)); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	select {
	case <-d.started:
		t.Error("daemon started without a listener")
	default:
	}
}

func TestServer_Run_HandlesSIGHUP(t *testing.T) {
	testCases := []struct {
		name      string
		reloadErr error
	}{
		{name: "reload succeeds"},
		{name: "reload fails", reloadErr: errors.New("invalid config")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reloaded := make(chan struct{}, 1)
			s := newTestServer(t, "127.0.0.1:0", func() error {
				reloaded <- struct{}{}
				return tc.reloadErr
			})
			d := newFakeDaemon("scheduler")
			s.AddDaemon(d)

			exit := start(s)
			waitFor(t, d.started, "the daemon to start")

			signalSelf(t, syscall.SIGHUP)
			waitFor(t, reloaded, "the reload func")

			select {
			case code := <-exit:
				t.Fatalf("server exited with code %d after SIGHUP", code)
			case <-time.After(20 * time.Millisecond):
			}

			signalSelf(t, syscall.SIGINT)
			if code := waitExit(t, exit); code != 0 {
				t.Errorf("exit code = %d, want 0", code)
			}
		})
	}
}
