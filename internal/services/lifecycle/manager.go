// Package lifecycle starts the daemon's background services and stops them in reverse
// order on shutdown.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

// ServiceFunc runs until ctx is cancelled. Returning context.Canceled is a clean exit.
type ServiceFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager owns the root context of the daemon. Services started with Go share it; the
// first service to fail cancels it for all of them.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	gctx   context.Context

	mu    sync.Mutex
	hooks []hook
	done  bool
}

// New creates a lifecycle manager with the desired shutdown timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &Manager{
		timeout: timeout,
		logger:  logger.Named("lifecycle"),
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		gctx:    gctx,
	}
}

// Context is cancelled on a termination signal, on Stop, or when a service fails.
func (m *Manager) Context() context.Context {
	return m.gctx
}

// Stop cancels the root context.
func (m *Manager) Stop() {
	m.cancel()
}

// Register adds a shutdown hook. Hooks are executed in reverse order.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Go runs a long-lived service on the shared context.
func (m *Manager) Go(name string, fn ServiceFunc) {
	m.group.Go(func() error {
		m.logger.Debug("service started", zap.String("component", name))
		err := fn(m.gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("service failed", zap.String("component", name), zap.Error(err))
			return err
		}
		m.logger.Debug("service exited", zap.String("component", name))
		return nil
	})
}

// Wait blocks until the context is cancelled, then shuts down and returns the first
// service error combined with any hook errors.
func (m *Manager) Wait() error {
	<-m.gctx.Done()
	shutdownErr := m.Shutdown(context.Background())
	return multierr.Append(m.group.Wait(), shutdownErr)
}

// Shutdown executes all registered hooks once, respecting the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	m.done = true
	m.cancel()

	var result error
	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = multierr.Append(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}
	return result
}

// Listen cancels the root context on the first termination signal.
func (m *Manager) Listen() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			m.cancel()
		case <-m.ctx.Done():
		}
	}()
}
