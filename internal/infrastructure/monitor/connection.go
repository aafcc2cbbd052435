package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything that can answer a health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the probes. A nil probe is reported as unreachable.
type Options struct {
	Host     Pinger
	Cache    Pinger
	Backend  string
	Entities func() int
	Interval time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Monitor polls the host and the local cache on a ticker.
type Monitor struct {
	host     Pinger
	cache    Pinger
	backend  string
	entities func() int

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	logger   *zap.Logger
}

func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Monitor{
		host:     opts.Host,
		cache:    opts.Cache,
		backend:  opts.Backend,
		entities: opts.Entities,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		logger:   opts.Logger.Named("monitor"),
	}
}

// Start probes once synchronously, then keeps probing in the background.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	m.Check(context.Background())
	go m.loop()
}

// Stop ends the background loop and waits for it.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.started.Load() {
		<-m.done
	}
}

// IsOnline reports whether the host answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Host
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Check probes every dependency now and stores the result.
func (m *Monitor) Check(ctx context.Context) Status {
	status := Status{
		Host:      m.probe(ctx, "host", m.host),
		Cache:     m.probe(ctx, "cache", m.cache),
		Backend:   m.backend,
		LastCheck: time.Now(),
	}
	if m.entities != nil {
		status.Entities = m.entities()
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Host != status.Host {
		m.logger.Info("host reachability changed", zap.Bool("online", status.Host))
	}
	return status
}

func (m *Monitor) probe(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		m.logger.Debug("probe failed", zap.String("target", name), zap.Error(err))
		return false
	}
	return true
}
