package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Refreshable is the collection owner the refresher drives.
type Refreshable interface {
	Refresh(ctx context.Context) error
}

// RefresherConfig controls how often the host listing is re-fetched.
type RefresherConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// RunInfo describes the most recent refresh attempt.
type RunInfo struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Skipped   bool          `json:"skipped"`
	Error     string        `json:"error,omitempty"`
}

// Refresher periodically re-fetches the host listing. At most one refresh runs at a
// time; scheduled ticks that find one in flight are dropped.
type Refresher struct {
	target  Refreshable
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     RefresherConfig

	running sync.Mutex
	mu      sync.RWMutex
	last    RunInfo
}

func NewRefresher(target Refreshable, monitor ConnectionHealth, logger *zap.Logger, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Refresher{
		target:  target,
		monitor: monitor,
		logger:  logger.Named("refresher"),
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = r.cron.AddFunc(schedule, func() {
		if _, err := r.Run(context.Background(), false); err != nil {
			r.logger.Warn("scheduled refresh failed", zap.Error(err))
		}
	})

	return r
}

// Start launches the cron scheduler.
func (r *Refresher) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("refresher started", zap.Duration("interval", r.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (r *Refresher) Stop(ctx context.Context) error {
	if r == nil || r.cron == nil {
		return nil
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.logger.Info("refresher stopped")
	return nil
}

// Run refreshes now. Unless force is set, the run is skipped while the host is
// offline. A run that finds another in flight waits for it and reports it as skipped.
func (r *Refresher) Run(ctx context.Context, force bool) (RunInfo, error) {
	if !force && r.monitor != nil && !r.monitor.IsOnline() {
		r.logger.Debug("skipping refresh (offline)")
		info := RunInfo{StartedAt: time.Now(), Skipped: true}
		r.record(info)
		return info, nil
	}
	if !r.running.TryLock() {
		if !force {
			return RunInfo{StartedAt: time.Now(), Skipped: true}, nil
		}
		r.running.Lock()
	}
	defer r.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	info := RunInfo{StartedAt: time.Now()}
	err := r.target.Refresh(ctx)
	info.Duration = time.Since(info.StartedAt)
	if err != nil {
		info.Error = err.Error()
	}
	r.record(info)
	r.logger.Debug("refresh finished", zap.Duration("duration", info.Duration), zap.Error(err))
	return info, err
}

// Last returns the most recent run.
func (r *Refresher) Last() RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *Refresher) record(info RunInfo) {
	r.mu.Lock()
	r.last = info
	r.mu.Unlock()
}
