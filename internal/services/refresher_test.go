package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTarget struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeTarget) Refresh(ctx context.Context) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

type staticHealth bool

func (s staticHealth) IsOnline() bool { return bool(s) }

func TestRunSkipsWhileOffline(t *testing.T) {
	target := &fakeTarget{}
	r := NewRefresher(target, staticHealth(false), nil, RefresherConfig{Interval: time.Minute})

	info, err := r.Run(context.Background(), false)
	if err != nil || !info.Skipped {
		t.Fatalf("Run = %+v, %v", info, err)
	}
	if target.calls.Load() != 0 {
		t.Fatal("offline run reached the target")
	}

	if _, err := r.Run(context.Background(), true); err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if target.calls.Load() != 1 {
		t.Fatal("forced run should ignore the monitor")
	}
}

func TestRunRecordsFailure(t *testing.T) {
	target := &fakeTarget{err: errors.New("boom")}
	r := NewRefresher(target, nil, nil, RefresherConfig{Interval: time.Minute})

	if _, err := r.Run(context.Background(), false); err == nil {
		t.Fatal("expected error")
	}
	if last := r.Last(); last.Error != "boom" || last.Skipped {
		t.Fatalf("Last = %+v", last)
	}
}

func TestOverlappingScheduledRunIsDropped(t *testing.T) {
	target := &fakeTarget{block: make(chan struct{}), started: make(chan struct{}, 1)}
	r := NewRefresher(target, nil, nil, RefresherConfig{Interval: time.Minute})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(context.Background(), false)
	}()
	<-target.started

	info, err := r.Run(context.Background(), false)
	if err != nil || !info.Skipped {
		t.Fatalf("overlapping Run = %+v, %v", info, err)
	}
	close(target.block)
	<-done
	if target.calls.Load() != 1 {
		t.Fatalf("target called %d times", target.calls.Load())
	}
}

func TestRunHonoursTimeout(t *testing.T) {
	target := &fakeTarget{block: make(chan struct{})}
	r := NewRefresher(target, nil, nil, RefresherConfig{Interval: time.Minute, Timeout: 10 * time.Millisecond})

	if _, err := r.Run(context.Background(), false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	r := NewRefresher(&fakeTarget{}, nil, nil, RefresherConfig{Interval: time.Hour})
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
