// Package scheduler keeps the caches warm for every tracked ZIP by re-running
// the fetch pipeline on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the pass interval used when none is configured.
const DefaultInterval = 5 * time.Minute

// passConcurrency bounds how many ZIPs refresh at once so a large tracked
// set does not stampede the upstream APIs.
const passConcurrency = 4

// Refresher is the slice of the weather service the scheduler needs.
type Refresher interface {
	TrackedZIPs() []string
	Warm(ctx context.Context, zip string) error
}

// PassObserver receives the outcome of each completed refresh pass.
// *observability.Metrics satisfies it.
type PassObserver interface {
	ObserveRefreshPass(failedKeys int)
}

// Status is the scheduler lifecycle state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// Scheduler runs one refresh pass immediately on Start and then one per
// interval until Stop. A pass refreshes every tracked ZIP; individual
// failures are logged and counted but never abort the pass.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	observer  PassObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler. A nil observer disables pass metrics;
// a non-positive interval falls back to DefaultInterval.
func New(r Refresher, interval time.Duration, observer PassObserver) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		refresher: r,
		interval:  interval,
		observer:  observer,
	}
}

// Start transitions to running and kicks off the first pass without waiting
// for the first tick. Starting an already running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	slog.Info("refresh scheduler started", "interval", s.interval)
	go s.run(ctx, s.done)
}

// Stop transitions to stopped. An in-flight pass runs to completion; Stop
// blocks until the scheduler goroutine has exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	slog.Info("refresh scheduler stopped")
}

// Status reports whether the scheduler is currently running.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return StatusRunning
	}
	return StatusStopped
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// ctx only governs the ticker loop. Passes run on their own context so
	// Stop lets an in-flight pass finish instead of aborting its upstream
	// calls mid-fetch.
	s.pass(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(context.Background())
		}
	}
}

// pass refreshes every tracked ZIP concurrently. The pass itself never
// fails; per-ZIP errors are logged and surface only as a failure count.
func (s *Scheduler) pass(ctx context.Context) {
	zips := s.refresher.TrackedZIPs()
	if len(zips) == 0 {
		return
	}

	start := time.Now()
	var failed int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(passConcurrency)
	for _, zip := range zips {
		zip := zip
		g.Go(func() error {
			if err := s.refresher.Warm(gctx, zip); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				slog.Warn("refresh failed", "zip", zip, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	slog.Info("refresh pass complete",
		"zips", len(zips),
		"failed", failed,
		"duration", time.Since(start))
	if s.observer != nil {
		s.observer.ObserveRefreshPass(int(failed))
	}
}
