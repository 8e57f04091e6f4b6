package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubRefresher struct {
	mu    sync.Mutex
	zips  []string
	fail  map[string]bool
	calls map[string]int

	gate chan struct{} // when non-nil, Warm blocks until the gate closes
}

func (r *stubRefresher) TrackedZIPs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.zips...)
}

func (r *stubRefresher) Warm(ctx context.Context, zip string) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[zip]++
	if r.fail[zip] {
		return errors.New("geocoding failed")
	}
	return nil
}

func (r *stubRefresher) callCount(zip string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[zip]
}

func (r *stubRefresher) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

type recordingObserver struct {
	mu     sync.Mutex
	passes []int
}

func (o *recordingObserver) ObserveRefreshPass(failedKeys int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.passes = append(o.passes, failedKeys)
}

func (o *recordingObserver) snapshot() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.passes...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestPassToleratesPerZIPFailures(t *testing.T) {
	r := &stubRefresher{
		zips: []string{"75454", "99999"},
		fail: map[string]bool{"99999": true},
	}
	obs := &recordingObserver{}
	s := New(r, time.Hour, obs)

	s.pass(context.Background())

	if got := r.callCount("75454"); got != 1 {
		t.Errorf("75454 refreshed %d times, want 1", got)
	}
	if got := r.callCount("99999"); got != 1 {
		t.Errorf("99999 refreshed %d times, want 1", got)
	}
	if passes := obs.snapshot(); len(passes) != 1 || passes[0] != 1 {
		t.Errorf("observer recorded %v, want one pass with 1 failure", passes)
	}
}

func TestPassSkipsEmptyTrackedSet(t *testing.T) {
	obs := &recordingObserver{}
	s := New(&stubRefresher{}, time.Hour, obs)

	s.pass(context.Background())

	if passes := obs.snapshot(); len(passes) != 0 {
		t.Errorf("observer recorded %v, want no passes", passes)
	}
}

func TestStartRunsImmediatePass(t *testing.T) {
	r := &stubRefresher{zips: []string{"75454"}}
	s := New(r, time.Hour, nil)
	defer s.Stop()

	s.Start()
	waitFor(t, func() bool { return r.callCount("75454") == 1 })
}

func TestStatusTransitions(t *testing.T) {
	s := New(&stubRefresher{}, time.Hour, nil)

	if got := s.Status(); got != StatusStopped {
		t.Fatalf("Status() = %q before Start, want %q", got, StatusStopped)
	}
	s.Start()
	if got := s.Status(); got != StatusRunning {
		t.Fatalf("Status() = %q after Start, want %q", got, StatusRunning)
	}
	s.Stop()
	if got := s.Status(); got != StatusStopped {
		t.Fatalf("Status() = %q after Stop, want %q", got, StatusStopped)
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	r := &stubRefresher{zips: []string{"75454"}}
	s := New(r, time.Hour, nil)
	defer s.Stop()

	s.Start()
	s.Start()
	waitFor(t, func() bool { return r.callCount("75454") >= 1 })

	// A second goroutine would have produced a second immediate pass.
	time.Sleep(50 * time.Millisecond)
	if got := r.totalCalls(); got != 1 {
		t.Errorf("total refresh calls = %d, want 1", got)
	}
}

func TestStopWhileStoppedIsNoop(t *testing.T) {
	s := New(&stubRefresher{}, time.Hour, nil)
	s.Stop()
	s.Stop()
}

func TestStopWaitsForInFlightPass(t *testing.T) {
	gate := make(chan struct{})
	r := &stubRefresher{zips: []string{"75454"}, gate: gate}
	s := New(r, time.Hour, nil)

	s.Start()
	waitFor(t, func() bool { return s.Status() == StatusRunning })

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a pass was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the pass finished")
	}
	if got := r.callCount("75454"); got != 1 {
		t.Errorf("in-flight refresh ran %d times, want 1", got)
	}
}

// ctxRefresher blocks in Warm until released and fails if the pass context
// is cancelled out from under it.
type ctxRefresher struct {
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	warmErr error
}

func (r *ctxRefresher) TrackedZIPs() []string { return []string{"75454"} }

func (r *ctxRefresher) Warm(ctx context.Context, zip string) error {
	close(r.started)
	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.warmErr = ctx.Err()
		r.mu.Unlock()
		return ctx.Err()
	case <-r.release:
		return nil
	}
}

func TestStopDoesNotCancelInFlightWarm(t *testing.T) {
	r := &ctxRefresher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(r, time.Hour, nil)

	s.Start()
	<-r.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Give Stop time to cancel; the in-flight Warm must keep running.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("Stop returned while the pass was still in flight")
	default:
	}

	close(r.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the pass finished")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.warmErr != nil {
		t.Fatalf("in-flight refresh was cancelled by Stop: %v", r.warmErr)
	}
}

func TestTickerRunsSubsequentPasses(t *testing.T) {
	r := &stubRefresher{zips: []string{"75454"}}
	s := New(r, 20*time.Millisecond, nil)
	defer s.Stop()

	s.Start()
	waitFor(t, func() bool { return r.callCount("75454") >= 3 })
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&stubRefresher{}, 0, nil)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
