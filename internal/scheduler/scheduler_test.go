package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"walletmon/internal/coordinator"
	"walletmon/internal/metrics/memory"
	"walletmon/internal/wallet"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	snap  coordinator.Snapshot
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (coordinator.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.snap, f.err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu    sync.Mutex
	snaps []coordinator.Snapshot
	err   error
}

func (f *fakeNotifier) SnapshotPublished(ctx context.Context, snap coordinator.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	refresher := &fakeRefresher{snap: coordinator.Snapshot{TotalTransactions: 3}}
	notifier := &fakeNotifier{}
	s := New(refresher, Config{Interval: time.Hour}, nil, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for refresher.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("refresh was not invoked on start")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.count())
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := New(&fakeRefresher{}, Config{Interval: time.Hour}, nil)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(ctx)

	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}
}

func TestScheduler_StopNotRunning(t *testing.T) {
	s := New(&fakeRefresher{}, Config{}, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestScheduler_ConcurrentStop(t *testing.T) {
	s := New(&fakeRefresher{}, Config{Interval: time.Hour}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Stop(context.Background()); err != nil {
				t.Errorf("Stop failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.IsRunning() {
		t.Error("scheduler still reported running after Stop")
	}
}

func TestScheduler_TickerInvokesRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	s := New(refresher, Config{Interval: 20 * time.Millisecond}, nil)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for refresher.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 refreshes, got %d", refresher.callCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler still reported running after Stop")
	}
}

func TestRunCycle_NotifierErrorNotFatal(t *testing.T) {
	refresher := &fakeRefresher{snap: coordinator.Snapshot{TotalTransactions: 1}}
	broken := &fakeNotifier{err: errors.New("broker down")}
	working := &fakeNotifier{}
	s := New(refresher, Config{}, nil, broken, working)

	snap, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if snap.TotalTransactions != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if working.count() != 1 {
		t.Error("later notifier skipped after earlier notifier error")
	}
}

func TestRunCycle_ReauthSignalCounted(t *testing.T) {
	authErr := &wallet.AuthError{StatusCode: 401}
	refresher := &fakeRefresher{err: errors.Join(coordinator.ErrReauthRequired, authErr)}
	notifier := &fakeNotifier{}
	collector := memory.New()
	s := New(refresher, Config{}, collector, notifier)

	// Every failing cycle re-raises the condition rather than degrading.
	for i := 0; i < 3; i++ {
		if _, err := s.RunCycle(context.Background()); !errors.Is(err, coordinator.ErrReauthRequired) {
			t.Fatalf("expected reauth error, got %v", err)
		}
	}

	if collector.ReauthSignals != 3 {
		t.Errorf("expected 3 reauth signals, got %d", collector.ReauthSignals)
	}
	if notifier.count() != 0 {
		t.Error("failed cycles must not notify")
	}
}
