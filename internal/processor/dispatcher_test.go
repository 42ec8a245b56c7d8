package processor

import (
	"account_onboarding/pkg/metrics"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_ScheduleDoesNotBlockCaller(t *testing.T) {
	d := NewDispatcher(1, nil, nil)
	release := make(chan struct{})

	for i := 0; i < 5; i++ {
		done := make(chan error, 1)
		go func() {
			done <- d.Schedule(Task{Name: "blocked", Run: func(ctx context.Context) error {
				<-release
				return nil
			}})
		}()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected schedule error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Schedule blocked the caller")
		}
	}

	close(release)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	const workers = 3
	d := NewDispatcher(workers, nil, nil)

	var running, peak int32
	for i := 0; i < 20; i++ {
		_ = d.Schedule(Task{Name: "work", Run: func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}})
	}

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if peak > workers {
		t.Errorf("expected at most %d concurrent tasks, saw %d", workers, peak)
	}
	if got := d.GetMetrics()["tasks_succeeded"]; got != 20 {
		t.Errorf("expected 20 succeeded tasks, got %d", got)
	}
}

func TestDispatcher_UnboundedRunsConcurrently(t *testing.T) {
	d := NewDispatcher(0, nil, nil)
	const tasks = 10

	var started sync.WaitGroup
	started.Add(tasks)
	release := make(chan struct{})
	for i := 0; i < tasks; i++ {
		_ = d.Schedule(Task{Name: "parallel", Run: func(ctx context.Context) error {
			started.Done()
			<-release
			return nil
		}})
	}

	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()
	select {
	case <-allStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected all tasks to run at the same time")
	}

	close(release)
	_ = d.Shutdown(context.Background())
}

func TestDispatcher_FailuresAreCountedNotPropagated(t *testing.T) {
	collector := metrics.NewMetricsCollector(nil)
	d := NewDispatcher(2, collector, nil)

	_ = d.Schedule(Task{Name: "fails", RequestID: 1, Run: func(ctx context.Context) error {
		return &StageError{Stage: StageNotify, RequestID: 1, Err: errors.New("boom")}
	}})
	_ = d.Schedule(Task{Name: "panics", RequestID: 2, Run: func(ctx context.Context) error {
		panic("unexpected")
	}})
	_ = d.Schedule(Task{Name: "works", RequestID: 3, Run: func(ctx context.Context) error {
		return nil
	}})

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	stats := d.GetMetrics()
	if stats["tasks_scheduled"] != 3 || stats["tasks_failed"] != 2 || stats["tasks_succeeded"] != 1 {
		t.Errorf("unexpected dispatcher metrics %+v", stats)
	}
}

func TestDispatcher_ScheduleAfterShutdown(t *testing.T) {
	d := NewDispatcher(0, nil, nil)
	_ = d.Shutdown(context.Background())

	err := d.Schedule(Task{Name: "late", Run: func(ctx context.Context) error { return nil }})

	if !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestDispatcher_ShutdownHonoursDeadline(t *testing.T) {
	d := NewDispatcher(0, nil, nil)
	release := make(chan struct{})
	defer close(release)
	_ = d.Schedule(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_TaskContextIsNotCancelled(t *testing.T) {
	d := NewDispatcher(0, nil, nil)
	var ctxErr error

	_ = d.Schedule(Task{Name: "ctx", Run: func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	}})
	_ = d.Shutdown(context.Background())

	if ctxErr != nil {
		t.Errorf("expected live context, got %v", ctxErr)
	}
}
