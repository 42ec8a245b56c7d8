package processor

import (
	"account_onboarding/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrDispatcherClosed = errors.New("dispatcher is shut down")

// Task is one unit of background work. Run receives a context that is never
// cancelled: once scheduled, a task runs to completion or to its first error.
type Task struct {
	Name      string
	RequestID int64
	Run       func(ctx context.Context) error
}

// Dispatcher executes scheduled tasks off the caller's goroutine. With
// maxWorkers <= 0 every task gets its own goroutine; otherwise at most
// maxWorkers tasks run at once and the rest wait for a slot.
type Dispatcher struct {
	workerPool chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	counters   map[string]int
	countersMu sync.Mutex
	metrics    *metrics.MetricsCollector
	logger     *slog.Logger
}

func NewDispatcher(maxWorkers int, metrics *metrics.MetricsCollector, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		counters: make(map[string]int),
		metrics:  metrics,
		logger:   logger,
	}
	if maxWorkers > 0 {
		d.workerPool = make(chan struct{}, maxWorkers)
	}
	return d
}

// Schedule never blocks. The only error is ErrDispatcherClosed.
func (d *Dispatcher) Schedule(task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return fmt.Errorf("%w: task %s for request %d", ErrDispatcherClosed, task.Name, task.RequestID)
	}

	d.wg.Add(1)
	d.recordMetric("tasks_scheduled", 1)
	go d.execute(task)

	return nil
}

func (d *Dispatcher) execute(task Task) {
	defer d.wg.Done()

	if d.workerPool != nil {
		d.workerPool <- struct{}{}
		defer func() { <-d.workerPool }()
	}

	if d.metrics != nil {
		d.metrics.PipelineStarted()
		defer d.metrics.PipelineFinished()
	}

	startTime := time.Now()
	err := d.runSafely(task)
	duration := time.Since(startTime)

	if d.metrics != nil {
		d.metrics.RecordPipelineRun(duration, err == nil)
	}

	if err != nil {
		d.recordMetric("tasks_failed", 1)
		attrs := []any{
			slog.String("task", task.Name),
			slog.Int64("request_id", task.RequestID),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		}
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			attrs = append(attrs, slog.String("stage", stageErr.Stage))
		}
		d.logger.Error("Background task failed", attrs...)
		return
	}

	d.recordMetric("tasks_succeeded", 1)
	d.logger.Debug("Background task completed",
		slog.String("task", task.Name),
		slog.Int64("request_id", task.RequestID),
		slog.Duration("duration", duration))
}

func (d *Dispatcher) runSafely(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(context.Background())
}

// Shutdown stops accepting tasks and waits for in-flight ones.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) GetMetrics() map[string]int {
	d.countersMu.Lock()
	defer d.countersMu.Unlock()

	out := make(map[string]int, len(d.counters))
	for k, v := range d.counters {
		out[k] = v
	}
	return out
}

func (d *Dispatcher) recordMetric(key string, value int) {
	d.countersMu.Lock()
	defer d.countersMu.Unlock()
	d.counters[key] += value
}
