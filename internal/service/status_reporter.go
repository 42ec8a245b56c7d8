package service

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/repository"
	"account_onboarding/pkg/metrics"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultStatusReportSchedule = "@every 1m"
	statusReportTimeout         = 10 * time.Second
)

// StatusReporter periodically counts stored requests per status, publishes
// the counts as a gauge and warns while PENDING requests remain, which is the
// only signal that a pipeline run was lost.
type StatusReporter struct {
	cron     *cron.Cron
	repo     repository.AccountRequestRepository
	metrics  *metrics.MetricsCollector
	schedule string
	logger   *slog.Logger
}

func NewStatusReporter(
	repo repository.AccountRequestRepository,
	metrics *metrics.MetricsCollector,
	schedule string,
	logger *slog.Logger,
) *StatusReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultStatusReportSchedule
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &StatusReporter{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		repo:     repo,
		metrics:  metrics,
		schedule: schedule,
		logger:   logger,
	}
}

func (r *StatusReporter) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.runReport); err != nil {
		return fmt.Errorf("failed to schedule status report %q: %w", r.schedule, err)
	}

	r.cron.Start()
	r.logger.Info("Status reporter started", slog.String("schedule", r.schedule))
	return nil
}

func (r *StatusReporter) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), statusReportTimeout)
	defer cancel()

	if _, err := r.Report(ctx); err != nil {
		r.logger.Error("Status report failed", slog.String("error", err.Error()))
	}
}

// Report runs one pass immediately and returns the counts it published.
func (r *StatusReporter) Report(ctx context.Context) (map[domain.AccountStatus]int, error) {
	counts, err := r.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count account requests: %w", err)
	}

	attrs := make([]any, 0, len(counts))
	for _, status := range domain.AccountStatuses() {
		count := counts[status]
		if r.metrics != nil {
			r.metrics.SetRequestsByStatus(string(status), count)
		}
		attrs = append(attrs, slog.Int(string(status), count))
	}

	if counts[domain.StatusPending] > 0 {
		r.logger.WarnContext(ctx, "Account requests awaiting a decision", attrs...)
	} else {
		r.logger.DebugContext(ctx, "Account request status report", attrs...)
	}

	return counts, nil
}

func (r *StatusReporter) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()

	select {
	case <-stopped.Done():
		r.logger.Info("Status reporter stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
