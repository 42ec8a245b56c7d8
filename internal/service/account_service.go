package service

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/processor"
	"account_onboarding/internal/repository"
	"account_onboarding/pkg/metrics"
	"context"
	"fmt"
	"log/slog"
)

type Scheduler interface {
	Schedule(task processor.Task) error
}

type CreateAccountInput struct {
	Name        string
	ZipCode     string
	Age         int
	PhoneNumber string
}

type AccountService struct {
	repo      repository.AccountRequestRepository
	pipeline  *processor.ProcessingPipeline
	scheduler Scheduler
	metrics   *metrics.MetricsCollector
	logger    *slog.Logger
}

func NewAccountService(
	repo repository.AccountRequestRepository,
	pipeline *processor.ProcessingPipeline,
	scheduler Scheduler,
	metrics *metrics.MetricsCollector,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		repo:      repo,
		pipeline:  pipeline,
		scheduler: scheduler,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateAccountRequest persists the request as PENDING and hands the decision
// pipeline to the scheduler. The returned view is the one just persisted; the
// decision lands later.
func (s *AccountService) CreateAccountRequest(ctx context.Context, input CreateAccountInput) (*domain.AccountRequest, error) {
	request := domain.NewAccountRequest(input.Name, input.ZipCode, input.Age, input.PhoneNumber)

	saved, err := s.repo.Save(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to save account request: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRequestCreated()
	}

	s.logger.InfoContext(ctx, "Account request created",
		slog.Int64("request_id", saved.ID),
		slog.String("name", saved.Name))

	if err := s.scheduler.Schedule(s.pipeline.Task(saved.ID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule decision pipeline",
			slog.Int64("request_id", saved.ID),
			slog.String("error", err.Error()))
	}

	return saved, nil
}

func (s *AccountService) GetAccountRequest(ctx context.Context, id int64) (*domain.AccountRequest, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *AccountService) ListAccountRequests(ctx context.Context) ([]*domain.AccountRequest, error) {
	return s.repo.FindAll(ctx)
}

func (s *AccountService) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.AccountRequest, error) {
	return s.repo.FindByStatus(ctx, status)
}

func (s *AccountService) ListPendingManualReviews(ctx context.Context) ([]*domain.AccountRequest, error) {
	return s.repo.FindByStatus(ctx, domain.StatusManualReview)
}

func (s *AccountService) ListByStatuses(ctx context.Context, statuses ...domain.AccountStatus) ([]*domain.AccountRequest, error) {
	return s.repo.FindByStatuses(ctx, statuses)
}

func (s *AccountService) GetByProcessInstance(ctx context.Context, processInstanceID string) (*domain.AccountRequest, error) {
	return s.repo.FindByProcessInstanceID(ctx, processInstanceID)
}
