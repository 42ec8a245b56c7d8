package processor

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/repository"
	"account_onboarding/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

const (
	StageFetch  = "fetch"
	StageTag    = "tag"
	StageDecide = "decide"
	StageApply  = "apply"
	StageNotify = "notify"

	processInstancePrefix = "onboarding-process-"
	pipelineTaskName      = "account-decision-pipeline"
)

var ErrAlreadyDecided = errors.New("account request already decided")

type Notifier interface {
	Notify(ctx context.Context, recipientName, recipientPhone string, status domain.AccountStatus, message string) error
}

// StageError records which pipeline stage ended a run.
type StageError struct {
	Stage     string
	RequestID int64
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed for request %d: %v", e.Stage, e.RequestID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ProcessingPipeline moves one request from PENDING to a terminal status.
// Stages run strictly in order and a failing stage ends the run; effects
// already persisted by earlier stages are kept.
type ProcessingPipeline struct {
	repo       repository.AccountRequestRepository
	ruleEngine *RuleEngine
	notifier   Notifier
	metrics    *metrics.MetricsCollector
	logger     *slog.Logger
}

func NewProcessingPipeline(
	repo repository.AccountRequestRepository,
	ruleEngine *RuleEngine,
	notifier Notifier,
	metrics *metrics.MetricsCollector,
	logger *slog.Logger,
) *ProcessingPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if ruleEngine == nil {
		ruleEngine = NewRuleEngine()
	}

	return &ProcessingPipeline{
		repo:       repo,
		ruleEngine: ruleEngine,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Task wraps a run for the given request so it can be handed to a Dispatcher.
func (p *ProcessingPipeline) Task(requestID int64) Task {
	return Task{
		Name:      pipelineTaskName,
		RequestID: requestID,
		Run: func(ctx context.Context) error {
			return p.Run(ctx, requestID)
		},
	}
}

func (p *ProcessingPipeline) Run(ctx context.Context, requestID int64) error {
	p.logger.InfoContext(ctx, "Starting decision pipeline",
		slog.Int64("request_id", requestID))

	request, err := p.fetch(ctx, requestID)
	if err != nil {
		return &StageError{Stage: StageFetch, RequestID: requestID, Err: err}
	}

	request, err = p.tag(ctx, request)
	if err != nil {
		return &StageError{Stage: StageTag, RequestID: requestID, Err: err}
	}

	decision := p.decide(ctx, request)

	request, err = p.apply(ctx, request, decision)
	if err != nil {
		return &StageError{Stage: StageApply, RequestID: requestID, Err: err}
	}

	if err := p.notify(ctx, request); err != nil {
		return &StageError{Stage: StageNotify, RequestID: requestID, Err: err}
	}

	p.logger.InfoContext(ctx, "Decision pipeline completed",
		slog.Int64("request_id", requestID),
		slog.String("status", string(request.Status)))
	return nil
}

func (p *ProcessingPipeline) fetch(ctx context.Context, requestID int64) (*domain.AccountRequest, error) {
	request, err := p.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account request: %w", err)
	}

	if request.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request %d is %s", ErrAlreadyDecided, requestID, request.Status)
	}

	return request, nil
}

func (p *ProcessingPipeline) tag(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error) {
	request.ProcessInstanceID = ProcessInstanceID(request.ID)

	updated, err := p.repo.Update(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to persist process instance: %w", err)
	}

	p.logger.InfoContext(ctx, "Request claimed by pipeline",
		slog.Int64("request_id", updated.ID),
		slog.String("name", updated.Name),
		slog.String("process_instance_id", updated.ProcessInstanceID))
	return updated, nil
}

func (p *ProcessingPipeline) decide(ctx context.Context, request *domain.AccountRequest) domain.Decision {
	decision := p.ruleEngine.EvaluateRequest(request)

	if p.metrics != nil {
		p.metrics.RecordDecision(string(decision.Outcome), decision.Rule)
	}

	p.logger.InfoContext(ctx, "Decision made",
		slog.Int64("request_id", request.ID),
		slog.String("outcome", string(decision.Outcome)),
		slog.String("rule", decision.Rule),
		slog.String("reason", decision.Reason))
	return decision
}

func (p *ProcessingPipeline) apply(ctx context.Context, request *domain.AccountRequest, decision domain.Decision) (*domain.AccountRequest, error) {
	request.ApplyDecision(decision)

	updated, err := p.repo.Update(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	p.logger.InfoContext(ctx, "Request status updated",
		slog.Int64("request_id", updated.ID),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

func (p *ProcessingPipeline) notify(ctx context.Context, request *domain.AccountRequest) error {
	if p.notifier == nil {
		return errors.New("no notifier configured")
	}

	message := NotificationMessage(request)
	if err := p.notifier.Notify(ctx, request.Name, request.PhoneNumber, request.Status, message); err != nil {
		return fmt.Errorf("failed to notify applicant: %w", err)
	}
	return nil
}

func ProcessInstanceID(requestID int64) string {
	return processInstancePrefix + strconv.FormatInt(requestID, 10)
}

// NotificationMessage renders the applicant-facing text for the request's
// current status. Every status, including unknown ones, yields a message.
func NotificationMessage(request *domain.AccountRequest) string {
	switch request.Status {
	case domain.StatusAutoApproved:
		return "Your account has been automatically approved!"
	case domain.StatusAutoRejected:
		return "Your account application has been rejected. Reason: " + request.RejectionReason
	case domain.StatusManualReview:
		return "Your account application is under manual review. You will be notified once a decision is made."
	default:
		return "Your account application status has been updated."
	}
}
