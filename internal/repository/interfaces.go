package repository

import (
	"account_onboarding/internal/domain"
	"context"
	"errors"
)

// AccountRequestRepository is the request store shared by the API and the
// decision pipeline. Every method is atomic on its own; callers never span a
// transaction across calls.
type AccountRequestRepository interface {
	Save(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error)
	FindByID(ctx context.Context, id int64) (*domain.AccountRequest, error)
	FindAll(ctx context.Context) ([]*domain.AccountRequest, error)
	FindByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.AccountRequest, error)
	FindByStatuses(ctx context.Context, statuses []domain.AccountStatus) ([]*domain.AccountRequest, error)
	FindByProcessInstanceID(ctx context.Context, processInstanceID string) (*domain.AccountRequest, error)
	Update(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error)
	CountByStatus(ctx context.Context) (map[domain.AccountStatus]int, error)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
