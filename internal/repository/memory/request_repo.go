package memory

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/repository"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type AccountRequestRepository struct {
	mu           sync.RWMutex
	nextID       int64
	requests     map[int64]*domain.AccountRequest
	processIndex map[string]int64
}

func NewAccountRequestRepository() *AccountRequestRepository {
	return &AccountRequestRepository{
		requests:     make(map[int64]*domain.AccountRequest),
		processIndex: make(map[string]int64),
	}
}

func (r *AccountRequestRepository) Save(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if request.ID != 0 {
		if _, exists := r.requests[request.ID]; exists {
			return nil, fmt.Errorf("%w: account request %d", repository.ErrDuplicate, request.ID)
		}
	}

	stored := request.Clone()
	r.nextID++
	stored.ID = r.nextID
	if stored.Status == "" {
		stored.Status = domain.StatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.requests[stored.ID] = stored
	if stored.ProcessInstanceID != "" {
		r.processIndex[stored.ProcessInstanceID] = stored.ID
	}

	return stored.Clone(), nil
}

func (r *AccountRequestRepository) FindByID(ctx context.Context, id int64) (*domain.AccountRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, exists := r.requests[id]
	if !exists {
		return nil, fmt.Errorf("%w: account request %d", repository.ErrNotFound, id)
	}
	return request.Clone(), nil
}

func (r *AccountRequestRepository) FindAll(ctx context.Context) ([]*domain.AccountRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.AccountRequest, 0, len(r.requests))
	for _, request := range r.requests {
		result = append(result, request.Clone())
	}

	sortByID(result)
	return result, nil
}

func (r *AccountRequestRepository) FindByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.AccountRequest, error) {
	return r.FindByStatuses(ctx, []domain.AccountStatus{status})
}

func (r *AccountRequestRepository) FindByStatuses(ctx context.Context, statuses []domain.AccountStatus) ([]*domain.AccountRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.AccountStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	result := []*domain.AccountRequest{}
	for _, request := range r.requests {
		if _, ok := wanted[request.Status]; ok {
			result = append(result, request.Clone())
		}
	}

	sortByID(result)
	return result, nil
}

func (r *AccountRequestRepository) FindByProcessInstanceID(ctx context.Context, processInstanceID string) (*domain.AccountRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.processIndex[processInstanceID]
	if !exists {
		return nil, fmt.Errorf("%w: process instance %s", repository.ErrNotFound, processInstanceID)
	}
	return r.requests[id].Clone(), nil
}

func (r *AccountRequestRepository) Update(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.requests[request.ID]
	if !exists {
		return nil, fmt.Errorf("%w: account request %d", repository.ErrNotFound, request.ID)
	}

	stored := request.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = existing.Clone().UpdatedAt
	if stored.DecisionChanged(existing) {
		now := time.Now().UTC()
		stored.UpdatedAt = &now
	}
	r.requests[stored.ID] = stored

	if existing.ProcessInstanceID != "" && existing.ProcessInstanceID != stored.ProcessInstanceID {
		delete(r.processIndex, existing.ProcessInstanceID)
	}
	if stored.ProcessInstanceID != "" {
		r.processIndex[stored.ProcessInstanceID] = stored.ID
	}

	return stored.Clone(), nil
}

func (r *AccountRequestRepository) CountByStatus(ctx context.Context) (map[domain.AccountStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.AccountStatus]int, len(domain.AccountStatuses()))
	for _, status := range domain.AccountStatuses() {
		counts[status] = 0
	}
	for _, request := range r.requests {
		counts[request.Status]++
	}
	return counts, nil
}

func sortByID(requests []*domain.AccountRequest) {
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ID < requests[j].ID
	})
}
