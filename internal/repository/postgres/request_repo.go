package postgres

import (
	"account_onboarding/internal/domain"
	"account_onboarding/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	selectColumns = `id, name, zip_code, age, phone_number, status, process_instance_id, rejection_reason, created_at, updated_at`
)

// AccountRequestRepository stores requests in the account_requests table.
// Each method is a single statement, so every call commits on its own.
type AccountRequestRepository struct {
	db *sql.DB
}

func NewAccountRequestRepository(db *sql.DB) *AccountRequestRepository {
	return &AccountRequestRepository{db: db}
}

func (r *AccountRequestRepository) Save(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error) {
	query := `
		INSERT INTO account_requests (name, zip_code, age, phone_number, status, process_instance_id, rejection_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	stored := request.Clone()
	if stored.Status == "" {
		stored.Status = domain.StatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query,
		stored.Name, stored.ZipCode, stored.Age, stored.PhoneNumber, string(stored.Status),
		nullString(stored.ProcessInstanceID), nullString(stored.RejectionReason), stored.CreatedAt,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: process instance %s", repository.ErrDuplicate, stored.ProcessInstanceID)
		}
		return nil, fmt.Errorf("failed to save account request: %w", err)
	}

	return stored, nil
}

func (r *AccountRequestRepository) FindByID(ctx context.Context, id int64) (*domain.AccountRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM account_requests WHERE id = $1`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account request %d", repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account request %d: %w", id, err)
	}
	return request, nil
}

func (r *AccountRequestRepository) FindAll(ctx context.Context) ([]*domain.AccountRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM account_requests ORDER BY id`
	return r.queryRequests(ctx, query)
}

func (r *AccountRequestRepository) FindByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.AccountRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM account_requests WHERE status = $1 ORDER BY id`
	return r.queryRequests(ctx, query, string(status))
}

func (r *AccountRequestRepository) FindByStatuses(ctx context.Context, statuses []domain.AccountStatus) ([]*domain.AccountRequest, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `SELECT ` + selectColumns + ` FROM account_requests WHERE status = ANY($1) ORDER BY id`
	return r.queryRequests(ctx, query, pq.Array(values))
}

func (r *AccountRequestRepository) FindByProcessInstanceID(ctx context.Context, processInstanceID string) (*domain.AccountRequest, error) {
	query := `SELECT ` + selectColumns + ` FROM account_requests WHERE process_instance_id = $1`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, processInstanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: process instance %s", repository.ErrNotFound, processInstanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account request by process instance: %w", err)
	}
	return request, nil
}

// Update writes the mutable columns. Inputs and created_at are never rewritten;
// updated_at only moves when status or rejection_reason change.
func (r *AccountRequestRepository) Update(ctx context.Context, request *domain.AccountRequest) (*domain.AccountRequest, error) {
	query := `
		UPDATE account_requests
		SET status = $2, process_instance_id = $3, rejection_reason = $4,
			updated_at = CASE
				WHEN status IS DISTINCT FROM $2 OR rejection_reason IS DISTINCT FROM $4 THEN $5
				ELSE updated_at
			END
		WHERE id = $1
		RETURNING ` + selectColumns

	updated, err := scanRequest(r.db.QueryRowContext(ctx, query,
		request.ID, string(request.Status),
		nullString(request.ProcessInstanceID), nullString(request.RejectionReason),
		time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account request %d", repository.ErrNotFound, request.ID)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: process instance %s", repository.ErrDuplicate, request.ProcessInstanceID)
		}
		return nil, fmt.Errorf("failed to update account request %d: %w", request.ID, err)
	}
	return updated, nil
}

func (r *AccountRequestRepository) CountByStatus(ctx context.Context) (map[domain.AccountStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM account_requests GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count account requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AccountStatus]int, len(domain.AccountStatuses()))
	for _, status := range domain.AccountStatuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.AccountStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

func (r *AccountRequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*domain.AccountRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list account requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.AccountRequest{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account requests: %w", err)
	}
	return requests, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.AccountRequest, error) {
	var (
		request           domain.AccountRequest
		status            string
		processInstanceID sql.NullString
		rejectionReason   sql.NullString
		updatedAt         sql.NullTime
	)

	err := row.Scan(
		&request.ID, &request.Name, &request.ZipCode, &request.Age, &request.PhoneNumber,
		&status, &processInstanceID, &rejectionReason, &request.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Status = domain.AccountStatus(status)
	request.ProcessInstanceID = processInstanceID.String
	request.RejectionReason = rejectionReason.String
	if updatedAt.Valid {
		request.UpdatedAt = &updatedAt.Time
	}
	return &request, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
