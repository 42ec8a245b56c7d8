package domain

import (
	"fmt"
	"time"
)

type AccountStatus string

const (
	StatusPending      AccountStatus = "PENDING"
	StatusAutoApproved AccountStatus = "AUTO_APPROVED"
	StatusAutoRejected AccountStatus = "AUTO_REJECTED"
	StatusManualReview AccountStatus = "MANUAL_REVIEW"
)

var accountStatuses = []AccountStatus{
	StatusPending,
	StatusAutoApproved,
	StatusAutoRejected,
	StatusManualReview,
}

// AccountStatuses returns every known status in declaration order.
func AccountStatuses() []AccountStatus {
	out := make([]AccountStatus, len(accountStatuses))
	copy(out, accountStatuses)
	return out
}

func ParseAccountStatus(s string) (AccountStatus, error) {
	for _, status := range accountStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown account status: %q", s)
}

// IsTerminal reports whether the pipeline has already decided the request.
func (s AccountStatus) IsTerminal() bool {
	switch s {
	case StatusAutoApproved, StatusAutoRejected, StatusManualReview:
		return true
	default:
		return false
	}
}

type AccountRequest struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	ZipCode           string        `json:"zipCode"`
	Age               int           `json:"age"`
	PhoneNumber       string        `json:"phoneNumber"`
	Status            AccountStatus `json:"status"`
	ProcessInstanceID string        `json:"processInstanceId,omitempty"`
	RejectionReason   string        `json:"rejectionReason,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         *time.Time    `json:"updatedAt"`
}

func NewAccountRequest(name, zipCode string, age int, phoneNumber string) *AccountRequest {
	return &AccountRequest{
		Name:        name,
		ZipCode:     zipCode,
		Age:         age,
		PhoneNumber: phoneNumber,
		Status:      StatusPending,
	}
}

// Clone returns a copy that can be handed out without sharing the stored record.
func (r *AccountRequest) Clone() *AccountRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.UpdatedAt != nil {
		updatedAt := *r.UpdatedAt
		c.UpdatedAt = &updatedAt
	}
	return &c
}

// DecisionChanged reports whether status or rejection reason differ from prev.
// Only those fields move updatedAt; tagging a request leaves it untouched.
func (r *AccountRequest) DecisionChanged(prev *AccountRequest) bool {
	return r.Status != prev.Status || r.RejectionReason != prev.RejectionReason
}

// ApplyDecision moves the request to the terminal status matching the decision.
// The rejection reason is only ever written for an auto-rejection.
func (r *AccountRequest) ApplyDecision(d Decision) {
	r.Status = d.Outcome.Status()
	if d.Outcome == OutcomeAutoReject {
		r.RejectionReason = d.Reason
	}
}
