package domain

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

var (
	ErrDeadLetterNotFound   = errors.New("dead letter entry not found")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// DeadLetterStatus represents the lifecycle of a dead-letter entry
type DeadLetterStatus string

const (
	DeadLetterStatusPending           DeadLetterStatus = "pending"
	DeadLetterStatusRetrying          DeadLetterStatus = "retrying"
	DeadLetterStatusPermanentlyFailed DeadLetterStatus = "permanently_failed"
	DeadLetterStatusResolved          DeadLetterStatus = "resolved"
	DeadLetterStatusReplayed          DeadLetterStatus = "replayed"
)

// ParseDeadLetterStatus validates a status name
func ParseDeadLetterStatus(s string) (DeadLetterStatus, error) {
	switch status := DeadLetterStatus(s); status {
	case DeadLetterStatusPending, DeadLetterStatusRetrying, DeadLetterStatusPermanentlyFailed,
		DeadLetterStatusResolved, DeadLetterStatusReplayed:
		return status, nil
	}
	return "", errors.Errorf("unknown dead letter status %q", s)
}

// OpenDeadLetterStatuses are the statuses automatic retries may act on
var OpenDeadLetterStatuses = []DeadLetterStatus{DeadLetterStatusPending, DeadLetterStatusRetrying}

// TransitionSources lists the statuses an entry may move to target from
func TransitionSources(target DeadLetterStatus) []DeadLetterStatus {
	switch target {
	case DeadLetterStatusRetrying, DeadLetterStatusPermanentlyFailed:
		return []DeadLetterStatus{DeadLetterStatusPending, DeadLetterStatusRetrying}
	case DeadLetterStatusResolved, DeadLetterStatusReplayed:
		return []DeadLetterStatus{DeadLetterStatusPending, DeadLetterStatusRetrying, DeadLetterStatusPermanentlyFailed}
	}
	return nil
}

// DeadLetterEntry records a failed stage or compensation attempt
type DeadLetterEntry struct {
	ID            models.ID
	OrderID       models.ID
	EventType     string
	Operation     Operation
	CorrelationID models.ID
	ErrorMessage  string
	RetryCount    int
	MaxRetries    int
	Status        DeadLetterStatus
	LastRetryAt   *time.Time
	Timestamps    models.Timestamps
}

// NewDeadLetterEntry builds a pending entry
func NewDeadLetterEntry(
	orderID models.ID,
	eventType string,
	operation Operation,
	correlationID models.ID,
	errorMessage string,
	maxRetries int,
	now time.Time,
) *DeadLetterEntry {
	return &DeadLetterEntry{
		ID:            models.GenerateUUID(),
		OrderID:       orderID,
		EventType:     eventType,
		Operation:     operation,
		CorrelationID: correlationID,
		ErrorMessage:  errorMessage,
		MaxRetries:    maxRetries,
		Status:        DeadLetterStatusPending,
		Timestamps:    models.NewTimestamps(now),
	}
}

func (e *DeadLetterEntry) IsOpen() bool {
	return e.Status == DeadLetterStatusPending || e.Status == DeadLetterStatusRetrying
}

func (e *DeadLetterEntry) IsSettled() bool {
	return e.Status == DeadLetterStatusResolved || e.Status == DeadLetterStatusReplayed
}

func (e *DeadLetterEntry) HasRetryBudget() bool {
	return e.RetryCount < e.MaxRetries
}

// CanTransitionTo reports whether the lifecycle allows moving to target
func (e *DeadLetterEntry) CanTransitionTo(target DeadLetterStatus) bool {
	for _, source := range TransitionSources(target) {
		if e.Status == source {
			return true
		}
	}
	return false
}

// CooldownAnchor is the instant the retry cooldown is measured from
func (e *DeadLetterEntry) CooldownAnchor() time.Time {
	if e.LastRetryAt != nil {
		return *e.LastRetryAt
	}
	return e.Timestamps.CreatedAt
}

// EligibleAt reports whether the sweep may retry the entry at now
func (e *DeadLetterEntry) EligibleAt(now time.Time, cooldown time.Duration) bool {
	return e.IsOpen() && e.HasRetryBudget() && now.Sub(e.CooldownAnchor()) >= cooldown
}

// DeadLetterQuery filters operator listings. Empty fields match everything.
type DeadLetterQuery struct {
	Statuses []DeadLetterStatus
	OrderID  models.ID
	Limit    int
}

// DeadLetterRepository stores dead-letter entries.
//
// Enqueue keeps at most one open entry per (order, operation): a repeated failure updates the
// open entry's event type, correlation and error and returns it. ListEligible returns open entries
// with retry budget left whose cooldown anchor is at or before cutoff, oldest first.
// RecordAttempt increments the retry count and fails with ErrRetryBudgetExhausted when none is left.
// UpdateStatus fails with ErrInvalidTransition when the entry's status is not a legal source.
type DeadLetterRepository interface {
	Enqueue(ctx context.Context, entry *DeadLetterEntry) (*DeadLetterEntry, error)
	FindByID(ctx context.Context, id models.ID) (*DeadLetterEntry, error)
	List(ctx context.Context, query DeadLetterQuery) ([]*DeadLetterEntry, error)
	ListEligible(ctx context.Context, cutoff time.Time, limit int) ([]*DeadLetterEntry, error)
	RecordAttempt(ctx context.Context, id models.ID, at time.Time) error
	TouchRetry(ctx context.Context, id models.ID, at time.Time) error
	UpdateStatus(ctx context.Context, id models.ID, status DeadLetterStatus, at time.Time) error
}
