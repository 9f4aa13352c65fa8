package application

import (
	"context"

	"github.com/draftea/order-saga/orders-service/domain"
)

// DefaultListLimit caps operator listings without an explicit limit
const DefaultListLimit = 100

// ListDeadLettersQuery filters dead letters
type ListDeadLettersQuery struct {
	Statuses []string `json:"statuses,omitempty"`
	OrderID  string   `json:"order_id,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// ListDeadLetters use case
type ListDeadLetters struct {
	deadLetters *DeadLetterQueue
}

// NewListDeadLetters creates a new ListDeadLetters use case
func NewListDeadLetters(deadLetters *DeadLetterQueue) *ListDeadLetters {
	return &ListDeadLetters{deadLetters: deadLetters}
}

// Execute executes the list dead letters use case
func (uc *ListDeadLetters) Execute(ctx context.Context, query *ListDeadLettersQuery) ([]*domain.DeadLetterEntry, error) {
	q, err := buildDeadLetterQuery(query.Statuses, query.OrderID, query.Limit)
	if err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}
	return uc.deadLetters.List(ctx, q)
}
