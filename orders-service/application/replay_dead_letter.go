package application

import (
	"context"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/telemetry"
)

// ReplayDeadLetterCommand replays a single entry
type ReplayDeadLetterCommand struct {
	EntryID string `json:"entry_id"`
}

// ReplayDeadLettersCommand replays every entry matching a filter
type ReplayDeadLettersCommand struct {
	Statuses []string `json:"statuses,omitempty"`
	OrderID  string   `json:"order_id,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// ReplayDeadLetter use case
type ReplayDeadLetter struct {
	manager *RetryManager
}

// NewReplayDeadLetter creates a new ReplayDeadLetter use case
func NewReplayDeadLetter(manager *RetryManager) *ReplayDeadLetter {
	return &ReplayDeadLetter{manager: manager}
}

// Execute replays one entry
func (uc *ReplayDeadLetter) Execute(ctx context.Context, cmd *ReplayDeadLetterCommand) (*ReplayResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "dead_letters.replay")
	defer span.End()

	if cmd.EntryID == "" {
		return nil, invalid("entry ID is required")
	}
	entryID, err := models.NewID(cmd.EntryID)
	if err != nil {
		return nil, invalid("entry ID must be a UUID")
	}
	return uc.manager.Replay(ctx, entryID)
}

// ExecuteBatch replays every matching entry
func (uc *ReplayDeadLetter) ExecuteBatch(ctx context.Context, cmd *ReplayDeadLettersCommand) ([]*ReplayResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "dead_letters.replay_batch")
	defer span.End()

	query, err := buildDeadLetterQuery(cmd.Statuses, cmd.OrderID, cmd.Limit)
	if err != nil {
		return nil, err
	}
	if len(query.Statuses) == 0 {
		// settled entries would be no-ops
		query.Statuses = []domain.DeadLetterStatus{
			domain.DeadLetterStatusPending,
			domain.DeadLetterStatusRetrying,
			domain.DeadLetterStatusPermanentlyFailed,
		}
	}
	return uc.manager.ReplayBatch(ctx, query)
}

func buildDeadLetterQuery(statuses []string, orderID string, limit int) (domain.DeadLetterQuery, error) {
	var query domain.DeadLetterQuery
	for _, raw := range statuses {
		status, err := domain.ParseDeadLetterStatus(raw)
		if err != nil {
			return query, invalid(err.Error())
		}
		query.Statuses = append(query.Statuses, status)
	}
	if orderID != "" {
		id, err := parseOrderID(orderID)
		if err != nil {
			return query, err
		}
		query.OrderID = id
	}
	if limit < 0 {
		return query, invalid("limit must not be negative")
	}
	query.Limit = limit
	return query, nil
}
