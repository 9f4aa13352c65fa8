package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultRetryCooldown    = 60 * time.Second
	DefaultSweepBatchSize   = 10
	DefaultSweepConcurrency = 4
)

// RetryManagerConfig tunes the automatic sweep
type RetryManagerConfig struct {
	Cooldown    time.Duration
	BatchSize   int
	Concurrency int
}

func (c RetryManagerConfig) withDefaults() RetryManagerConfig {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultRetryCooldown
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultSweepBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultSweepConcurrency
	}
	return c
}

// SweepResult summarizes one automatic sweep
type SweepResult struct {
	Scanned           int `json:"scanned" yaml:"scanned"`
	Retried           int `json:"retried" yaml:"retried"`
	Resolved          int `json:"resolved" yaml:"resolved"`
	PermanentlyFailed int `json:"permanently_failed" yaml:"permanently_failed"`
	Errors            int `json:"errors" yaml:"errors"`
}

// ReplayOutcome describes what a manual replay did
type ReplayOutcome string

const (
	ReplayOutcomeReplayed       ReplayOutcome = "replayed"
	ReplayOutcomeResolved       ReplayOutcome = "resolved"
	ReplayOutcomeAlreadySettled ReplayOutcome = "already_settled"
	ReplayOutcomeStillFailing   ReplayOutcome = "still_failing"
)

// ReplayResult is the outcome of replaying one dead letter
type ReplayResult struct {
	EntryID  models.ID               `json:"entry_id" yaml:"entry_id"`
	OrderID  models.ID               `json:"order_id" yaml:"order_id"`
	Accepted bool                    `json:"accepted" yaml:"accepted"`
	Outcome  ReplayOutcome           `json:"outcome" yaml:"outcome"`
	Status   domain.DeadLetterStatus `json:"status" yaml:"status"`
}

// RetryManager retries dead letters, automatically on a schedule or on operator request
type RetryManager struct {
	orchestrator *Orchestrator
	compensator  *Compensator
	deadLetters  *DeadLetterQueue
	orders       domain.OrderRepository
	config       RetryManagerConfig
	sink         Sink
	logger       *slog.Logger
}

// NewRetryManager creates a new RetryManager
func NewRetryManager(
	orchestrator *Orchestrator,
	compensator *Compensator,
	deadLetters *DeadLetterQueue,
	orders domain.OrderRepository,
	config RetryManagerConfig,
	opts ...Option,
) *RetryManager {
	o := newOptions(opts)
	return &RetryManager{
		orchestrator: orchestrator,
		compensator:  compensator,
		deadLetters:  deadLetters,
		orders:       orders,
		config:       config.withDefaults(),
		sink:         o.sink,
		logger:       o.logger,
	}
}

// Sweep retries one batch of eligible dead letters. Entry failures are counted, not returned.
func (m *RetryManager) Sweep(ctx context.Context) (*SweepResult, error) {
	entries, err := m.deadLetters.ListEligible(ctx, m.config.Cooldown, m.config.BatchSize)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(entries)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(m.config.Concurrency)
	for _, entry := range entries {
		p.Go(func() {
			retried, status, err := m.sweepEntry(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors++
				m.logger.ErrorContext(ctx, "dead letter retry failed",
					"dead_letter_id", entry.ID,
					"order_id", entry.OrderID,
					"error", err,
				)
				return
			}
			if retried {
				result.Retried++
			}
			switch status {
			case domain.DeadLetterStatusResolved:
				result.Resolved++
			case domain.DeadLetterStatusPermanentlyFailed:
				result.PermanentlyFailed++
			}
		})
	}
	p.Wait()

	m.sink.SweepFinished(ctx, result.Scanned, result.Errors)
	return result, nil
}

// sweepEntry reports whether a retry ran and the status the entry was settled in, if any
func (m *RetryManager) sweepEntry(ctx context.Context, entry *domain.DeadLetterEntry) (bool, domain.DeadLetterStatus, error) {
	stage, ok := entry.Operation.Stage()
	if !ok {
		// compensation entries wait for an operator
		return false, "", nil
	}

	order, err := m.findOrder(ctx, entry.OrderID)
	if err != nil {
		return false, "", err
	}
	if !order.FailedAt(stage) {
		return false, domain.DeadLetterStatusResolved, m.deadLetters.MarkResolved(ctx, entry)
	}

	if err := m.deadLetters.MarkAttempt(ctx, entry.ID); err != nil {
		return false, "", err
	}
	if _, err := m.orchestrator.Retry(ctx, order.ID, domain.RetryTriggerAutomatic); err != nil {
		return true, "", errors.Wrap(err, "failed to retry order")
	}

	order, err = m.findOrder(ctx, entry.OrderID)
	if err != nil {
		return true, "", err
	}
	if !order.FailedAt(stage) {
		return true, domain.DeadLetterStatusResolved, m.deadLetters.MarkResolved(ctx, entry)
	}
	if entry.RetryCount+1 >= entry.MaxRetries {
		return true, domain.DeadLetterStatusPermanentlyFailed, m.deadLetters.MarkPermanentlyFailed(ctx, entry)
	}
	return true, "", nil
}

// Replay retries one entry on operator request. It ignores cooldown and budget, and settled
// entries are returned untouched.
func (m *RetryManager) Replay(ctx context.Context, entryID models.ID) (*ReplayResult, error) {
	entry, err := m.deadLetters.Find(ctx, entryID)
	if err != nil {
		return nil, err
	}

	result := &ReplayResult{EntryID: entry.ID, OrderID: entry.OrderID, Status: entry.Status}
	if entry.IsSettled() {
		result.Outcome = ReplayOutcomeAlreadySettled
		return result, nil
	}

	order, err := m.findOrder(ctx, entry.OrderID)
	if err != nil {
		return nil, err
	}

	if entry.Operation.IsCompensation() {
		return m.replayCompensation(ctx, entry, order, result)
	}

	stage, _ := entry.Operation.Stage()
	if !order.FailedAt(stage) {
		return m.settle(ctx, entry, result, domain.DeadLetterStatusResolved, ReplayOutcomeResolved)
	}

	if err := m.deadLetters.MarkManualAttempt(ctx, entry.ID); err != nil {
		return nil, err
	}
	if _, err := m.orchestrator.Retry(ctx, order.ID, domain.RetryTriggerReplay); err != nil {
		return nil, errors.Wrap(err, "failed to retry order")
	}

	order, err = m.findOrder(ctx, entry.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.FailedAt(stage) {
		return m.settle(ctx, entry, result, domain.DeadLetterStatusReplayed, ReplayOutcomeReplayed)
	}

	result.Accepted = true
	result.Outcome = ReplayOutcomeStillFailing
	return result, nil
}

func (m *RetryManager) replayCompensation(ctx context.Context, entry *domain.DeadLetterEntry, order *domain.Order, result *ReplayResult) (*ReplayResult, error) {
	if order.Status != domain.OrderStatusFailed {
		// the order recovered, undoing its earlier stages would be wrong
		return m.settle(ctx, entry, result, domain.DeadLetterStatusResolved, ReplayOutcomeResolved)
	}

	if err := m.deadLetters.MarkManualAttempt(ctx, entry.ID); err != nil {
		return nil, err
	}
	ok, err := m.compensator.Replay(ctx, order, entry.Operation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to replay compensation")
	}
	if !ok {
		result.Accepted = true
		result.Outcome = ReplayOutcomeStillFailing
		return result, nil
	}
	return m.settle(ctx, entry, result, domain.DeadLetterStatusReplayed, ReplayOutcomeReplayed)
}

func (m *RetryManager) settle(ctx context.Context, entry *domain.DeadLetterEntry, result *ReplayResult, status domain.DeadLetterStatus, outcome ReplayOutcome) (*ReplayResult, error) {
	if err := m.deadLetters.settle(ctx, entry, status); err != nil {
		return nil, err
	}
	result.Accepted = true
	result.Outcome = outcome
	result.Status = status
	return result, nil
}

// ReplayBatch replays every entry matching the query. A failing entry does not stop the batch.
func (m *RetryManager) ReplayBatch(ctx context.Context, query domain.DeadLetterQuery) ([]*ReplayResult, error) {
	entries, err := m.deadLetters.List(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]*ReplayResult, 0, len(entries))
	var errs []error
	for _, entry := range entries {
		result, err := m.Replay(ctx, entry.ID)
		if err != nil {
			m.logger.ErrorContext(ctx, "dead letter replay failed", "dead_letter_id", entry.ID, "error", err)
			errs = append(errs, errors.Wrapf(err, "entry %s", entry.ID))
			continue
		}
		results = append(results, result)
	}
	if len(errs) > 0 {
		return results, errors.Errorf("%d of %d replays failed: %v", len(errs), len(entries), errs[0])
	}
	return results, nil
}

func (m *RetryManager) findOrder(ctx context.Context, orderID models.ID) (*domain.Order, error) {
	order, err := m.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if _, err := m.orchestrator.reconcile(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
