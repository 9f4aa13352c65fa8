package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

var (
	_ domain.EventLog             = (*MemoryEventLog)(nil)
	_ domain.OrderRepository      = (*MemoryOrderRepository)(nil)
	_ domain.DedupStore           = (*MemoryDedupStore)(nil)
	_ domain.DeadLetterRepository = (*MemoryDeadLetterRepository)(nil)
)

// MemoryEventLog keeps events in process memory. Used by tests and storage=memory.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events map[models.ID][]*events.Event
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{events: make(map[models.ID][]*events.Event)}
}

func (l *MemoryEventLog) Append(ctx context.Context, event *events.Event) (models.ID, error) {
	if event == nil || event.ID.IsZero() || event.OrderID.IsZero() {
		return "", errors.New("event must have an ID and an order ID")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.events[event.OrderID] {
		if existing.ID == event.ID {
			return "", errors.Errorf("event %s already appended", event.ID)
		}
	}

	stored := event.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	l.events[event.OrderID] = append(l.events[event.OrderID], stored)
	return event.ID, nil
}

func (l *MemoryEventLog) ReadEvents(ctx context.Context, orderID models.ID) ([]*events.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.events[orderID]
	result := make([]*events.Event, len(stored))
	for i, evt := range stored {
		result[i] = evt.Clone()
	}
	// stable sort keeps insertion order for equal timestamps
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// MemoryOrderRepository keeps orders in process memory
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[models.ID]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[models.ID]*domain.Order)}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, query domain.OrderQuery) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Order
	for _, order := range r.orders {
		if query.Status != "" && order.Status != query.Status {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamps.CreatedAt.Before(result[j].Timestamps.CreatedAt)
	})
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = append([]domain.Item(nil), order.Items...)
	return &clone
}

// MemoryDedupStore is a mutex-guarded dedup table
type MemoryDedupStore struct {
	mu      sync.Mutex
	records map[domain.DedupKey]*domain.DedupRecord
	now     func() time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{
		records: make(map[domain.DedupKey]*domain.DedupRecord),
		now:     time.Now,
	}
}

func (s *MemoryDedupStore) CheckAndReserve(ctx context.Context, key domain.DedupKey) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[key]; ok {
		return domain.AlreadyProcessed(record.EventID), nil
	}
	s.records[key] = &domain.DedupRecord{Key: key, CreatedAt: s.now()}
	return domain.Reserved(), nil
}

func (s *MemoryDedupStore) Confirm(ctx context.Context, key domain.DedupKey, eventID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		s.records[key] = &domain.DedupRecord{Key: key, EventID: eventID, CreatedAt: s.now()}
		return nil
	}
	if !record.Confirmed() {
		record.EventID = eventID
	}
	return nil
}

func (s *MemoryDedupStore) Release(ctx context.Context, key domain.DedupKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[key]; ok && !record.Confirmed() {
		delete(s.records, key)
	}
	return nil
}

func (s *MemoryDedupStore) Lookup(ctx context.Context, key domain.DedupKey) (*domain.DedupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryDedupStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, record := range s.records {
		if record.CreatedAt.Before(before) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}

// MemoryDeadLetterRepository keeps dead-letter entries in process memory
type MemoryDeadLetterRepository struct {
	mu      sync.Mutex
	entries []*domain.DeadLetterEntry
}

func NewMemoryDeadLetterRepository() *MemoryDeadLetterRepository {
	return &MemoryDeadLetterRepository{}
}

func (r *MemoryDeadLetterRepository) Enqueue(ctx context.Context, entry *domain.DeadLetterEntry) (*domain.DeadLetterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entries {
		if existing.OrderID == entry.OrderID && existing.Operation == entry.Operation && existing.IsOpen() {
			existing.EventType = entry.EventType
			existing.CorrelationID = entry.CorrelationID
			existing.ErrorMessage = entry.ErrorMessage
			existing.Timestamps = existing.Timestamps.Touch(entry.Timestamps.UpdatedAt)
			return cloneEntry(existing), nil
		}
	}

	stored := cloneEntry(entry)
	r.entries = append(r.entries, stored)
	return cloneEntry(stored), nil
}

func (r *MemoryDeadLetterRepository) FindByID(ctx context.Context, id models.ID) (*domain.DeadLetterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.find(id)
	if entry == nil {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

func (r *MemoryDeadLetterRepository) List(ctx context.Context, query domain.DeadLetterQuery) ([]*domain.DeadLetterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.DeadLetterEntry
	for _, entry := range r.entries {
		if !query.OrderID.IsZero() && entry.OrderID != query.OrderID {
			continue
		}
		if len(query.Statuses) > 0 && !hasStatus(query.Statuses, entry.Status) {
			continue
		}
		result = append(result, cloneEntry(entry))
		if query.Limit > 0 && len(result) == query.Limit {
			break
		}
	}
	return result, nil
}

func (r *MemoryDeadLetterRepository) ListEligible(ctx context.Context, cutoff time.Time, limit int) ([]*domain.DeadLetterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.DeadLetterEntry
	for _, entry := range r.entries {
		if !entry.IsOpen() || !entry.HasRetryBudget() || entry.CooldownAnchor().After(cutoff) {
			continue
		}
		result = append(result, cloneEntry(entry))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamps.CreatedAt.Before(result[j].Timestamps.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryDeadLetterRepository) RecordAttempt(ctx context.Context, id models.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.find(id)
	if entry == nil {
		return domain.ErrDeadLetterNotFound
	}
	if !entry.IsOpen() || !entry.HasRetryBudget() {
		return domain.ErrRetryBudgetExhausted
	}
	entry.RetryCount++
	entry.LastRetryAt = &at
	entry.Status = domain.DeadLetterStatusRetrying
	entry.Timestamps = entry.Timestamps.Touch(at)
	return nil
}

func (r *MemoryDeadLetterRepository) TouchRetry(ctx context.Context, id models.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.find(id)
	if entry == nil {
		return domain.ErrDeadLetterNotFound
	}
	entry.LastRetryAt = &at
	entry.Timestamps = entry.Timestamps.Touch(at)
	return nil
}

func (r *MemoryDeadLetterRepository) UpdateStatus(ctx context.Context, id models.ID, status domain.DeadLetterStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.find(id)
	if entry == nil {
		return domain.ErrDeadLetterNotFound
	}
	if !entry.CanTransitionTo(status) {
		return errors.Wrapf(domain.ErrInvalidTransition, "dead letter %s: %s -> %s", id, entry.Status, status)
	}
	entry.Status = status
	entry.Timestamps = entry.Timestamps.Touch(at)
	return nil
}

func (r *MemoryDeadLetterRepository) find(id models.ID) *domain.DeadLetterEntry {
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func cloneEntry(entry *domain.DeadLetterEntry) *domain.DeadLetterEntry {
	clone := *entry
	if entry.LastRetryAt != nil {
		at := *entry.LastRetryAt
		clone.LastRetryAt = &at
	}
	return &clone
}

func hasStatus(statuses []domain.DeadLetterStatus, status domain.DeadLetterStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
