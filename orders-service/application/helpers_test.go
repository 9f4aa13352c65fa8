package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/orders-service/infrastructure"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type step struct {
	reply domain.StageReply
	err   error
	delay time.Duration
}

func accept() step {
	return step{reply: domain.StageReply{Accepted: true}}
}

func reject(reason string) step {
	return step{reply: domain.StageReply{Reason: reason}}
}

func unavailable() step {
	return step{err: errors.New("connection refused")}
}

func slow(d time.Duration) step {
	return step{reply: domain.StageReply{Accepted: true}, delay: d}
}

// scriptedWorker answers each operation from a queue of steps, accepting once the queue is empty.
// An operation registered with always repeats its step forever.
type scriptedWorker struct {
	mu      sync.Mutex
	queued  map[domain.Operation][]step
	repeat  map[domain.Operation]step
	calls   map[domain.Operation]int
	history []domain.StageRequest
}

func newScriptedWorker() *scriptedWorker {
	return &scriptedWorker{
		queued: make(map[domain.Operation][]step),
		repeat: make(map[domain.Operation]step),
		calls:  make(map[domain.Operation]int),
	}
}

func (w *scriptedWorker) then(op domain.Operation, steps ...step) *scriptedWorker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queued[op] = append(w.queued[op], steps...)
	return w
}

func (w *scriptedWorker) always(op domain.Operation, s step) *scriptedWorker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.repeat[op] = s
	return w
}

func (w *scriptedWorker) clear(op domain.Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.repeat, op)
	delete(w.queued, op)
}

func (w *scriptedWorker) Calls(op domain.Operation) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[op]
}

func (w *scriptedWorker) requests() []domain.StageRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.StageRequest(nil), w.history...)
}

func (w *scriptedWorker) Invoke(ctx context.Context, req domain.StageRequest) (domain.StageReply, error) {
	w.mu.Lock()
	w.calls[req.Operation]++
	w.history = append(w.history, req)
	s, ok := w.repeat[req.Operation]
	if !ok {
		s = accept()
		if queue := w.queued[req.Operation]; len(queue) > 0 {
			s = queue[0]
			w.queued[req.Operation] = queue[1:]
		}
	}
	w.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.StageReply{}, ctx.Err()
		}
	}
	return s.reply, s.err
}

type recordingSink struct {
	mu       sync.Mutex
	stages   map[domain.OutcomeKind]int
	finished []domain.OrderStatus
	enqueued int
	settled  []domain.DeadLetterStatus
	degraded []string
	sweeps   []int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{stages: make(map[domain.OutcomeKind]int)}
}

func (s *recordingSink) StageCompleted(_ context.Context, _ domain.Operation, kind domain.OutcomeKind, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[kind]++
}

func (s *recordingSink) SagaFinished(_ context.Context, status domain.OrderStatus, _ domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, status)
}

func (s *recordingSink) DeadLetterEnqueued(context.Context, *domain.DeadLetterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued++
}

func (s *recordingSink) DeadLetterSettled(_ context.Context, _ *domain.DeadLetterEntry, status domain.DeadLetterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = append(s.settled, status)
}

func (s *recordingSink) DegradedRead(_ context.Context, source string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = append(s.degraded, source)
}

func (s *recordingSink) SweepFinished(_ context.Context, eligible, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps = append(s.sweeps, eligible)
}

// faultyEventLog fails the next Append of each armed event type
type faultyEventLog struct {
	domain.EventLog
	mu    sync.Mutex
	armed map[string]int
}

func (l *faultyEventLog) failNext(eventType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.armed[eventType]++
}

func (l *faultyEventLog) Append(ctx context.Context, evt *events.Event) (models.ID, error) {
	l.mu.Lock()
	if l.armed[evt.EventType] > 0 {
		l.armed[evt.EventType]--
		l.mu.Unlock()
		return "", errors.New("event log unavailable")
	}
	l.mu.Unlock()
	return l.EventLog.Append(ctx, evt)
}

// faultyOrders fails the next Save of an order in each armed status and stage
type faultyOrders struct {
	domain.OrderRepository
	mu    sync.Mutex
	armed map[domain.Projection]int
}

func (r *faultyOrders) failNextSave(status domain.OrderStatus, stage domain.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[domain.Projection{Status: status, Stage: stage}]++
}

func (r *faultyOrders) Save(ctx context.Context, order *domain.Order) error {
	state := domain.Projection{Status: order.Status, Stage: order.Stage}
	r.mu.Lock()
	if r.armed[state] > 0 {
		r.armed[state]--
		r.mu.Unlock()
		return errors.New("order store unavailable")
	}
	r.mu.Unlock()
	return r.OrderRepository.Save(ctx, order)
}

// sagaFixture wires the saga over in-memory stores, a scripted worker and a fixed clock
type sagaFixture struct {
	clock       *testClock
	worker      *scriptedWorker
	sink        *recordingSink
	orders      *infrastructure.MemoryOrderRepository
	eventLog    *infrastructure.MemoryEventLog
	dedup       domain.DedupStore
	deadLetters *infrastructure.MemoryDeadLetterRepository

	// storage the saga writes through; unarmed they pass every call to the memory stores
	faultyLog    *faultyEventLog
	faultyOrders *faultyOrders

	queue        *DeadLetterQueue
	orchestrator *Orchestrator
	compensator  *Compensator
	manager      *RetryManager
	createOrder  *CreateOrder
	retryOrder   *RetryOrder
	replay       *ReplayDeadLetter
	diagnose     *Diagnose
	rebuild      *RebuildOrder
}

type fixtureConfig struct {
	dedup        domain.DedupStore
	dispatcher   Dispatcher
	stageTimeout time.Duration
}

func newSagaFixture(t *testing.T, configure ...func(*fixtureConfig)) *sagaFixture {
	t.Helper()

	cfg := fixtureConfig{
		dedup:        infrastructure.NewMemoryDedupStore(),
		dispatcher:   InlineDispatcher{},
		stageTimeout: 200 * time.Millisecond,
	}
	for _, c := range configure {
		c(&cfg)
	}

	f := &sagaFixture{
		clock:       newTestClock(),
		worker:      newScriptedWorker(),
		sink:        newRecordingSink(),
		orders:      infrastructure.NewMemoryOrderRepository(),
		eventLog:    infrastructure.NewMemoryEventLog(),
		dedup:       cfg.dedup,
		deadLetters: infrastructure.NewMemoryDeadLetterRepository(),
	}

	f.faultyLog = &faultyEventLog{EventLog: f.eventLog, armed: make(map[string]int)}
	f.faultyOrders = &faultyOrders{OrderRepository: f.orders, armed: make(map[domain.Projection]int)}

	opts := []Option{WithClock(f.clock.Now), WithSink(f.sink), WithProducer("orders-service-test")}
	executor := NewStageExecutor(f.worker, cfg.stageTimeout)
	f.queue = NewDeadLetterQueue(f.deadLetters, 3, opts...)
	f.compensator = NewCompensator(f.faultyLog, f.dedup, executor, f.queue, opts...)
	f.orchestrator = NewOrchestrator(f.faultyOrders, f.faultyLog, f.dedup, executor, f.compensator, f.queue, opts...)
	f.manager = NewRetryManager(f.orchestrator, f.compensator, f.queue, f.faultyOrders, RetryManagerConfig{
		Cooldown:    time.Minute,
		BatchSize:   10,
		Concurrency: 2,
	}, opts...)
	f.createOrder = NewCreateOrder(f.faultyOrders, f.orchestrator, cfg.dispatcher, opts...)
	f.retryOrder = NewRetryOrder(f.orchestrator, f.queue, f.faultyOrders, cfg.dispatcher, opts...)
	f.replay = NewReplayDeadLetter(f.manager)
	f.diagnose = NewDiagnose(f.orders, f.eventLog, f.deadLetters, f.dedup, 5*time.Minute, opts...)
	f.rebuild = NewRebuildOrder(f.faultyOrders, f.faultyLog, opts...)
	return f
}

// orderOf100 is two items totaling 100.00
func orderOf100() *CreateOrderCommand {
	return &CreateOrderCommand{
		CustomerRef: "cust-42",
		Items: []CreateOrderItem{
			{SKU: "sku-1", Quantity: 2, UnitPrice: decimal.RequireFromString("25.00")},
			{SKU: "sku-2", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
		},
	}
}

func (f *sagaFixture) create(t *testing.T) models.ID {
	t.Helper()
	resp, err := f.createOrder.Execute(context.Background(), orderOf100())
	require.NoError(t, err)
	require.True(t, resp.Created)
	return resp.OrderID
}

func (f *sagaFixture) order(t *testing.T, id models.ID) *domain.Order {
	t.Helper()
	order, err := f.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (f *sagaFixture) eventTypes(t *testing.T, id models.ID) []string {
	t.Helper()
	evts, err := f.eventLog.ReadEvents(context.Background(), id)
	require.NoError(t, err)
	types := make([]string, len(evts))
	for i, evt := range evts {
		types[i] = evt.EventType
	}
	return types
}

func (f *sagaFixture) events(t *testing.T, id models.ID) []*events.Event {
	t.Helper()
	evts, err := f.eventLog.ReadEvents(context.Background(), id)
	require.NoError(t, err)
	return evts
}

func (f *sagaFixture) deadLettersFor(t *testing.T, id models.ID) []*domain.DeadLetterEntry {
	t.Helper()
	entries, err := f.deadLetters.List(context.Background(), domain.DeadLetterQuery{OrderID: id})
	require.NoError(t, err)
	return entries
}
