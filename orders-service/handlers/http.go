package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/draftea/order-saga/orders-service/application"
	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// IdempotencyKeyHeader carries the client token that makes order creation repeatable
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	createOrder  *application.CreateOrder
	getOrder     *application.GetOrder
	retryOrder   *application.RetryOrder
	diagnose     *application.Diagnose
	rebuildOrder *application.RebuildOrder
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	createOrder *application.CreateOrder,
	getOrder *application.GetOrder,
	retryOrder *application.RetryOrder,
	diagnose *application.Diagnose,
	rebuildOrder *application.RebuildOrder,
) *OrderHandlers {
	return &OrderHandlers{
		createOrder:  createOrder,
		getOrder:     getOrder,
		retryOrder:   retryOrder,
		diagnose:     diagnose,
		rebuildOrder: rebuildOrder,
	}
}

// CreateOrder handles order creation requests
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		cmd.IdempotencyKey = key
	}

	response, err := h.createOrder.Execute(r.Context(), &cmd)
	if err != nil {
		writeFailure(w, err)
		return
	}

	status := http.StatusCreated
	if !response.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, response)
}

// GetOrder returns the order with its event history
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.getOrder.Execute(r.Context(), &application.GetOrderQuery{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewOrderView(response.Order, response.Events))
}

// RetryOrder resumes a failed order
func (h *OrderHandlers) RetryOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.retryOrder.Execute(r.Context(), &application.RetryOrderCommand{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeFailure(w, err)
		return
	}

	status := http.StatusAccepted
	if !response.Accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, response)
}

// DiagnoseOrder explains where an order is stuck
func (h *OrderHandlers) DiagnoseOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.diagnose.Execute(r.Context(), &application.DiagnoseQuery{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// RebuildOrder replays the event log into the stored order
func (h *OrderHandlers) RebuildOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.rebuildOrder.Execute(r.Context(), &application.RebuildOrderCommand{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/retry", h.RetryOrder)
		r.Get("/{id}/diagnosis", h.DiagnoseOrder)
		r.Post("/{id}/rebuild", h.RebuildOrder)
	})
}

// DeadLetterHandlers contains dead letter HTTP handlers
type DeadLetterHandlers struct {
	listDeadLetters  *application.ListDeadLetters
	replayDeadLetter *application.ReplayDeadLetter
}

// NewDeadLetterHandlers creates new dead letter handlers
func NewDeadLetterHandlers(listDeadLetters *application.ListDeadLetters, replayDeadLetter *application.ReplayDeadLetter) *DeadLetterHandlers {
	return &DeadLetterHandlers{
		listDeadLetters:  listDeadLetters,
		replayDeadLetter: replayDeadLetter,
	}
}

// ListDeadLetters filters by ?status=a,b&order_id=&limit=
func (h *DeadLetterHandlers) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	query, err := parseDeadLetterFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.listDeadLetters.Execute(r.Context(), query)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDeadLetterViews(entries))
}

// ReplayDeadLetter replays one entry
func (h *DeadLetterHandlers) ReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	result, err := h.replayDeadLetter.Execute(r.Context(), &application.ReplayDeadLetterCommand{EntryID: chi.URLParam(r, "id")})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReplayDeadLetters replays every entry matching the body filter
func (h *DeadLetterHandlers) ReplayDeadLetters(w http.ResponseWriter, r *http.Request) {
	var cmd application.ReplayDeadLettersCommand
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	results, err := h.replayDeadLetter.ExecuteBatch(r.Context(), &cmd)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// RegisterRoutes registers dead letter routes
func (h *DeadLetterHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/dead-letters", func(r chi.Router) {
		r.Get("/", h.ListDeadLetters)
		r.Post("/replay", h.ReplayDeadLetters)
		r.Post("/{id}/replay", h.ReplayDeadLetter)
	})
}

func parseDeadLetterFilter(r *http.Request) (*application.ListDeadLettersQuery, error) {
	values := r.URL.Query()
	query := &application.ListDeadLettersQuery{OrderID: values.Get("order_id")}

	for _, raw := range values["status"] {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				query.Statuses = append(query.Statuses, status)
			}
		}
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, errors.New("limit must be a non-negative integer")
		}
		query.Limit = limit
	}
	return query, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps use case errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrDeadLetterNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrDispatcherSaturated), errors.Is(err, application.ErrDispatcherClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
