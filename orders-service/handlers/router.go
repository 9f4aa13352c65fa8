package handlers

import (
	"net/http"
	"time"

	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires middleware, health, metrics and the API routes
func NewRouter(tel *telemetry.Telemetry, orders *OrderHandlers, deadLetters *DeadLetterHandlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	if tel != nil {
		r.Use(telemetry.Middleware(tel))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", NewMetricsHandler())

	orders.RegisterRoutes(r)
	deadLetters.RegisterRoutes(r)

	return r
}
