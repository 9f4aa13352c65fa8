package application

import (
	"log/slog"
	"time"
)

const defaultProducer = "orders-service"

type options struct {
	sink       Sink
	logger     *slog.Logger
	now        func() time.Time
	producedBy string
}

// Option configures the saga components
type Option func(*options)

// WithSink sets the observability sink
func WithSink(sink Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithProducer sets the produced_by name stamped on events
func WithProducer(name string) Option {
	return func(o *options) {
		if name != "" {
			o.producedBy = name
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		sink:       NoopSink{},
		logger:     slog.Default(),
		now:        time.Now,
		producedBy: defaultProducer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
