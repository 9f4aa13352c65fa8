package telemetry

var (
	// OrdersServiceConfig is the telemetry configuration for the orders saga service
	OrdersServiceConfig = Config{
		ServiceName:    "orders-service",
		ServiceVersion: "1.0.0",
	}

	// SagaCtlConfig is the telemetry configuration for the operator CLI
	SagaCtlConfig = Config{
		ServiceName:    "sagactl",
		ServiceVersion: "1.0.0",
	}

	DefaultConfig = Config{
		ServiceName:    "order-saga",
		ServiceVersion: "1.0.0",
	}
)

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithServiceName overrides the service name for a config
func (c Config) WithServiceName(name string) Config {
	if name != "" {
		c.ServiceName = name
	}
	return c
}
