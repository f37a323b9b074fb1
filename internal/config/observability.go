package config

// TracingConfig holds OpenTelemetry tracing configuration.
//
// Spans are exported over OTLP/HTTP to a local collector. See
// internal/observability for the tracer provider setup.
type TracingConfig struct {
	// Enabled turns span export on. When false a no-op provider is used.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName tags exported spans (default: sage).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
}
