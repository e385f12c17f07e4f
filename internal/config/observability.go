package config

// TracingConfig holds the OTLP trace export settings.
//
// Traces are sent to a local collector over OTLP HTTP; the collector handles
// authentication and forwarding, so no API key ever lives in this process.
type TracingConfig struct {
	// Enabled turns the trace pipeline on. Default: false.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP HTTP endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint"`

	// ServiceName is the service name attached to exported spans.
	ServiceName string `mapstructure:"service_name"`

	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string `mapstructure:"environment"`
}
