// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the design core.
package telemetry

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=json console"`
	Output string `json:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Listen    string `json:"listen" yaml:"listen"`
}

// TracingConfig controls the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Exporter    string  `json:"exporter" yaml:"exporter" validate:"omitempty,oneof=stdout otlp"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	ServiceName string  `json:"service_name" yaml:"service_name"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio" validate:"omitempty,gte=0,lte=1"`
}

// Config aggregates the telemetry configuration.
type Config struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// DefaultConfig returns the defaults used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Namespace: "designcore",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "designcore",
			SampleRatio: 1.0,
		},
	}
}
