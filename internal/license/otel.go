package license

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// TracerName identifies spans emitted by the license client.
const TracerName = "license-client"

// Metrics holds the license client's OpenTelemetry instruments.
type Metrics struct {
	VerifyAttempts metric.Int64Counter
	VerifyDenied   metric.Int64Counter
	VerifyFailures metric.Int64Counter
	VerifyDuration metric.Float64Histogram

	RegisterAttempts metric.Int64Counter
	RegisterFailures metric.Int64Counter
}

// NewMetrics creates the license client instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.VerifyAttempts, err = meter.Int64Counter(
		"license.verify.attempts",
		metric.WithDescription("Total verify-key calls issued"),
	); err != nil {
		return nil, fmt.Errorf("failed to create verify attempts counter: %w", err)
	}

	if m.VerifyDenied, err = meter.Int64Counter(
		"license.verify.denied",
		metric.WithDescription("Verify-key calls denied by the service (invalid key or blacklist)"),
	); err != nil {
		return nil, fmt.Errorf("failed to create verify denied counter: %w", err)
	}

	if m.VerifyFailures, err = meter.Int64Counter(
		"license.verify.failures",
		metric.WithDescription("Verify-key calls that failed at transport or protocol level"),
	); err != nil {
		return nil, fmt.Errorf("failed to create verify failures counter: %w", err)
	}

	if m.VerifyDuration, err = meter.Float64Histogram(
		"license.verify.duration",
		metric.WithDescription("Verify-key call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create verify duration histogram: %w", err)
	}

	if m.RegisterAttempts, err = meter.Int64Counter(
		"license.register.attempts",
		metric.WithDescription("Total register-hwid calls issued"),
	); err != nil {
		return nil, fmt.Errorf("failed to create register attempts counter: %w", err)
	}

	if m.RegisterFailures, err = meter.Int64Counter(
		"license.register.failures",
		metric.WithDescription("Register-hwid calls that failed (outcome is discarded)"),
	); err != nil {
		return nil, fmt.Errorf("failed to create register failures counter: %w", err)
	}

	return m, nil
}
