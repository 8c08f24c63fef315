package payload

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the payload fetch instruments.
type Metrics struct {
	FetchAttempts metric.Int64Counter
	FetchFailures metric.Int64Counter
	FetchBytes    metric.Int64Histogram
}

// NewMetrics creates the payload instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.FetchAttempts, err = meter.Int64Counter(
		"payload.fetch.attempts",
		metric.WithDescription("Total payload fetches issued"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fetch attempts counter: %w", err)
	}

	if m.FetchFailures, err = meter.Int64Counter(
		"payload.fetch.failures",
		metric.WithDescription("Payload fetches that failed or returned an unusable body"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fetch failures counter: %w", err)
	}

	if m.FetchBytes, err = meter.Int64Histogram(
		"payload.fetch.bytes",
		metric.WithDescription("Size of fetched payload scripts"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create fetch size histogram: %w", err)
	}

	return m, nil
}
