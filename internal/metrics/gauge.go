package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterQueueDepth exports the audit sink queue length as an observable gauge.
// depth is called on every scrape and must be safe for concurrent use.
func RegisterQueueDepth(meterProvider metric.MeterProvider, namespace string, depth func() int) error {
	_, err := meterProvider.Meter(namespace).Int64ObservableGauge(
		metricName(namespace, "audit_queue_depth"),
		metric.WithDescription("Audit entries waiting to be persisted"),
		metric.WithUnit("{entry}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(depth()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit queue gauge: %w", err)
	}
	return nil
}
