package services

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/hoststand/internal/events"
)

// MetricsSink receives operation outcomes and floor gauges. The Prometheus
// implementation lives in observability.
type MetricsSink interface {
	ObserveOperation(op, outcome string, d time.Duration)
	SetFloorGauge(status string, n int)
	SetWaitlistLength(n int)
}

// EventPublisher delivers floor events to whoever listens. Publish failures
// are logged by the caller and never fail the operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveOperation(string, string, time.Duration) {}
func (NopMetrics) SetFloorGauge(string, int)                      {}
func (NopMetrics) SetWaitlistLength(int)                          {}

// NopEvents discards everything.
type NopEvents struct{}

func (NopEvents) Publish(context.Context, events.Event) error { return nil }

// Outcome labels for ObserveOperation.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

// OutcomeOf classifies err for metrics.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
