package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agenthub"

// Metrics holds all AgentHub metric instruments.
type Metrics struct {
	TasksStarted   metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	Verdicts       metric.Int64Counter
	RepairAttempts metric.Int64Counter
	TaskDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksStarted, err = meter.Int64Counter("agenthub.tasks.started",
		metric.WithDescription("Number of tasks started"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("agenthub.tasks.completed",
		metric.WithDescription("Number of tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("agenthub.tasks.failed",
		metric.WithDescription("Number of tasks failed"))
	if err != nil {
		return nil, err
	}

	m.Verdicts, err = meter.Int64Counter("agenthub.verdicts",
		metric.WithDescription("Number of reviewer verdicts produced"))
	if err != nil {
		return nil, err
	}

	m.RepairAttempts, err = meter.Int64Counter("agenthub.repair.attempts",
		metric.WithDescription("Number of repair loop attempts"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("agenthub.task.duration_seconds",
		metric.WithDescription("Task duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
