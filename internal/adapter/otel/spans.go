package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agenthub"

// StartTaskSpan starts a span covering one task's full session.
func StartTaskSpan(ctx context.Context, taskID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.kind", kind),
		),
	)
}

// StartAgentSpan starts a span for one agent invocation.
func StartAgentSpan(ctx context.Context, taskID, agentName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.name", agentName),
		),
	)
}

// StartRepairSpan starts a span for one repair loop attempt.
func StartRepairSpan(ctx context.Context, taskID string, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "repair",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("repair.attempt", attempt),
		),
	)
}
