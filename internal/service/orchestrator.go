package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/otel"
	"github.com/rahulnsecc/AI-4-all/internal/adapter/ws"
	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/broadcast"
	"github.com/rahulnsecc/AI-4-all/internal/port/messagequeue"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// taskTimeout bounds one task's full pipeline after the submit request has
// already returned.
const taskTimeout = 10 * time.Minute

// Orchestrator owns the task lifecycle: it persists the task, opens its
// session, records the routing decision, and runs the kind's pipeline in the
// background. Submit returns as soon as the routing turn is durable.
type Orchestrator struct {
	store    store.Store
	sessions *SessionService
	router   *RouterService
	agents   *AgentService
	content  *ContentService
	sqls     *SQLService
	costs    *CostScanService
	hub      broadcast.Broadcaster
	queue    messagequeue.Queue
	metrics  *otel.Metrics
}

// OrchestratorDeps bundles the orchestrator's collaborators. hub, queue, and
// metrics may be nil.
type OrchestratorDeps struct {
	Store    store.Store
	Sessions *SessionService
	Router   *RouterService
	Agents   *AgentService
	Content  *ContentService
	SQL      *SQLService
	CostScan *CostScanService
	Hub      broadcast.Broadcaster
	Queue    messagequeue.Queue
	Metrics  *otel.Metrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		store:    deps.Store,
		sessions: deps.Sessions,
		router:   deps.Router,
		agents:   deps.Agents,
		content:  deps.Content,
		sqls:     deps.SQL,
		costs:    deps.CostScan,
		hub:      deps.Hub,
		queue:    deps.Queue,
		metrics:  deps.Metrics,
	}
}

// Submit accepts a task, routes it, and starts the pipeline. The routing
// decision is in the session before any agent runs, so a crash mid-pipeline
// still leaves an explainable record.
func (o *Orchestrator) Submit(ctx context.Context, kind task.Kind, payload string) (*task.Task, error) {
	t := &task.Task{Kind: kind, Payload: payload}
	if err := o.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	sess, err := o.sessions.Open(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	decision, err := o.router.Route(ctx, *t, sess.Turns)
	if errors.Is(err, ErrNoMatchingAgent) {
		decision, err = o.router.Fallback(*t)
	}
	if err != nil {
		_ = o.sessions.Close(ctx, sess.ID, t.ID, session.StatusFailed, err.Error())
		return nil, err
	}

	if _, err := o.sessions.Append(ctx, sess.ID, t.ID, session.TurnRouting, "router", decision); err != nil {
		return nil, fmt.Errorf("record routing: %w", err)
	}

	if o.metrics != nil {
		o.metrics.TasksStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}

	// The pipeline outlives the HTTP request.
	go o.dispatch(context.WithoutCancel(ctx), *t, sess.ID, *decision)

	return t, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, t task.Task, sessionID string, decision RouteDecision) {
	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	ctx, span := otel.StartTaskSpan(ctx, t.ID, string(t.Kind))
	defer span.End()
	started := time.Now()

	err := o.run(ctx, t, sessionID, decision)

	status := session.StatusCompleted
	diagnosis := ""
	if err != nil {
		status = session.StatusFailed
		diagnosis = err.Error()
		slog.Error("task pipeline failed", "task_id", t.ID, "kind", t.Kind, "error", err)
	}
	if closeErr := o.sessions.Close(ctx, sessionID, t.ID, status, diagnosis); closeErr != nil {
		slog.Error("close session failed", "task_id", t.ID, "error", closeErr)
	}

	if o.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("kind", string(t.Kind)))
		o.metrics.TaskDuration.Record(ctx, time.Since(started).Seconds(), attrs)
		if err != nil {
			o.metrics.TasksFailed.Add(ctx, 1, attrs)
		} else {
			o.metrics.TasksCompleted.Add(ctx, 1, attrs)
		}
	}
}

// run executes the kind's pipeline and persists its report.
func (o *Orchestrator) run(ctx context.Context, t task.Task, sessionID string, decision RouteDecision) error {
	switch t.Kind {
	case task.KindContent:
		rep, err := o.content.Run(ctx, t, sessionID)
		if err != nil {
			return err
		}
		return o.finish(ctx, t, sessionID, rep)

	case task.KindSQL:
		rep, err := o.sqls.Run(ctx, t, sessionID)
		if err != nil {
			return err
		}
		return o.finish(ctx, t, sessionID, rep)

	case task.KindCostScan:
		rep, err := o.costs.Run(ctx, t, sessionID)
		if err != nil {
			return err
		}
		return o.finish(ctx, t, sessionID, rep)

	case task.KindFinance, task.KindSearch:
		def, ok := o.router.Definition(decision.Agent)
		if !ok {
			return fmt.Errorf("routed agent %q not in roster", decision.Agent)
		}
		return o.runFetch(ctx, t, sessionID, def)

	default:
		return fmt.Errorf("no pipeline for kind %s", t.Kind)
	}
}

func (o *Orchestrator) runFetch(ctx context.Context, t task.Task, sessionID string, def agent.Definition) error {
	ctx, span := otel.StartAgentSpan(ctx, t.ID, def.Name)
	defer span.End()

	sess, err := o.sessions.History(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	result, err := o.agents.Invoke(ctx, def, t.Payload, sess.Turns)
	if err != nil {
		return err
	}
	if _, err := o.sessions.Append(ctx, sessionID, t.ID, session.TurnAgentOutput, def.Name, result); err != nil {
		return err
	}
	return o.finish(ctx, t, sessionID, result)
}

// finish records the report turn, persists the report, and announces it.
func (o *Orchestrator) finish(ctx context.Context, t task.Task, sessionID string, rep any) error {
	if _, err := o.sessions.Append(ctx, sessionID, t.ID, session.TurnReport, "orchestrator", rep); err != nil {
		return err
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := o.store.SaveReport(ctx, &store.Report{
		TaskID:  t.ID,
		Kind:    string(t.Kind),
		Payload: data,
	}); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if o.hub != nil {
		o.hub.BroadcastEvent(ctx, ws.EventReportReady, ws.ReportReadyEvent{
			TaskID: t.ID,
			Kind:   string(t.Kind),
		})
	}
	if o.queue != nil {
		if err := o.queue.Publish(ctx, "reports."+t.ID, data); err != nil {
			slog.Error("report publish failed", "task_id", t.ID, "error", err)
		}
	}
	return nil
}
