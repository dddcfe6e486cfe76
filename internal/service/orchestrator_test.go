package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/memory"
	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
	"github.com/rahulnsecc/AI-4-all/internal/port/inference"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

type fakeFetcher struct {
	result *datafetch.Result
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ datafetch.Selector) (*datafetch.Result, error) {
	return f.result, f.err
}

func newTestOrchestrator(st store.Store, gen inference.Generator, fetcher datafetch.Fetcher) *Orchestrator {
	sessions := NewSessionService(st, nil, nil)
	tools := NewToolRegistry()
	tools.Register(NewFetchTool("finance_quote", "quote", fetcher))
	tools.Register(NewFetchTool("web_search", "search", fetcher))
	agents := NewAgentService(gen, tools)
	panel := NewPanelService(gen, sessions)
	repairs := NewRepairService(sessions, 3, 0)

	return NewOrchestrator(OrchestratorDeps{
		Store:    st,
		Sessions: sessions,
		Router:   NewRouterService(agent.DefaultRoster(), agent.NameWebSearch),
		Agents:   agents,
		Content:  NewContentService(agents, panel, sessions),
		SQL:      NewSQLService(&fakeEngine{}, gen, repairs, panel),
		CostScan: NewCostScanService(newFakeCompute(), newFakeCompute(), nil, repairs, costScanConfig(), time.Minute),
	})
}

// waitClosed polls until the task's session reaches a terminal status.
func waitClosed(t *testing.T, st store.Store, taskID string) *session.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := st.GetSessionByTask(context.Background(), taskID)
		if err == nil && sess.Status != session.StatusOpen {
			return sess
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never closed")
	return nil
}

func TestOrchestratorFinanceTask(t *testing.T) {
	st := memory.NewStore()
	gen := &stubGenerator{fn: func(_ inference.Request) (string, error) {
		return "verdict: pass", nil
	}}
	fetcher := &fakeFetcher{result: &datafetch.Result{
		Source:  "yahoo-finance",
		Summary: "AAPL 190.00 USD (+1.20, +0.63%)",
	}}
	orch := newTestOrchestrator(st, gen, fetcher)

	tk, err := orch.Submit(context.Background(), task.KindFinance, "stock price of AAPL")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sess := waitClosed(t, st, tk.ID)
	if sess.Status != session.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", sess.Status, sess.Diagnosis)
	}

	// Routing decision must be the first turn, before any agent output.
	if len(sess.Turns) == 0 || sess.Turns[0].Kind != session.TurnRouting {
		t.Fatalf("first turn must be the routing decision, got %+v", sess.Turns)
	}
	kinds := make(map[session.TurnKind]bool)
	for _, turn := range sess.Turns {
		kinds[turn.Kind] = true
	}
	if !kinds[session.TurnAgentOutput] || !kinds[session.TurnReport] {
		t.Fatalf("expected agent output and report turns, got %+v", kinds)
	}

	rep, err := st.GetReport(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if rep.Kind != string(task.KindFinance) {
		t.Fatalf("expected finance report, got %s", rep.Kind)
	}
}

func TestOrchestratorToolFailureStillCompletes(t *testing.T) {
	st := memory.NewStore()
	gen := &stubGenerator{fn: func(_ inference.Request) (string, error) {
		return "verdict: pass", nil
	}}
	fetcher := &fakeFetcher{err: &datafetch.Error{Code: "unreachable", Message: "connection refused"}}
	orch := newTestOrchestrator(st, gen, fetcher)

	tk, err := orch.Submit(context.Background(), task.KindSearch, "find the latest Go release notes")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Tool failures are folded into the agent result, not pipeline errors.
	sess := waitClosed(t, st, tk.ID)
	if sess.Status != session.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", sess.Status, sess.Diagnosis)
	}
}

func TestOrchestratorSecondSubmitSameTaskIsIndependent(t *testing.T) {
	st := memory.NewStore()
	gen := &stubGenerator{fn: func(_ inference.Request) (string, error) {
		return "verdict: pass", nil
	}}
	fetcher := &fakeFetcher{result: &datafetch.Result{Source: "duckduckgo", Summary: "results"}}
	orch := newTestOrchestrator(st, gen, fetcher)

	first, err := orch.Submit(context.Background(), task.KindSearch, "query one")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := orch.Submit(context.Background(), task.KindSearch, "query two")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("tasks must get distinct IDs")
	}
	waitClosed(t, st, first.ID)
	waitClosed(t, st, second.ID)
}

func TestOrchestratorUnroutableKindFailsSession(t *testing.T) {
	st := memory.NewStore()
	gen := &stubGenerator{fn: func(_ inference.Request) (string, error) {
		return "verdict: pass", nil
	}}
	sessions := NewSessionService(st, nil, nil)
	// Roster without a search agent and no fallback.
	orch := NewOrchestrator(OrchestratorDeps{
		Store:    st,
		Sessions: sessions,
		Router: NewRouterService([]agent.Definition{
			{Name: agent.NameFinance, Kinds: []task.Kind{task.KindFinance}},
		}, ""),
		Agents: NewAgentService(gen, NewToolRegistry()),
	})

	_, err := orch.Submit(context.Background(), task.KindSearch, "anything")
	if !errors.Is(err, ErrNoMatchingAgent) {
		t.Fatalf("expected ErrNoMatchingAgent, got %v", err)
	}
}
