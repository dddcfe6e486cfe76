package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

func TestRouteFinanceKeywords(t *testing.T) {
	r := NewRouterService(agent.DefaultRoster(), "")

	decision, err := r.Route(context.Background(), task.Task{
		ID:      "t1",
		Kind:    task.KindFinance,
		Payload: "what is the stock price of AAPL",
	}, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Agent != agent.NameFinance {
		t.Fatalf("expected %s, got %s", agent.NameFinance, decision.Agent)
	}
	// kind base 10 + "stock" + "price"
	if decision.Score != 12 {
		t.Fatalf("expected score 12, got %d", decision.Score)
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := NewRouterService(agent.DefaultRoster(), "")
	tk := task.Task{ID: "t1", Kind: task.KindContent, Payload: "write a blog post about Go"}

	first, err := r.Route(context.Background(), tk, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Route(context.Background(), tk, nil)
		if err != nil {
			t.Fatalf("Route: %v", err)
		}
		if again.Agent != first.Agent || again.Score != first.Score {
			t.Fatalf("routing not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestRouteTieResolvesToRosterOrder(t *testing.T) {
	// Writer and Critic both handle content; with no keyword hits both score
	// the kind base, and the earlier roster entry must win.
	r := NewRouterService(agent.DefaultRoster(), "")

	decision, err := r.Route(context.Background(), task.Task{
		ID:      "t1",
		Kind:    task.KindContent,
		Payload: "something about gardening",
	}, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Agent != agent.NameWriter {
		t.Fatalf("tie should resolve to roster order (Writer), got %s", decision.Agent)
	}
}

func TestRouteContinuityBonus(t *testing.T) {
	r := NewRouterService(agent.DefaultRoster(), "")

	payload, _ := json.Marshal(map[string]string{"artifact": "gardening tips for beginners"})
	history := []session.Turn{
		{Kind: session.TurnAgentOutput, Actor: agent.NameCritic, Payload: payload},
	}

	decision, err := r.Route(context.Background(), task.Task{
		ID:      "t2",
		Kind:    task.KindContent,
		Payload: "expand the gardening section",
	}, history)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	// Critic gets +2 continuity and overtakes Writer's roster-order tie win.
	if decision.Agent != agent.NameCritic {
		t.Fatalf("expected continuity to favor %s, got %s", agent.NameCritic, decision.Agent)
	}
}

func TestRouteNoMatch(t *testing.T) {
	roster := []agent.Definition{
		{Name: "Finance Agent", Kinds: []task.Kind{task.KindFinance}},
	}
	r := NewRouterService(roster, "")

	_, err := r.Route(context.Background(), task.Task{ID: "t1", Kind: task.KindSearch, Payload: "find x"}, nil)
	if !errors.Is(err, ErrNoMatchingAgent) {
		t.Fatalf("expected ErrNoMatchingAgent, got %v", err)
	}
}

func TestFallback(t *testing.T) {
	r := NewRouterService(agent.DefaultRoster(), agent.NameWebSearch)

	decision, err := r.Fallback(task.Task{ID: "t1", Kind: task.KindSearch})
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	if decision.Agent != agent.NameWebSearch {
		t.Fatalf("expected %s, got %s", agent.NameWebSearch, decision.Agent)
	}

	none := NewRouterService(agent.DefaultRoster(), "")
	if _, err := none.Fallback(task.Task{ID: "t1"}); !errors.Is(err, ErrNoMatchingAgent) {
		t.Fatalf("expected ErrNoMatchingAgent without fallback, got %v", err)
	}
}
