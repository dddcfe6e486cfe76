package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// ErrNoMatchingAgent is returned when no roster agent serves the task's kind.
var ErrNoMatchingAgent = errors.New("no matching agent")

// RouteDecision is the routing outcome recorded in the session before any
// agent runs.
type RouteDecision struct {
	Agent  string `json:"agent"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// RouterService selects the specialist for a task. Scoring is a pure
// function of the task and the session history: kind eligibility gates,
// keyword hits rank, and the most recent agent gets a continuity bonus when
// the new payload stays on its topic. Ties resolve to roster order.
type RouterService struct {
	roster   []agent.Definition
	fallback string
}

// NewRouterService creates a router over the given roster. fallback names
// the agent that absorbs unroutable tasks; empty disables the fallback.
func NewRouterService(roster []agent.Definition, fallback string) *RouterService {
	return &RouterService{roster: roster, fallback: fallback}
}

// Route scores every eligible agent and returns the winner. The decision is
// deterministic: the same task and history always produce the same agent.
func (s *RouterService) Route(_ context.Context, t task.Task, history []session.Turn) (*RouteDecision, error) {
	payload := strings.ToLower(t.Payload)
	lastAgent, lastPayload := lastAgentOutput(history)

	var best *RouteDecision
	for _, def := range s.roster {
		if !def.Handles(t.Kind) {
			continue
		}

		score := 10 // kind eligibility
		var hits []string
		for _, kw := range def.Keywords {
			if strings.Contains(payload, kw) {
				score++
				hits = append(hits, kw)
			}
		}
		if def.Name == lastAgent && onTopic(payload, lastPayload) {
			score += 2
			hits = append(hits, "continuity")
		}

		if best == nil || score > best.Score {
			best = &RouteDecision{
				Agent:  def.Name,
				Score:  score,
				Reason: fmt.Sprintf("kind=%s matched=%s", t.Kind, strings.Join(hits, ",")),
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("route task %s kind %s: %w", t.ID, t.Kind, ErrNoMatchingAgent)
	}
	return best, nil
}

// Fallback returns the fallback decision, or an error when no fallback is
// configured or the named agent is not in the roster.
func (s *RouterService) Fallback(t task.Task) (*RouteDecision, error) {
	if s.fallback == "" {
		return nil, fmt.Errorf("route task %s: %w", t.ID, ErrNoMatchingAgent)
	}
	for _, def := range s.roster {
		if def.Name == s.fallback {
			return &RouteDecision{
				Agent:  def.Name,
				Score:  0,
				Reason: "fallback: no specialist matched",
			}, nil
		}
	}
	return nil, fmt.Errorf("route task %s: fallback %q not in roster: %w", t.ID, s.fallback, ErrNoMatchingAgent)
}

// Definition resolves an agent name back to its roster definition.
func (s *RouterService) Definition(name string) (agent.Definition, bool) {
	for _, def := range s.roster {
		if def.Name == name {
			return def, true
		}
	}
	return agent.Definition{}, false
}

// lastAgentOutput returns the actor and payload of the most recent
// agent_output turn.
func lastAgentOutput(history []session.Turn) (actor, payload string) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == session.TurnAgentOutput {
			return history[i].Actor, strings.ToLower(string(history[i].Payload))
		}
	}
	return "", ""
}

// onTopic reports whether the new payload shares a significant word with the
// previous output. Words of four letters or fewer are too common to signal
// topic continuity.
func onTopic(payload, previous string) bool {
	if previous == "" {
		return false
	}
	for _, word := range strings.Fields(payload) {
		if len(word) > 4 && strings.Contains(previous, word) {
			return true
		}
	}
	return false
}
