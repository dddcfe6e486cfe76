package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/port/inference"
	"github.com/rahulnsecc/AI-4-all/internal/service/prompts"
)

// AgentService invokes roster agents. Generation agents call the inference
// backend with the session history as cross-agent context; fetch agents call
// their registered tools synchronously.
type AgentService struct {
	generator inference.Generator
	tools     *ToolRegistry
}

// NewAgentService creates an AgentService.
func NewAgentService(generator inference.Generator, tools *ToolRegistry) *AgentService {
	return &AgentService{generator: generator, tools: tools}
}

// Invoke runs one agent against the payload. history supplies earlier turns
// so generation agents see upstream outputs. Tool failures do not fail the
// invocation; they are folded into the result.
func (s *AgentService) Invoke(ctx context.Context, def agent.Definition, payload string, history []session.Turn) (*agent.Result, error) {
	switch def.Capability {
	case agent.CapabilityGenerate:
		return s.invokeGenerate(ctx, def, payload, history)
	case agent.CapabilityFetch:
		return s.invokeFetch(ctx, def, payload)
	default:
		return nil, fmt.Errorf("agent %s: capability %s has no generic invocation", def.Name, def.Capability)
	}
}

func (s *AgentService) invokeGenerate(ctx context.Context, def agent.Definition, payload string, history []session.Turn) (*agent.Result, error) {
	var contextLines []string
	for _, turn := range history {
		if turn.Kind == session.TurnAgentOutput {
			contextLines = append(contextLines, fmt.Sprintf("[%s] %s", turn.Actor, string(turn.Payload)))
		}
	}

	artifact, err := s.generator.Generate(ctx, inference.Request{
		System:  fmt.Sprintf("You are %s, a %s.", def.Name, def.Role),
		Prompt:  payload,
		Context: contextLines,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", def.Name, err)
	}

	return &agent.Result{
		Agent:     def.Name,
		Artifact:  artifact,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *AgentService) invokeFetch(ctx context.Context, def agent.Definition, payload string) (*agent.Result, error) {
	result := &agent.Result{
		Agent:     def.Name,
		CreatedAt: time.Now().UTC(),
	}

	for _, name := range def.Tools {
		tool, ok := s.tools.Lookup(name)
		if !ok {
			result.ToolResults = append(result.ToolResults, agent.ToolResult{
				Tool: name,
				Err:  &agent.ToolError{Tool: name, Message: "tool not registered"},
			})
			continue
		}

		out, err := tool.Invoke(ctx, map[string]string{"query": payload})
		tr := agent.ToolResult{Tool: name, Output: out}
		if err != nil {
			if te, ok := err.(*agent.ToolError); ok {
				tr.Err = te
			} else {
				tr.Err = &agent.ToolError{Tool: name, Message: err.Error()}
			}
			tr.Output = ""
		}
		result.ToolResults = append(result.ToolResults, tr)

		if tr.Err == nil && result.Artifact == "" {
			result.Artifact = out
		}
	}

	if result.Artifact == "" {
		// Every tool failed or none are registered. Surface what happened
		// as the artifact so the session records it.
		result.Artifact = fmt.Sprintf("%s produced no data", def.Name)
	}
	return result, nil
}

// Draft runs the writer prompt, optionally folding review feedback into a
// revision request.
func (s *AgentService) Draft(ctx context.Context, payload string, feedback []string) (string, error) {
	prompt, err := prompts.Render("writer", map[string]any{
		"Payload":  payload,
		"Feedback": feedback,
	})
	if err != nil {
		return "", err
	}
	return s.generator.Generate(ctx, inference.Request{
		System: "You are Writer, a content writer.",
		Prompt: prompt,
	})
}

// Critique runs the critic prompt over a draft.
func (s *AgentService) Critique(ctx context.Context, artifact string) (string, error) {
	prompt, err := prompts.Render("critic", map[string]any{"Artifact": artifact})
	if err != nil {
		return "", err
	}
	return s.generator.Generate(ctx, inference.Request{
		System: "You are Critic, a content critic.",
		Prompt: prompt,
	})
}
