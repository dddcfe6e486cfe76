package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
)

// ToolRegistry maps tool names to their implementations. Agents invoke tools
// synchronously; tool failures become data on the agent result rather than
// pipeline errors.
type ToolRegistry struct {
	tools map[string]agent.Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]agent.Tool)}
}

// Register adds a tool. Later registrations with the same name win.
func (r *ToolRegistry) Register(t agent.Tool) {
	r.tools[t.Name()] = t
}

// Lookup returns the named tool.
func (r *ToolRegistry) Lookup(name string) (agent.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// fetchTool adapts a datafetch.Fetcher into an agent tool.
type fetchTool struct {
	name    string
	kind    string
	fetcher datafetch.Fetcher
}

// NewFetchTool wraps a fetcher as a named tool. kind selects what the
// fetcher retrieves ("quote" or "search").
func NewFetchTool(name, kind string, fetcher datafetch.Fetcher) agent.Tool {
	return &fetchTool{name: name, kind: kind, fetcher: fetcher}
}

func (t *fetchTool) Name() string { return t.name }

func (t *fetchTool) Invoke(ctx context.Context, args map[string]string) (string, error) {
	query := args["query"]
	if query == "" {
		return "", &agent.ToolError{Tool: t.name, Message: "query argument is required"}
	}

	res, err := t.fetcher.Fetch(ctx, datafetch.Selector{Kind: t.kind, Query: query})
	if err != nil {
		return "", &agent.ToolError{Tool: t.name, Message: err.Error()}
	}

	data, err := json.Marshal(res)
	if err != nil {
		return "", &agent.ToolError{Tool: t.name, Message: fmt.Sprintf("marshal result: %v", err)}
	}
	return string(data), nil
}
