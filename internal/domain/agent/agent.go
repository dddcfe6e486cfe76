// Package agent defines the agent roster: role-bound wrappers around one
// external capability plus their callable tools.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// Capability tags the single external capability an agent wraps.
type Capability string

const (
	CapabilityGenerate Capability = "generate-text"
	CapabilityFetch    Capability = "fetch-data"
	CapabilityAct      Capability = "execute-action"
)

// Definition describes one agent. Configuration is fixed at construction;
// agents are stateless across tasks.
type Definition struct {
	Name       string      `json:"name"`
	Role       string      `json:"role"`
	Capability Capability  `json:"capability"`
	Kinds      []task.Kind `json:"kinds"`    // task kinds this agent may serve
	Tools      []string    `json:"tools"`    // registered tool names
	Keywords   []string    `json:"keywords"` // routing match terms
}

// Handles reports whether the agent's declared kinds include k.
func (d Definition) Handles(k task.Kind) bool {
	for _, dk := range d.Kinds {
		if dk == k {
			return true
		}
	}
	return false
}

// Tool is a pure wrapper around one external call.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, args map[string]string) (string, error)
}

// ToolError is the data representation of a failed tool call. It is attached
// to the agent's result instead of aborting the pipeline.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// ToolResult is one synchronous tool invocation folded into an agent's output.
type ToolResult struct {
	Tool   string     `json:"tool"`
	Output string     `json:"output,omitempty"`
	Err    *ToolError `json:"error,omitempty"`
}

// Result is an agent's output for one invocation.
type Result struct {
	Agent       string       `json:"agent"`
	Artifact    string       `json:"artifact"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
