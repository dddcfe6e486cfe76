// Package session defines the append-only session record for one task.
package session

import (
	"encoding/json"
	"time"
)

// Status is the session lifecycle state. A session is created open and
// closed exactly once.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TurnKind identifies what a turn records.
type TurnKind string

const (
	TurnRouting       TurnKind = "routing_decision"
	TurnAgentOutput   TurnKind = "agent_output"
	TurnVerdictSet    TurnKind = "verdict_set"
	TurnRepairAttempt TurnKind = "repair_attempt"
	TurnReport        TurnKind = "report"
)

// Turn is one immutable entry in a session. Seq is assigned by the store at
// append time and is strictly increasing per session.
type Turn struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	TaskID    string          `json:"task_id"`
	Seq       int             `json:"seq"`
	Kind      TurnKind        `json:"kind"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Session is the durable, append-only record of one task's agent
// interactions. A task has exactly one active session.
type Session struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	Status    Status     `json:"status"`
	Diagnosis string     `json:"diagnosis,omitempty"` // human-readable, set on failure
	Turns     []Turn     `json:"turns,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}
