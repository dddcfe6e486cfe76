// Package store defines the persistence port for tasks, sessions, reports,
// and API keys.
package store

import (
	"context"

	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// Report is a persisted report record keyed by task.
type Report struct {
	TaskID  string `json:"task_id"`
	Kind    string `json:"kind"`
	Payload []byte `json:"payload"`
}

// Store is the persistence port. AppendTurn is the single write path for
// session history: it assigns the turn's Seq atomically and never mutates
// existing turns.
type Store interface {
	CreateTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)

	// CreateSession persists a new open session. Returns domain.ErrConflict
	// if the task already has an active session.
	CreateSession(ctx context.Context, s *session.Session) error
	GetSessionByTask(ctx context.Context, taskID string) (*session.Session, error)

	// AppendTurn assigns the next sequence number for the turn's session and
	// persists it. Each append is atomic and total.
	AppendTurn(ctx context.Context, turn *session.Turn) error

	// CloseSession transitions an open session to completed or failed.
	CloseSession(ctx context.Context, sessionID string, status session.Status, diagnosis string) error

	SaveReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, taskID string) (*Report, error)

	// API key auth.
	CreateAPIKey(ctx context.Context, name, hash string) error
	ListAPIKeyHashes(ctx context.Context) ([]string, error)
}
