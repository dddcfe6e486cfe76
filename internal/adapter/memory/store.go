// Package memory provides an in-memory store.Store implementation used in
// tests and single-process development runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnsecc/AI-4-all/internal/domain"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

// Store is a mutex-guarded in-memory store.
type Store struct {
	mu       sync.Mutex
	tasks    map[string]task.Task
	taskIDs  []string // insertion order
	sessions map[string]*session.Session
	turns    map[string][]session.Turn // keyed by session ID
	reports  map[string]store.Report
	keys     []apiKey
}

type apiKey struct {
	name string
	hash string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tasks:    make(map[string]task.Task),
		sessions: make(map[string]*session.Session),
		turns:    make(map[string][]session.Turn),
		reports:  make(map[string]store.Report),
	}
}

func (s *Store) CreateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tasks[t.ID] = *t
	s.taskIDs = append(s.taskIDs, t.ID)
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *Store) ListTasks(_ context.Context) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]task.Task, 0, len(s.taskIDs))
	for i := len(s.taskIDs) - 1; i >= 0; i-- {
		tasks = append(tasks, s.tasks[s.taskIDs[i]])
	}
	return tasks, nil
}

func (s *Store) CreateSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.TaskID == sess.TaskID && existing.Status == session.StatusOpen {
			return fmt.Errorf("create session for task %s: %w", sess.TaskID, domain.ErrConflict)
		}
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.Status = session.StatusOpen
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) GetSessionByTask(_ context.Context, taskID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *session.Session
	for _, sess := range s.sessions {
		if sess.TaskID != taskID {
			continue
		}
		if latest == nil || sess.CreatedAt.After(latest.CreatedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("get session for task %s: %w", taskID, domain.ErrNotFound)
	}

	cp := *latest
	cp.Turns = append([]session.Turn(nil), s.turns[latest.ID]...)
	return &cp, nil
}

func (s *Store) AppendTurn(_ context.Context, turn *session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[turn.SessionID]; !ok {
		return fmt.Errorf("append turn: session %s: %w", turn.SessionID, domain.ErrNotFound)
	}

	turn.ID = uuid.NewString()
	turn.Seq = len(s.turns[turn.SessionID]) + 1
	turn.CreatedAt = time.Now().UTC()
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], *turn)
	return nil
}

func (s *Store) CloseSession(_ context.Context, sessionID string, status session.Status, diagnosis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Status != session.StatusOpen {
		return fmt.Errorf("close session %s: %w", sessionID, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	sess.Status = status
	sess.Diagnosis = diagnosis
	sess.ClosedAt = &now
	return nil
}

func (s *Store) SaveReport(_ context.Context, r *store.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[r.TaskID] = *r
	return nil
}

func (s *Store) GetReport(_ context.Context, taskID string) (*store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[taskID]
	if !ok {
		return nil, fmt.Errorf("get report for task %s: %w", taskID, domain.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) CreateAPIKey(_ context.Context, name, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.name == name {
			return fmt.Errorf("create api key %s: %w", name, domain.ErrConflict)
		}
	}
	s.keys = append(s.keys, apiKey{name: name, hash: hash})
	return nil
}

func (s *Store) ListAPIKeyHashes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hashes := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		hashes = append(hashes, k.hash)
	}
	return hashes, nil
}
