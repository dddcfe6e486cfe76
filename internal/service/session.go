// Package service implements the AgentHub core: routing, agent invocation,
// review panels, consolidation, the repair loop, and session recording.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/ws"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/port/broadcast"
	"github.com/rahulnsecc/AI-4-all/internal/port/messagequeue"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

// SessionService is the single write path for session history. Every turn in
// the system goes through Append, which serializes appends per session so
// sequence numbers reflect actual order.
type SessionService struct {
	store store.Store
	hub   broadcast.Broadcaster
	queue messagequeue.Queue

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-session append locks
}

// NewSessionService creates a SessionService. hub and queue may be nil in
// tests; events are then dropped.
func NewSessionService(st store.Store, hub broadcast.Broadcaster, queue messagequeue.Queue) *SessionService {
	return &SessionService{
		store: st,
		hub:   hub,
		queue: queue,
		locks: make(map[string]*sync.Mutex),
	}
}

// Open creates the active session for a task. A task with an open session
// cannot get a second one; the store enforces this with ErrConflict.
func (s *SessionService) Open(ctx context.Context, taskID string) (*session.Session, error) {
	sess := &session.Session{TaskID: taskID}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Append records one turn. The payload is marshaled to JSON, the store
// assigns the sequence number, and the turn is broadcast to live clients and
// published to the queue.
func (s *SessionService) Append(ctx context.Context, sessionID, taskID string, kind session.TurnKind, actor string, payload any) (*session.Turn, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal turn payload: %w", err)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	turn := &session.Turn{
		SessionID: sessionID,
		TaskID:    taskID,
		Kind:      kind,
		Actor:     actor,
		Payload:   data,
	}
	if err := s.store.AppendTurn(ctx, turn); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSessionTurn, ws.SessionTurnEvent{
			SessionID: sessionID,
			TaskID:    taskID,
			Seq:       turn.Seq,
			Kind:      string(kind),
			Actor:     actor,
		})
	}
	s.publish(ctx, "sessions.turn."+taskID, turn)

	return turn, nil
}

// Close transitions the session to a terminal status. diagnosis is required
// for failed sessions and ignored otherwise.
func (s *SessionService) Close(ctx context.Context, sessionID, taskID string, status session.Status, diagnosis string) error {
	if status != session.StatusFailed {
		diagnosis = ""
	}
	if err := s.store.CloseSession(ctx, sessionID, status, diagnosis); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSessionClosed, ws.SessionClosedEvent{
			SessionID: sessionID,
			TaskID:    taskID,
			Status:    string(status),
			Diagnosis: diagnosis,
		})
	}
	s.publish(ctx, "sessions.closed."+taskID, map[string]string{
		"session_id": sessionID,
		"task_id":    taskID,
		"status":     string(status),
		"diagnosis":  diagnosis,
	})
	return nil
}

// History returns the session with all turns in append order.
func (s *SessionService) History(ctx context.Context, taskID string) (*session.Session, error) {
	return s.store.GetSessionByTask(ctx, taskID)
}

func (s *SessionService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *SessionService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("queue publish failed", "subject", subject, "error", err)
	}
}
