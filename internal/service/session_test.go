package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/memory"
	"github.com/rahulnsecc/AI-4-all/internal/domain"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
)

func TestSessionAppendOrdering(t *testing.T) {
	svc := NewSessionService(memory.NewStore(), nil, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, "task-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 1; i <= 5; i++ {
		turn, err := svc.Append(ctx, sess.ID, "task-1", session.TurnAgentOutput, "Writer",
			map[string]int{"n": i})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if turn.Seq != i {
			t.Fatalf("expected seq %d, got %d", i, turn.Seq)
		}
	}

	got, err := svc.History(ctx, "task-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got.Turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(got.Turns))
	}
	for i, turn := range got.Turns {
		if turn.Seq != i+1 {
			t.Fatalf("turn %d out of order: seq %d", i, turn.Seq)
		}
	}
}

func TestSessionConcurrentAppends(t *testing.T) {
	svc := NewSessionService(memory.NewStore(), nil, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, "task-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Append(ctx, sess.ID, "task-1", session.TurnAgentOutput, "Writer",
				fmt.Sprintf("turn %d", i)); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.History(ctx, "task-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got.Turns) != n {
		t.Fatalf("expected %d turns, got %d", n, len(got.Turns))
	}
	seen := make(map[int]bool, n)
	for _, turn := range got.Turns {
		if turn.Seq < 1 || turn.Seq > n || seen[turn.Seq] {
			t.Fatalf("sequence numbers not dense and unique: %d", turn.Seq)
		}
		seen[turn.Seq] = true
	}
}

func TestSessionSecondOpenConflicts(t *testing.T) {
	svc := NewSessionService(memory.NewStore(), nil, nil)
	ctx := context.Background()

	if _, err := svc.Open(ctx, "task-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.Open(ctx, "task-1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for second open session, got %v", err)
	}
}

func TestSessionCloseClearsDiagnosisOnSuccess(t *testing.T) {
	svc := NewSessionService(memory.NewStore(), nil, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, "task-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.Close(ctx, sess.ID, "task-1", session.StatusCompleted, "should be dropped"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := svc.History(ctx, "task-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got.Status != session.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.Diagnosis != "" {
		t.Fatalf("diagnosis must only be kept on failure, got %q", got.Diagnosis)
	}
}

func TestSessionCloseKeepsDiagnosisOnFailure(t *testing.T) {
	svc := NewSessionService(memory.NewStore(), nil, nil)
	ctx := context.Background()

	sess, err := svc.Open(ctx, "task-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.Close(ctx, sess.ID, "task-1", session.StatusFailed, "permission: denied"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := svc.History(ctx, "task-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got.Diagnosis != "permission: denied" {
		t.Fatalf("expected diagnosis kept, got %q", got.Diagnosis)
	}
}
