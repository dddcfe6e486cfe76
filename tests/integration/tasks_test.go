//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

func submitTask(t *testing.T, kind, payload string) task.Task {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"kind": kind, "payload": payload})
	resp, err := http.Post(testServer.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/tasks: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var created task.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created
}

func waitForSession(t *testing.T, taskID string) session.Session {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(testServer.URL + "/api/v1/tasks/" + taskID + "/session")
		if err != nil {
			t.Fatalf("GET session: %v", err)
		}
		var sess session.Session
		err = json.NewDecoder(resp.Body).Decode(&sess)
		_ = resp.Body.Close()
		if err == nil && sess.Status != session.StatusOpen {
			return sess
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("session never reached a terminal status")
	return session.Session{}
}

func TestSearchTaskLifecycle(t *testing.T) {
	created := submitTask(t, "search", "latest Go release notes")
	if created.ID == "" {
		t.Fatal("task has no ID")
	}

	sess := waitForSession(t, created.ID)
	if sess.Status != session.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", sess.Status, sess.Diagnosis)
	}
	if len(sess.Turns) == 0 || sess.Turns[0].Kind != session.TurnRouting {
		t.Fatalf("first turn must be the routing decision, got %+v", sess.Turns)
	}
	for i := 1; i < len(sess.Turns); i++ {
		if sess.Turns[i].Seq != sess.Turns[i-1].Seq+1 {
			t.Fatalf("turn sequence not dense: %d after %d", sess.Turns[i].Seq, sess.Turns[i-1].Seq)
		}
	}

	resp, err := http.Get(testServer.URL + "/api/v1/tasks/" + created.ID + "/report")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"kind": "laundry", "payload": "x"})
	resp, err := http.Post(testServer.URL+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListTasksIncludesSubmitted(t *testing.T) {
	created := submitTask(t, "search", "find something")

	resp, err := http.Get(testServer.URL + "/api/v1/tasks")
	if err != nil {
		t.Fatalf("GET /api/v1/tasks: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var tasks []task.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, tk := range tasks {
		if tk.ID == created.ID {
			return
		}
	}
	t.Fatalf("submitted task %s not in list", created.ID)
}
