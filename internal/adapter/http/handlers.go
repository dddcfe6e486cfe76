package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Submitter accepts a new task and starts its session.
type Submitter interface {
	Submit(ctx context.Context, kind task.Kind, payload string) (*task.Task, error)
}

// HealthChecker reports whether the inference backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) (bool, error)
}

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	submitter Submitter
	store     store.Store
	llm       HealthChecker
	wsHandler http.HandlerFunc
}

// NewHandlers creates the handler set. llm may be nil when no inference
// backend is configured.
func NewHandlers(submitter Submitter, st store.Store, llm HealthChecker, wsHandler http.HandlerFunc) *Handlers {
	return &Handlers{submitter: submitter, store: st, llm: llm, wsHandler: wsHandler}
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.wsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/llm/health", h.LLMHealth)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/session", h.GetSession)
		r.Get("/tasks/{id}/report", h.GetReport)
	})
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LLMHealth reports whether the inference backend answers its liveness probe.
func (h *Handlers) LLMHealth(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unconfigured"})
		return
	}
	healthy, err := h.llm.Health(r.Context())
	status := "healthy"
	if !healthy || err != nil {
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type createTaskRequest struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// CreateTask submits a new task. The session runs asynchronously; the
// response carries the task ID for polling.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTaskRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}

	kind, err := task.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Payload) == "" && kind != task.KindCostScan {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	t, err := h.submitter.Submit(r.Context(), kind, req.Payload)
	if err != nil {
		writeDomainError(w, err, "task not created")
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

// ListTasks returns all tasks, newest first.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask returns one task by ID.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTask(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetSession returns the full session history for a task.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.GetSessionByTask(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetReport returns the final report for a task. The payload is stored as
// JSON and inlined into the response.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.GetReport(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": rep.TaskID,
		"kind":    rep.Kind,
		"report":  json.RawMessage(rep.Payload),
	})
}
