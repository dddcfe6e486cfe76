package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventSessionTurn   = "session.turn"
	EventSessionClosed = "session.closed"
	EventReportReady   = "report.ready"
)

// SessionTurnEvent is broadcast for every turn appended to a session.
type SessionTurnEvent struct {
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id"`
	Seq       int    `json:"seq"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
}

// SessionClosedEvent is broadcast when a session transitions to a terminal
// status.
type SessionClosedEvent struct {
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Diagnosis string `json:"diagnosis,omitempty"`
}

// ReportReadyEvent is broadcast when a task's report has been persisted.
type ReportReadyEvent struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
