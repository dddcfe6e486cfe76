package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/review"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// ContentReport is the persisted output of one content task.
type ContentReport struct {
	TaskID      string                    `json:"task_id"`
	Artifact    string                    `json:"artifact"`
	Accepted    bool                      `json:"accepted"`
	Rounds      []review.ConsolidatedReport `json:"rounds"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// ContentService runs the writer pipeline: draft, critique, panel review,
// and at most one revision round when the panel rejects the first draft.
type ContentService struct {
	agents   *AgentService
	panel    *PanelService
	sessions *SessionService
}

// NewContentService creates a ContentService.
func NewContentService(agents *AgentService, panel *PanelService, sessions *SessionService) *ContentService {
	return &ContentService{agents: agents, panel: panel, sessions: sessions}
}

// Run produces the content report for a task. The final report is returned
// even when the panel rejects both rounds; Accepted records the outcome.
func (s *ContentService) Run(ctx context.Context, t task.Task, sessionID string) (*ContentReport, error) {
	rep := &ContentReport{TaskID: t.ID}

	draft, err := s.agents.Draft(ctx, t.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	s.appendOutput(ctx, sessionID, t.ID, agent.NameWriter, draft)

	critique, err := s.agents.Critique(ctx, draft)
	if err != nil {
		// The critic is advisory; the panel is the gate.
		slog.Warn("critic failed, continuing to panel", "task_id", t.ID, "error", err)
		critique = ""
	} else {
		s.appendOutput(ctx, sessionID, t.ID, agent.NameCritic, critique)
	}

	verdicts, err := s.panel.Review(ctx, sessionID, t.ID, agent.ContentReviewers(), draft, critique)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	round := Consolidate(t.ID, task.KindContent, 1, verdicts)
	rep.Rounds = append(rep.Rounds, round)
	rep.Artifact = draft
	rep.Accepted = round.Accepted

	if !round.Accepted {
		feedback := make([]string, 0, len(round.Findings))
		for _, f := range round.Findings {
			feedback = append(feedback, fmt.Sprintf("%s: %s", f.Reviewer, f.Text))
		}

		revised, err := s.agents.Draft(ctx, t.Payload, feedback)
		if err != nil {
			return nil, fmt.Errorf("revision draft: %w", err)
		}
		s.appendOutput(ctx, sessionID, t.ID, agent.NameWriter, revised)

		verdicts, err = s.panel.Review(ctx, sessionID, t.ID, agent.ContentReviewers(), revised, "")
		if err != nil {
			return nil, fmt.Errorf("revision panel: %w", err)
		}
		round = Consolidate(t.ID, task.KindContent, 2, verdicts)
		rep.Rounds = append(rep.Rounds, round)
		rep.Artifact = revised
		rep.Accepted = round.Accepted
	}

	rep.GeneratedAt = time.Now().UTC()
	return rep, nil
}

func (s *ContentService) appendOutput(ctx context.Context, sessionID, taskID, actor, text string) {
	if s.sessions == nil || sessionID == "" {
		return
	}
	_, _ = s.sessions.Append(ctx, sessionID, taskID, session.TurnAgentOutput, actor,
		map[string]string{"artifact": text})
}
