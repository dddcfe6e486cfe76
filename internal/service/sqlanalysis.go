package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/agent"
	"github.com/rahulnsecc/AI-4-all/internal/domain/repair"
	"github.com/rahulnsecc/AI-4-all/internal/domain/report"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/inference"
	"github.com/rahulnsecc/AI-4-all/internal/port/sqlengine"
	"github.com/rahulnsecc/AI-4-all/internal/service/prompts"
)

// SQLService analyzes a query: it executes through the repair loop, then
// runs the SQL reviewer panel over the final query and its plan, and
// assembles the analysis report.
type SQLService struct {
	engine    sqlengine.Engine
	generator inference.Generator
	repairs   *RepairService
	panel     *PanelService
}

// NewSQLService creates a SQLService.
func NewSQLService(engine sqlengine.Engine, generator inference.Generator, repairs *RepairService, panel *PanelService) *SQLService {
	return &SQLService{engine: engine, generator: generator, repairs: repairs, panel: panel}
}

// Run analyzes the query in t.Payload. A repaired query that ultimately
// fails still yields a report carrying the diagnosis and attempt history.
func (s *SQLService) Run(ctx context.Context, t task.Task, sessionID string) (*report.SQLReport, error) {
	target := &sqlRepairTarget{engine: s.engine, generator: s.generator}

	rep := &report.SQLReport{
		TaskID: t.ID,
		Query:  t.Payload,
	}

	result := s.repairs.Run(ctx, sessionID, t.ID, target, t.Payload)
	rep.RepairAttempts = result.Attempts

	if result.State != repair.StateSucceeded {
		last := result.Attempts[len(result.Attempts)-1]
		rep.ErrorDiagnosis = fmt.Sprintf("%s: %s", last.Diagnosis.Category, last.Diagnosis.Detail)
		rep.GeneratedAt = time.Now().UTC()
		return rep, nil
	}

	executed := t.Payload
	if n := len(result.Attempts); n > 0 {
		executed = result.Attempts[n-1].Input
	}
	rep.ExecutedQuery = executed

	plan := ""
	if planSet, err := s.engine.Explain(ctx, executed); err == nil {
		var lines []string
		for _, row := range planSet.Rows {
			lines = append(lines, strings.Join(row, " "))
		}
		plan = strings.Join(lines, "\n")
	}

	verdicts, err := s.panel.Review(ctx, sessionID, t.ID, agent.SQLReviewers(), executed, plan)
	if err != nil {
		return nil, fmt.Errorf("sql panel: %w", err)
	}
	for _, v := range verdicts {
		switch v.Role {
		case "sql-validator":
			rep.ValidationFindings = v.Findings
		case "plan-analyzer":
			rep.PlanFindings = v.Findings
		}
	}

	rep.ProfileStats = profile(result.Output)
	rep.GeneratedAt = time.Now().UTC()
	return rep, nil
}

// profile summarizes the result set shape from the loop's textual output.
func profile(output string) map[string]any {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	stats := map[string]any{
		"row_count": 0,
	}
	if len(lines) > 1 {
		// First line is the column header.
		stats["row_count"] = len(lines) - 1
		stats["column_count"] = len(strings.Split(lines[0], "\t"))
	}
	return stats
}

// sqlRepairTarget adapts the SQL engine and the inference backend to the
// repair loop.
type sqlRepairTarget struct {
	engine    sqlengine.Engine
	generator inference.Generator
}

func (t *sqlRepairTarget) Execute(ctx context.Context, query string) (string, error) {
	rs, err := t.engine.Execute(ctx, query)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, "\t"))
	}
	return sb.String(), nil
}

// Diagnose classifies by SQLSTATE class first; failures the state machine
// cannot place go to the model.
func (t *sqlRepairTarget) Diagnose(ctx context.Context, query string, execErr error) (repair.Diagnosis, error) {
	var se *sqlengine.Error
	if errors.As(execErr, &se) {
		if cat, ok := classifySQLState(se.Code); ok {
			return repair.Diagnosis{Category: cat, Detail: se.Message}, nil
		}
	}

	prompt, err := prompts.Render("diagnose", map[string]any{
		"Input": query,
		"Error": execErr.Error(),
	})
	if err != nil {
		return repair.Diagnosis{}, err
	}
	out, err := t.generator.Generate(ctx, inference.Request{Prompt: prompt})
	if err != nil {
		return repair.Diagnosis{}, err
	}
	return parseDiagnosis(out), nil
}

func (t *sqlRepairTarget) ProposeFix(ctx context.Context, query string, execErr error, diag repair.Diagnosis, rejection string) (string, error) {
	prompt, err := prompts.Render("propose_fix", map[string]any{
		"Category":  string(diag.Category),
		"Detail":    diag.Detail,
		"Input":     query,
		"Error":     execErr.Error(),
		"Rejection": rejection,
	})
	if err != nil {
		return "", err
	}
	out, err := t.generator.Generate(ctx, inference.Request{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Validate runs EXPLAIN on the proposal. The query is planned but not
// executed, so validation has no side effects.
func (t *sqlRepairTarget) Validate(ctx context.Context, proposed string) (string, error) {
	if _, err := t.engine.Explain(ctx, proposed); err != nil {
		return "", fmt.Errorf("explain rejected proposal: %w", err)
	}
	return "explain ok", nil
}

// classifySQLState maps SQLSTATE classes onto failure categories.
func classifySQLState(code string) (repair.Category, bool) {
	switch {
	case code == "42501", strings.HasPrefix(code, "28"):
		return repair.CategoryPermission, true
	case strings.HasPrefix(code, "42"):
		return repair.CategorySyntax, true
	case strings.HasPrefix(code, "55"), code == "40001", code == "40P01", code == "23505":
		return repair.CategoryResource, true
	case strings.HasPrefix(code, "08"), code == "57014", code == "53300":
		return repair.CategoryTransient, true
	default:
		return "", false
	}
}

// parseDiagnosis reads the "category:"/"detail:" response format. Anything
// unparseable is unknown, which keeps the loop recoverable.
func parseDiagnosis(out string) repair.Diagnosis {
	diag := repair.Diagnosis{Category: repair.CategoryUnknown}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "category:"):
			raw := strings.TrimSpace(line[len("category:"):])
			switch repair.Category(strings.ToLower(raw)) {
			case repair.CategorySyntax, repair.CategoryPermission, repair.CategoryResource,
				repair.CategoryTransient, repair.CategoryUnknown:
				diag.Category = repair.Category(strings.ToLower(raw))
			}
		case strings.HasPrefix(lower, "detail:"):
			diag.Detail = strings.TrimSpace(line[len("detail:"):])
		}
	}
	return diag
}
