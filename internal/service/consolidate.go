package service

import (
	"fmt"
	"strings"

	"github.com/rahulnsecc/AI-4-all/internal/domain/review"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// Consolidate merges one round of verdicts into a single report. The merge
// is a pure function and fails closed: acceptance requires every present
// verdict to pass AND every mandatory reviewer role for the kind to have
// produced a verdict. Findings keep their reviewer attribution and are never
// deduplicated; the same observation from two reviewers is independent
// confirmation.
func Consolidate(taskID string, kind task.Kind, round int, verdicts []review.Verdict) review.ConsolidatedReport {
	rep := review.ConsolidatedReport{
		TaskID:   taskID,
		Round:    round,
		Accepted: true,
	}

	seen := make(map[string]bool, len(verdicts))
	var failed []string
	for _, v := range verdicts {
		seen[v.Role] = true
		rep.Findings = append(rep.Findings, v.Findings...)
		if !v.Pass {
			rep.Accepted = false
			failed = append(failed, v.Reviewer)
		}
	}

	for _, role := range review.MandatoryRoles(kind) {
		if !seen[role] {
			rep.Accepted = false
			rep.Missing = append(rep.Missing, role)
		}
	}

	switch {
	case rep.Accepted:
		rep.Rationale = fmt.Sprintf("all %d verdicts pass", len(verdicts))
	case len(rep.Missing) > 0 && len(failed) == 0:
		rep.Rationale = "missing mandatory reviewer: " + strings.Join(rep.Missing, ", ")
	case len(rep.Missing) > 0:
		rep.Rationale = fmt.Sprintf("failed: %s; missing mandatory reviewer: %s",
			strings.Join(failed, ", "), strings.Join(rep.Missing, ", "))
	default:
		rep.Rationale = "failed: " + strings.Join(failed, ", ")
	}
	return rep
}
