// Package review defines reviewer verdicts and their consolidated report.
package review

import (
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
)

// Finding is a single reviewer observation, attributed to its reviewer.
// Duplicate findings from different reviewers are independent confirmation
// and are never deduplicated.
type Finding struct {
	Reviewer string `json:"reviewer"`
	Severity string `json:"severity,omitempty"`
	Text     string `json:"text"`
}

// Verdict is one reviewer's independent pass/fail judgment over an artifact
// snapshot. Immutable once emitted.
type Verdict struct {
	Reviewer    string    `json:"reviewer"`
	Role        string    `json:"role"`
	ArtifactRef string    `json:"artifact_ref"`
	Pass        bool      `json:"pass"`
	Findings    []Finding `json:"findings,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConsolidatedReport is the deterministic merge of one round's verdicts.
type ConsolidatedReport struct {
	TaskID    string    `json:"task_id"`
	Round     int       `json:"round"`
	Accepted  bool      `json:"accepted"`
	Findings  []Finding `json:"findings,omitempty"`
	Missing   []string  `json:"missing,omitempty"` // reviewer roles with no verdict
	Rationale string    `json:"rationale"`
}

// mandatoryRoles declares, per task kind, the reviewer roles whose verdict
// must be present and passing for acceptance. A missing or failing mandatory
// reviewer always flips the report to rejected.
var mandatoryRoles = map[task.Kind][]string{
	task.KindContent: {"seo", "legal", "ethics"},
	task.KindSQL:     {"sql-validator"},
}

// MandatoryRoles returns the mandatory reviewer roles for the given kind.
// Kinds without a panel requirement return nil.
func MandatoryRoles(k task.Kind) []string {
	return mandatoryRoles[k]
}
