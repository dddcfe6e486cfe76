// Package report defines the structured records emitted to the report sink.
package report

import (
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/domain/repair"
	"github.com/rahulnsecc/AI-4-all/internal/domain/review"
)

// CostRow is one resource line of a cost-scan report.
type CostRow struct {
	ResourceID       string  `json:"resource_id"`
	Utilization      float64 `json:"utilization"`       // CPU percent over the sample window
	ActionTaken      string  `json:"action_taken"`      // "deallocate", "downsize", or "none"
	EstimatedSavings float64 `json:"estimated_savings"` // USD per month
}

// CostReport is the tabular output of one cost-scan task.
type CostReport struct {
	TaskID      string    `json:"task_id"`
	Rows        []CostRow `json:"rows"`
	TotalSaving float64   `json:"total_saving"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SQLReport is the consolidated output of one SQL analysis task.
type SQLReport struct {
	TaskID             string           `json:"task_id"`
	Query              string           `json:"query"`
	ExecutedQuery      string           `json:"executed_query"` // after repair, if any
	ValidationFindings []review.Finding `json:"validation_findings,omitempty"`
	PlanFindings       []review.Finding `json:"plan_findings,omitempty"`
	ProfileStats       map[string]any   `json:"profile_stats,omitempty"`
	ErrorDiagnosis     string           `json:"error_diagnosis,omitempty"`
	RepairAttempts     []repair.Attempt `json:"repair_attempts,omitempty"`
	GeneratedAt        time.Time        `json:"generated_at"`
}
