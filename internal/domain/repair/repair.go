// Package repair defines the repair loop state machine vocabulary: states,
// failure categories, and the append-only attempt record.
package repair

import "time"

// State is a repair loop state. Transitions:
// Executing -> Diagnosing -> ProposingFix -> Validating ->
// {Succeeded | Retrying -> Executing | Aborted}.
type State string

const (
	StateExecuting    State = "executing"
	StateDiagnosing   State = "diagnosing"
	StateProposingFix State = "proposing_fix"
	StateValidating   State = "validating"
	StateSucceeded    State = "succeeded"
	StateRetrying     State = "retrying"
	StateAborted      State = "aborted"
)

// Terminal reports whether the state ends the loop.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateAborted
}

// Category classifies an execution failure.
type Category string

const (
	CategorySyntax     Category = "syntax"
	CategoryPermission Category = "permission"
	CategoryResource   Category = "resource-state"
	CategoryTransient  Category = "transient"
	CategoryUnknown    Category = "unknown"
)

// Recoverable reports whether the loop may retry after this diagnosis.
// A permission failure always aborts.
func (c Category) Recoverable() bool {
	return c != CategoryPermission
}

// Diagnosis is the classification of one execution failure.
type Diagnosis struct {
	Category Category `json:"category"`
	Detail   string   `json:"detail"`
}

// Outcome is the result of one attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeRetry   Outcome = "retry"
	OutcomeAbort   Outcome = "abort"
)

// Attempt is the record of one Executing pass through the loop, including
// the diagnosis, proposed fix, and validation result that followed it.
// Attempt numbers are strictly increasing per task.
type Attempt struct {
	Number         int       `json:"number"`
	Input          string    `json:"input"`
	Error          string    `json:"error,omitempty"`
	Diagnosis      Diagnosis `json:"diagnosis,omitzero"`
	ProposedFix    string    `json:"proposed_fix,omitempty"`
	ValidationNote string    `json:"validation_note,omitempty"`
	Outcome        Outcome   `json:"outcome"`
	CreatedAt      time.Time `json:"created_at"`
}

// Result is the loop's terminal summary.
type Result struct {
	State    State     `json:"state"`
	Output   string    `json:"output,omitempty"`
	Attempts []Attempt `json:"attempts"`
}
