package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rahulnsecc/AI-4-all/internal/adapter/otel"
	"github.com/rahulnsecc/AI-4-all/internal/domain/repair"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
)

// maxProposalsPerAttempt bounds the propose/validate cycle inside one
// attempt so a validator that rejects everything cannot spin forever.
const maxProposalsPerAttempt = 2

// RepairTarget is the pluggable operation the repair loop drives. Execute
// runs the input; the remaining methods diagnose a failure, propose a
// corrected input, and validate a proposal without executing it.
type RepairTarget interface {
	Execute(ctx context.Context, input string) (output string, err error)
	Diagnose(ctx context.Context, input string, execErr error) (repair.Diagnosis, error)
	ProposeFix(ctx context.Context, input string, execErr error, diag repair.Diagnosis, rejection string) (string, error)
	Validate(ctx context.Context, proposed string) (note string, err error)
}

// RepairService runs the bounded execute, diagnose, propose, validate loop.
// Every executing pass produces exactly one attempt record, appended to the
// session before the loop moves on.
type RepairService struct {
	sessions    *SessionService
	maxAttempts int
	backoff     time.Duration
	metrics     *otel.Metrics
}

// NewRepairService creates a RepairService. maxAttempts caps executing
// passes per task.
func NewRepairService(sessions *SessionService, maxAttempts int, backoff time.Duration) *RepairService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RepairService{sessions: sessions, maxAttempts: maxAttempts, backoff: backoff}
}

// SetMetrics attaches metric instruments. A nil receiver field disables them.
func (s *RepairService) SetMetrics(m *otel.Metrics) {
	s.metrics = m
}

// Run drives the loop to a terminal state. It always terminates: the
// attempt cap bounds executing passes, a non-recoverable diagnosis aborts
// immediately, and validation rejections are bounded per attempt.
func (s *RepairService) Run(ctx context.Context, sessionID, taskID string, target RepairTarget, input string) repair.Result {
	result := repair.Result{}

	for number := 1; number <= s.maxAttempts; number++ {
		attempt := repair.Attempt{
			Number:    number,
			Input:     input,
			CreatedAt: time.Now().UTC(),
		}

		output, execErr := target.Execute(ctx, input)
		if execErr == nil {
			attempt.Outcome = repair.OutcomeSuccess
			s.record(ctx, sessionID, taskID, &attempt)
			result.Attempts = append(result.Attempts, attempt)
			result.State = repair.StateSucceeded
			result.Output = output
			return result
		}
		attempt.Error = execErr.Error()

		// Diagnosing.
		attempt.Diagnosis = s.diagnose(ctx, target, input, execErr)

		if !attempt.Diagnosis.Category.Recoverable() {
			attempt.Outcome = repair.OutcomeAbort
			s.record(ctx, sessionID, taskID, &attempt)
			result.Attempts = append(result.Attempts, attempt)
			result.State = repair.StateAborted
			return result
		}

		if number == s.maxAttempts {
			// No executing pass left to run a fix.
			attempt.Outcome = repair.OutcomeAbort
			attempt.ValidationNote = "attempt cap reached"
			s.record(ctx, sessionID, taskID, &attempt)
			result.Attempts = append(result.Attempts, attempt)
			result.State = repair.StateAborted
			return result
		}

		// ProposingFix and Validating, re-proposing on rejection.
		fix, note, ok := s.proposeAndValidate(ctx, target, input, execErr, attempt.Diagnosis)
		attempt.ProposedFix = fix
		attempt.ValidationNote = note
		if !ok {
			attempt.Outcome = repair.OutcomeAbort
			s.record(ctx, sessionID, taskID, &attempt)
			result.Attempts = append(result.Attempts, attempt)
			result.State = repair.StateAborted
			return result
		}

		attempt.Outcome = repair.OutcomeRetry
		s.record(ctx, sessionID, taskID, &attempt)
		result.Attempts = append(result.Attempts, attempt)

		input = fix
		if s.backoff > 0 {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				result.State = repair.StateAborted
				return result
			}
		}
	}

	result.State = repair.StateAborted
	return result
}

// diagnose classifies an execution failure. Context timeouts are transient
// by definition; everything else is the target's call, and a failing
// diagnoser degrades to unknown (recoverable).
func (s *RepairService) diagnose(ctx context.Context, target RepairTarget, input string, execErr error) repair.Diagnosis {
	if errors.Is(execErr, context.DeadlineExceeded) || errors.Is(execErr, context.Canceled) {
		return repair.Diagnosis{Category: repair.CategoryTransient, Detail: execErr.Error()}
	}

	diag, err := target.Diagnose(ctx, input, execErr)
	if err != nil {
		return repair.Diagnosis{
			Category: repair.CategoryUnknown,
			Detail:   fmt.Sprintf("diagnosis failed: %v", err),
		}
	}
	return diag
}

// proposeAndValidate returns a validated fix, the final validation note, and
// whether a usable fix was found.
func (s *RepairService) proposeAndValidate(ctx context.Context, target RepairTarget, input string, execErr error, diag repair.Diagnosis) (string, string, bool) {
	rejection := ""
	for try := 0; try < maxProposalsPerAttempt; try++ {
		fix, err := target.ProposeFix(ctx, input, execErr, diag, rejection)
		if err != nil {
			return "", fmt.Sprintf("propose failed: %v", err), false
		}

		note, err := target.Validate(ctx, fix)
		if err == nil {
			return fix, note, true
		}
		rejection = err.Error()
	}
	return "", "validation rejected all proposals: " + rejection, false
}

func (s *RepairService) record(ctx context.Context, sessionID, taskID string, attempt *repair.Attempt) {
	_, span := otel.StartRepairSpan(ctx, taskID, attempt.Number)
	span.SetAttributes(attribute.String("outcome", string(attempt.Outcome)))
	span.End()
	if s.metrics != nil {
		s.metrics.RepairAttempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(attempt.Outcome)),
		))
	}

	if s.sessions == nil || sessionID == "" {
		return
	}
	// Recording must not alter loop behavior; a failed append is logged by
	// the session service and the loop carries on.
	_, _ = s.sessions.Append(ctx, sessionID, taskID, session.TurnRepairAttempt, "repair-loop", attempt)
}
