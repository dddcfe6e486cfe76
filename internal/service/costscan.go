package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/config"
	"github.com/rahulnsecc/AI-4-all/internal/domain/repair"
	"github.com/rahulnsecc/AI-4-all/internal/domain/report"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/action"
	"github.com/rahulnsecc/AI-4-all/internal/port/cache"
	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
)

const hoursPerMonth = 730

// CostScanService scans VM utilization and deallocates or downsizes idle
// resources. Mutations are guarded twice: eligibility is computed from the
// scan sample, then re-confirmed with a fresh sample immediately before the
// actuator call.
type CostScanService struct {
	metrics  datafetch.MetricsFetcher
	actuator action.Actuator
	cache    cache.Cache
	repairs  *RepairService
	cfg      config.CostScan
	ttl      time.Duration
}

// NewCostScanService creates a CostScanService. cache may be nil; samples
// are then always fetched fresh.
func NewCostScanService(metrics datafetch.MetricsFetcher, actuator action.Actuator, c cache.Cache, repairs *RepairService, cfg config.CostScan, ttl time.Duration) *CostScanService {
	return &CostScanService{
		metrics:  metrics,
		actuator: actuator,
		cache:    c,
		repairs:  repairs,
		cfg:      cfg,
		ttl:      ttl,
	}
}

// Run scans every resource and produces the cost report. A failed action on
// one resource does not stop the scan; the row records what happened.
func (s *CostScanService) Run(ctx context.Context, t task.Task, sessionID string) (*report.CostReport, error) {
	ids, err := s.metrics.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	rep := &report.CostReport{TaskID: t.ID}
	for _, id := range ids {
		sample, err := s.sampleCached(ctx, id)
		if err != nil {
			slog.Warn("metrics fetch failed, skipping resource", "resource_id", id, "error", err)
			continue
		}

		row := report.CostRow{
			ResourceID:  id,
			Utilization: sample.CPUPercent,
			ActionTaken: "none",
		}

		if s.eligible(sample) {
			target := &costRepairTarget{svc: s, taskID: t.ID}
			result := s.repairs.Run(ctx, sessionID, t.ID, target, id)
			if result.State == repair.StateSucceeded {
				row.ActionTaken = s.cfg.Action
				row.EstimatedSavings = monthlySavings(sample, s.cfg.Action)
				rep.TotalSaving += row.EstimatedSavings
			}
		}

		rep.Rows = append(rep.Rows, row)
	}

	rep.GeneratedAt = time.Now().UTC()
	return rep, nil
}

// eligible applies the idle policy: CPU below the threshold and uptime at
// or past the minimum. Young resources may simply not have warmed up yet.
func (s *CostScanService) eligible(sample *datafetch.UtilizationSample) bool {
	return sample.CPUPercent < s.cfg.CPUThreshold &&
		sample.UptimeHours >= s.cfg.MinUptime.Hours()
}

// sampleCached reads a utilization sample through the cache. Only the scan
// phase uses this; the pre-action gate always fetches fresh.
func (s *CostScanService) sampleCached(ctx context.Context, id string) (*datafetch.UtilizationSample, error) {
	key := "metrics:" + id
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var sample datafetch.UtilizationSample
			if err := json.Unmarshal(data, &sample); err == nil {
				return &sample, nil
			}
		}
	}

	sample, err := s.metrics.FetchMetrics(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(sample); err == nil {
			_ = s.cache.Set(ctx, key, data, s.ttl)
		}
	}
	return sample, nil
}

// monthlySavings estimates USD per month for the applied action. A downsize
// is assumed to halve the hourly rate.
func monthlySavings(sample *datafetch.UtilizationSample, actionName string) float64 {
	monthly := sample.HourlyCost * hoursPerMonth
	if actionName == "downsize" {
		return monthly / 2
	}
	return monthly
}

// costRepairTarget drives one resource's mutation through the repair loop.
// Execute re-confirms eligibility on a fresh sample before calling the
// actuator, so a resource that woke up after the scan is never touched.
type costRepairTarget struct {
	svc     *CostScanService
	taskID  string
	applies int
}

func (t *costRepairTarget) Execute(ctx context.Context, resourceID string) (string, error) {
	sample, err := t.svc.metrics.FetchMetrics(ctx, resourceID)
	if err != nil {
		return "", err
	}
	if !t.svc.eligible(sample) {
		return "", &action.Error{
			Code:    "invalid_state",
			Message: fmt.Sprintf("resource %s no longer idle (cpu=%.1f%%, uptime=%.0fh)", resourceID, sample.CPUPercent, sample.UptimeHours),
		}
	}

	t.applies++
	key := fmt.Sprintf("%s-%s-%d", t.taskID, resourceID, t.applies)
	ack, err := t.svc.actuator.Apply(ctx, resourceID, t.svc.cfg.Action, key)
	if err != nil {
		return "", err
	}

	// The cached sample describes the resource before the mutation.
	if t.svc.cache != nil {
		_ = t.svc.cache.Delete(ctx, "metrics:"+resourceID)
	}
	return fmt.Sprintf("%s applied to %s at %s", ack.Action, ack.ResourceID, ack.AppliedAt.Format(time.RFC3339)), nil
}

// Diagnose maps the typed action error codes; no model call is needed for
// infrastructure failures.
func (t *costRepairTarget) Diagnose(_ context.Context, _ string, execErr error) (repair.Diagnosis, error) {
	code := ""
	switch e := execErr.(type) {
	case *action.Error:
		code = e.Code
	case *datafetch.Error:
		code = e.Code
	}

	switch code {
	case "permission_denied":
		return repair.Diagnosis{Category: repair.CategoryPermission, Detail: execErr.Error()}, nil
	case "invalid_state", "not_found":
		return repair.Diagnosis{Category: repair.CategoryResource, Detail: execErr.Error()}, nil
	case "rate_limited", "unreachable", "read_failed":
		return repair.Diagnosis{Category: repair.CategoryTransient, Detail: execErr.Error()}, nil
	default:
		return repair.Diagnosis{Category: repair.CategoryUnknown, Detail: execErr.Error()}, nil
	}
}

// ProposeFix keeps the same resource; the fix for an infrastructure failure
// is re-running the gated apply, not rewriting the input.
func (t *costRepairTarget) ProposeFix(_ context.Context, resourceID string, _ error, _ repair.Diagnosis, _ string) (string, error) {
	return resourceID, nil
}

// Validate re-checks eligibility on a fresh sample. A resource that became
// busy since the failure rejects the retry.
func (t *costRepairTarget) Validate(ctx context.Context, resourceID string) (string, error) {
	sample, err := t.svc.metrics.FetchMetrics(ctx, resourceID)
	if err != nil {
		return "", err
	}
	if !t.svc.eligible(sample) {
		return "", fmt.Errorf("resource %s no longer eligible", resourceID)
	}
	return "still idle", nil
}
