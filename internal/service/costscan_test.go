package service

import (
	"context"
	"testing"
	"time"

	"github.com/rahulnsecc/AI-4-all/internal/config"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/action"
	"github.com/rahulnsecc/AI-4-all/internal/port/datafetch"
)

// fakeCompute serves scripted utilization samples and records actuator calls.
type fakeCompute struct {
	samples map[string]datafetch.UtilizationSample
	// afterFetches rewrites a resource's sample once it has been fetched
	// the given number of times, simulating a resource waking up mid-task.
	afterFetches map[string]int
	busy         datafetch.UtilizationSample
	fetches      map[string]int
	applied      []string // "resource/action/key"
	applyErr     error
}

func newFakeCompute() *fakeCompute {
	return &fakeCompute{
		samples:      make(map[string]datafetch.UtilizationSample),
		afterFetches: make(map[string]int),
		fetches:      make(map[string]int),
	}
}

func (f *fakeCompute) ListResources(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.samples))
	for id := range f.samples {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeCompute) FetchMetrics(_ context.Context, resourceID string) (*datafetch.UtilizationSample, error) {
	f.fetches[resourceID]++
	if n, ok := f.afterFetches[resourceID]; ok && f.fetches[resourceID] > n {
		s := f.busy
		s.ResourceID = resourceID
		return &s, nil
	}
	s := f.samples[resourceID]
	return &s, nil
}

func (f *fakeCompute) Apply(_ context.Context, resourceID, actionName, idempotencyKey string) (*action.Ack, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, resourceID+"/"+actionName+"/"+idempotencyKey)
	return &action.Ack{
		ResourceID: resourceID,
		Action:     actionName,
		AppliedAt:  time.Now().UTC(),
	}, nil
}

func costScanConfig() config.CostScan {
	return config.CostScan{
		CPUThreshold: 5.0,
		MinUptime:    72 * time.Hour,
		Action:       "deallocate",
	}
}

func idleSample(id string) datafetch.UtilizationSample {
	return datafetch.UtilizationSample{
		ResourceID:  id,
		CPUPercent:  1.2,
		UptimeHours: 200,
		HourlyCost:  0.10,
	}
}

func TestCostScanEligibility(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-idle"] = idleSample("vm-idle")
	compute.samples["vm-busy"] = datafetch.UtilizationSample{
		ResourceID: "vm-busy", CPUPercent: 45, UptimeHours: 500, HourlyCost: 0.20,
	}
	compute.samples["vm-young"] = datafetch.UtilizationSample{
		ResourceID: "vm-young", CPUPercent: 0.5, UptimeHours: 10, HourlyCost: 0.10,
	}

	svc := NewCostScanService(compute, compute, nil,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	rep, err := svc.Run(context.Background(), task.Task{ID: "t1", Kind: task.KindCostScan}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rep.Rows))
	}

	actions := make(map[string]string, len(rep.Rows))
	for _, row := range rep.Rows {
		actions[row.ResourceID] = row.ActionTaken
	}
	if actions["vm-idle"] != "deallocate" {
		t.Fatalf("idle resource should be deallocated, got %q", actions["vm-idle"])
	}
	if actions["vm-busy"] != "none" {
		t.Fatalf("busy resource must be untouched, got %q", actions["vm-busy"])
	}
	if actions["vm-young"] != "none" {
		t.Fatalf("young resource must be untouched, got %q", actions["vm-young"])
	}
	if len(compute.applied) != 1 {
		t.Fatalf("expected exactly 1 apply, got %v", compute.applied)
	}

	// 0.10 USD/h over a 730h month.
	if rep.TotalSaving < 72.9 || rep.TotalSaving > 73.1 {
		t.Fatalf("unexpected savings estimate %f", rep.TotalSaving)
	}
}

func TestCostScanRevalidatesBeforeApply(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-1"] = idleSample("vm-1")
	// Idle at scan time, busy by the time the gate re-fetches.
	compute.afterFetches["vm-1"] = 1
	compute.busy = datafetch.UtilizationSample{CPUPercent: 80, UptimeHours: 200, HourlyCost: 0.10}

	svc := NewCostScanService(compute, compute, nil,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	rep, err := svc.Run(context.Background(), task.Task{ID: "t1", Kind: task.KindCostScan}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(compute.applied) != 0 {
		t.Fatalf("resource that woke up must never be actioned, got %v", compute.applied)
	}
	if rep.Rows[0].ActionTaken != "none" {
		t.Fatalf("expected none, got %q", rep.Rows[0].ActionTaken)
	}
	if rep.TotalSaving != 0 {
		t.Fatalf("no action means no savings, got %f", rep.TotalSaving)
	}
}

func TestCostScanIdempotencyKey(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-1"] = idleSample("vm-1")

	svc := NewCostScanService(compute, compute, nil,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	if _, err := svc.Run(context.Background(), task.Task{ID: "task-9", Kind: task.KindCostScan}, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(compute.applied) != 1 {
		t.Fatalf("expected 1 apply, got %v", compute.applied)
	}
	want := "vm-1/deallocate/task-9-vm-1-1"
	if compute.applied[0] != want {
		t.Fatalf("expected %q, got %q", want, compute.applied[0])
	}
}

func TestCostScanPermissionDeniedAborts(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-1"] = idleSample("vm-1")
	compute.applyErr = &action.Error{Code: "permission_denied", Message: "missing role"}

	svc := NewCostScanService(compute, compute, nil,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	rep, err := svc.Run(context.Background(), task.Task{ID: "t1", Kind: task.KindCostScan}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Rows[0].ActionTaken != "none" {
		t.Fatalf("denied action must report none, got %q", rep.Rows[0].ActionTaken)
	}
	// Permission failures abort immediately: one gate fetch plus the scan
	// fetch, no repair retries.
	if compute.fetches["vm-1"] > 2 {
		t.Fatalf("permission failure must not retry, got %d fetches", compute.fetches["vm-1"])
	}
}

func TestCostScanUsesCachedSample(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-busy"] = datafetch.UtilizationSample{
		ResourceID: "vm-busy", CPUPercent: 45, UptimeHours: 500,
	}

	cache := newFakeCache()
	svc := NewCostScanService(compute, compute, cache,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	ctx := context.Background()
	if _, err := svc.Run(ctx, task.Task{ID: "t1", Kind: task.KindCostScan}, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := svc.Run(ctx, task.Task{ID: "t2", Kind: task.KindCostScan}, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Ineligible resources never hit the gate, so the second scan should be
	// served entirely from cache.
	if compute.fetches["vm-busy"] != 1 {
		t.Fatalf("expected 1 backend fetch, got %d", compute.fetches["vm-busy"])
	}
}

func TestCostScanInvalidatesCacheAfterApply(t *testing.T) {
	compute := newFakeCompute()
	compute.samples["vm-1"] = idleSample("vm-1")

	cache := newFakeCache()
	svc := NewCostScanService(compute, compute, cache,
		NewRepairService(nil, 3, 0), costScanConfig(), time.Minute)

	if _, err := svc.Run(context.Background(), task.Task{ID: "t1", Kind: task.KindCostScan}, ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(compute.applied) != 1 {
		t.Fatalf("expected 1 apply, got %v", compute.applied)
	}
	// The sample cached during the scan describes the pre-mutation resource.
	if _, ok := cache.data["metrics:vm-1"]; ok {
		t.Fatal("cached sample must be evicted after an apply")
	}
}

// fakeCache is a TTL-ignoring map cache.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}
