// Package datafetch defines the port interface for read-only external data
// capabilities: web search, finance quotes, and VM utilization metrics.
package datafetch

import (
	"context"
	"fmt"
	"time"
)

// Selector identifies what to fetch.
type Selector struct {
	Kind     string // "quote", "search", "metrics"
	Query    string // ticker symbol or search terms
	Resource string // resource ID for metrics
}

// Result is a structured fetch result.
type Result struct {
	Source  string            `json:"source"`
	Summary string            `json:"summary"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// UtilizationSample is one VM utilization observation.
type UtilizationSample struct {
	ResourceID  string    `json:"resource_id"`
	CPUPercent  float64   `json:"cpu_percent"`
	UptimeHours float64   `json:"uptime_hours"`
	SKU         string    `json:"sku"`
	HourlyCost  float64   `json:"hourly_cost"` // USD
	SampledAt   time.Time `json:"sampled_at"`
}

// Fetcher is the generic data-fetch port.
type Fetcher interface {
	Fetch(ctx context.Context, sel Selector) (*Result, error)
}

// MetricsFetcher is the VM utilization port used by cost scans.
type MetricsFetcher interface {
	ListResources(ctx context.Context) ([]string, error)
	FetchMetrics(ctx context.Context, resourceID string) (*UtilizationSample, error)
}

// Error is the typed failure of a fetch call.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Code, e.Message)
}
