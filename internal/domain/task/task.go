// Package task defines the Task domain entity.
package task

import (
	"fmt"
	"time"
)

// Kind classifies a submitted task and determines which specialists may
// handle it.
type Kind string

const (
	KindContent  Kind = "content"
	KindFinance  Kind = "finance"
	KindSearch   Kind = "search"
	KindSQL      Kind = "sql"
	KindCostScan Kind = "cost-scan"
)

// Kinds lists every valid task kind in declaration order.
var Kinds = []Kind{KindContent, KindFinance, KindSearch, KindSQL, KindCostScan}

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task kind %q", s)
}

// Task is a single unit of work submitted to the hub. Immutable once created;
// the owning Session records everything that happens to it.
type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
