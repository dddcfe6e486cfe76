// Package logger provides structured logging setup for AgentHub.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/rahulnsecc/AI-4-all/internal/config"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds the process logger: JSON records on stdout, tagged with the
// service name so multi-service deployments stay filterable. Unknown level
// strings fall back to info.
func New(cfg config.Logging) *slog.Logger {
	level, ok := levels[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", cfg.Service)
}
