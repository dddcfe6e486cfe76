// Package mcp exposes read-only AgentHub state over the Model Context
// Protocol so external assistants can inspect tasks, sessions, and reports.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

// TaskLister lists and fetches tasks.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
}

// SessionReader fetches the session history for a task.
type SessionReader interface {
	GetSessionByTask(ctx context.Context, taskID string) (*session.Session, error)
}

// ReportReader fetches the persisted report for a task.
type ReportReader interface {
	GetReport(ctx context.Context, taskID string) (*store.Report, error)
}

// ServerConfig holds MCP server configuration.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps holds the read-side dependencies the tools query.
type ServerDeps struct {
	TaskLister    TaskLister
	SessionReader SessionReader
	ReportReader  ReportReader
}

// Server exposes AgentHub tools over MCP streamable HTTP.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates an MCP server with all tools registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start begins serving MCP over streamable HTTP in a background goroutine.
func (s *Server) Start() error {
	handler := mcpserver.NewStreamableHTTPServer(s.mcpServer)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.cfg.APIKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()

	slog.Info("mcp server listening", "addr", s.cfg.Addr)
	return nil
}

// Stop gracefully shuts down the MCP HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
