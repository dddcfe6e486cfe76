package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTasksTool(),
		s.getTaskTool(),
		s.getSessionTool(),
		s.getReportTool(),
	)
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tasks",
		mcplib.WithDescription("List all tasks submitted to AgentHub"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListTasks,
	}
}

func (s *Server) getTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_task",
		mcplib.WithDescription("Get a task by ID"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID to look up"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetTask,
	}
}

func (s *Server) getSessionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_session",
		mcplib.WithDescription("Get the full session history for a task, including every turn in order"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID whose session to fetch"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetSession,
	}
}

func (s *Server) getReportTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_report",
		mcplib.WithDescription("Get the final report produced for a task"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID whose report to fetch"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetReport,
	}
}

func (s *Server) handleListTasks(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.TaskLister == nil {
		return mcplib.NewToolResultError("task lister not configured"), nil
	}
	tasks, err := s.deps.TaskLister.ListTasks(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list tasks", err), nil
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal tasks", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.TaskLister == nil {
		return mcplib.NewToolResultError("task lister not configured"), nil
	}
	taskID, ok := req.GetArguments()["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	t, err := s.deps.TaskLister.GetTask(ctx, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get task %s", taskID), err,
		), nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal task", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetSession(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.SessionReader == nil {
		return mcplib.NewToolResultError("session reader not configured"), nil
	}
	taskID, ok := req.GetArguments()["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	sess, err := s.deps.SessionReader.GetSessionByTask(ctx, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get session for task %s", taskID), err,
		), nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal session", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetReport(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.ReportReader == nil {
		return mcplib.NewToolResultError("report reader not configured"), nil
	}
	taskID, ok := req.GetArguments()["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	r, err := s.deps.ReportReader.GetReport(ctx, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get report for task %s", taskID), err,
		), nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal report", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
