package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/pipeline"
	"github.com/ctagard/launchfile/internal/resolve"
	"github.com/ctagard/launchfile/internal/workspace"
	"github.com/ctagard/launchfile/pkg/types"
)

// Workflow Handlers

// debugFileResult is the debug_file payload.
type debugFileResult struct {
	*types.RunResult
	Output string `json:"output,omitempty"`
}

func (s *Server) handleDebugFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wctx, err := workspace.New(workspace.Options{
		File:       file,
		LanguageID: request.GetString("language", ""),
		Folder:     request.GetString("workspace", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output := NewOutputBuffer(maxBuildOutput)
	recorder := &notify.Recorder{}
	workflow := s.newWorkflow(recorder, output)

	result, err := workflow.Run(ctx, wctx)
	if err != nil {
		return failureResult(recorder, err, output.String()), nil
	}

	return jsonResult(debugFileResult{
		RunResult: result,
		Output:    output.String(),
	})
}

func (s *Server) handleDebugResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wctx, err := workspace.New(workspace.Options{
		File:       file,
		LanguageID: request.GetString("language", ""),
		Folder:     request.GetString("workspace", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	recorder := &notify.Recorder{}
	plan, err := s.newWorkflow(recorder, nil).Resolve(ctx, wctx)
	if err != nil {
		return failureResult(recorder, err, ""), nil
	}

	return jsonResult(map[string]interface{}{
		"workspace": wctx.Folder,
		"file":      wctx.Document.Path,
		"plan":      plan.Info(),
	})
}

func (s *Server) handleDebugListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wctx, err := workspace.New(workspace.Options{
		File:       request.GetString("file", ""),
		LanguageID: request.GetString("language", ""),
		Folder:     request.GetString("workspace", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	settings, err := s.settings.Load(wctx.Folder)
	if err != nil {
		return failureResult(nil, err, ""), nil
	}

	tag := ""
	if wctx.HasDocument() {
		tag = wctx.Document.Tag()
	}
	catalog, err := resolve.List(wctx.Folder, tag, settings)
	if err != nil {
		return failureResult(nil, err, ""), nil
	}
	return jsonResult(catalog)
}

// Session Handlers

func (s *Server) handleDebugListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.sessionManager.ListSessions()

	result := make([]types.SessionInfo, len(sessions))
	for i, session := range sessions {
		result[i] = session.GetInfo()
	}

	return jsonResult(map[string]interface{}{
		"sessions": result,
	})
}

func (s *Server) handleDebugDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("sessionId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	terminateDebuggee := request.GetBool("terminateDebuggee", false)

	if err := s.sessionManager.TerminateSession(sessionID, terminateDebuggee); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"sessionId": sessionID,
		"status":    "disconnected",
	})
}

// Helper functions

// newWorkflow builds the workflow for one tool call. Settings are re-read by
// the workflow itself.
func (s *Server) newWorkflow(notifier notify.Notifier, output *OutputBuffer) *pipeline.Workflow {
	if output == nil {
		output = NewOutputBuffer(maxBuildOutput)
	}
	return pipeline.NewWorkflow(pipeline.WorkflowConfig{
		Settings: s.settings,
		Engines:  s.engines(output),
		Starter:  s.starter,
		Notifier: notifier,
		Logger:   s.logger,
	})
}

// failureResult renders the messages the workflow displayed for err, or err
// itself when nothing was recorded, followed by any build output.
func failureResult(recorder *notify.Recorder, err error, output string) *mcp.CallToolResult {
	var lines []string
	if recorder != nil {
		for _, m := range recorder.Messages() {
			lines = append(lines, m.String())
		}
	}
	if len(lines) == 0 {
		lines = append(lines, notify.FromError(err).String())
	}

	text := strings.Join(lines, "\n")
	if output != "" {
		text += "\n\nBuild output:\n" + output
	}
	return mcp.NewToolResultError(text)
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
