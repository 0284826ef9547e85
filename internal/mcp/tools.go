package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the workflow and session tools
func (s *Server) registerTools() {
	// Workflow
	s.registerDebugFile()
	s.registerDebugResolve()
	s.registerDebugListConfigs()

	// Sessions
	s.registerDebugListSessions()
	s.registerDebugDisconnect()
}

func (s *Server) registerDebugFile() {
	tool := mcp.NewTool("debug_file",
		mcp.WithDescription("Build and debug a source file the way VS Code's launch.json and tasks.json describe it. The file's language id selects the debug configuration whose name starts with it and ends with the debug suffix (e.g. cpp_Debug). If that configuration links a build task through preLaunchTask, the task runs first and the session starts only after it has ended. Returns the plan, the build outcome with its output, and the sessionId of the started session."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path of the source file to debug."),
		),
		mcp.WithString("language",
			mcp.Description("Language id overriding the one derived from the file extension, e.g. 'cpp', 'python', 'go', 'rust'."),
		),
		mcp.WithString("workspace",
			mcp.Description("Workspace folder holding .vscode/. Discovered from the file when omitted."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugFile)
}

func (s *Server) registerDebugResolve() {
	tool := mcp.NewTool("debug_resolve",
		mcp.WithDescription("Show which debug configuration and build task debug_file would use for a file, without running anything."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path of the source file."),
		),
		mcp.WithString("language",
			mcp.Description("Language id overriding the one derived from the file extension."),
		),
		mcp.WithString("workspace",
			mcp.Description("Workspace folder holding .vscode/. Discovered from the file when omitted."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugResolve)
}

func (s *Server) registerDebugListConfigs() {
	tool := mcp.NewTool("debug_list_configs",
		mcp.WithDescription("List the configurations in launch.json and the tasks in tasks.json. When a file or language is given, also list the entries matching its language id under the current naming convention."),
		mcp.WithString("workspace",
			mcp.Description("Workspace folder holding .vscode/. Discovered from the file or the working directory when omitted."),
		),
		mcp.WithString("file",
			mcp.Description("Source file whose language id is matched against the names."),
		),
		mcp.WithString("language",
			mcp.Description("Language id to match, overriding the one derived from file."),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugListConfigs)
}

func (s *Server) registerDebugListSessions() {
	tool := mcp.NewTool("debug_list_sessions",
		mcp.WithDescription("List debug sessions started by debug_file that are still running."),
	)
	s.mcpServer.AddTool(tool, s.handleDebugListSessions)
}

func (s *Server) registerDebugDisconnect() {
	tool := mcp.NewTool("debug_disconnect",
		mcp.WithDescription("Disconnect from a debug session and release its adapter."),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("The debug session ID"),
		),
		mcp.WithBoolean("terminateDebuggee",
			mcp.Description("Terminate the debugged process (default: false)"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleDebugDisconnect)
}
