// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// The server exposes the build-then-debug workflow to MCP clients over stdio:
//
// Workflow:
//   - debug_file: Build (when a build step is linked) and debug a source file
//   - debug_resolve: Show the plan for a file without running it
//   - debug_list_configs: List launch configurations, tasks and matches
//
// Sessions:
//   - debug_list_sessions: List debug sessions started by this server
//   - debug_disconnect: Disconnect from a session
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ctagard/launchfile/internal/adapters"
	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/dap"
	"github.com/ctagard/launchfile/internal/debug"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/pipeline"
)

// ServerName is the name announced to MCP clients.
const ServerName = "launchfile"

// ServerConfig wires a Server.
type ServerConfig struct {
	// Settings is re-read on every tool call.
	Settings config.Source

	// Config holds the startup settings: adapter paths and the session limit.
	Config *config.Config

	Version string
	Logger  *slog.Logger

	// Starter replaces the DAP starter when set.
	Starter debug.Starter
}

// Server wraps the MCP server with the launch workflow
type Server struct {
	mcpServer      *server.MCPServer
	sessionManager *dap.SessionManager
	starter        debug.Starter
	engines        func(output *OutputBuffer) pipeline.EngineFactory
	settings       config.Source
	logger         *slog.Logger
}

// NewServer creates a new launchfile MCP server
func NewServer(cfg ServerConfig) *Server {
	if cfg.Config == nil {
		cfg.Config = config.DefaultConfig()
	}
	if cfg.Settings == nil {
		cfg.Settings = config.FileSource{}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := applog.WithComponent(cfg.Logger, "mcp")

	mcpServer := server.NewMCPServer(
		ServerName,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	sessionManager := dap.NewSessionManager(cfg.Config.MaxSessions, cfg.Logger)
	starter := cfg.Starter
	if starter == nil {
		starter = debug.NewDAPStarter(adapters.NewRegistry(cfg.Config), sessionManager, cfg.Logger)
	}
	engines := func(output *OutputBuffer) pipeline.EngineFactory {
		return pipeline.ExecutorEngines(output, cfg.Logger)
	}

	s := &Server{
		mcpServer:      mcpServer,
		sessionManager: sessionManager,
		starter:        starter,
		engines:        engines,
		settings:       cfg.Settings,
		logger:         logger,
	}

	s.registerTools()

	return s
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// Close disconnects every session started by the server.
func (s *Server) Close() {
	s.sessionManager.Close()
}

// GetSessionManager returns the session manager
func (s *Server) GetSessionManager() *dap.SessionManager {
	return s.sessionManager
}
