package cli

import (
	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/mcp"
	"github.com/ctagard/launchfile/internal/version"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the launch workflow as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
debug_file, debug_resolve, debug_list_configs, debug_list_sessions and
debug_disconnect. Logs go to stderr.

Example MCP client configuration:

    {
      "mcpServers": {
        "launchfile": {
          "command": "launchfile",
          "args": ["serve"]
        }
      }
    }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := opts.source()
			cfg, err := source.Load("")
			if err != nil {
				return err
			}
			logger := opts.logger(cfg, cmd.ErrOrStderr())

			server := mcp.NewServer(mcp.ServerConfig{
				Settings: source,
				Config:   cfg,
				Version:  version.Version,
				Logger:   logger,
			})
			defer server.Close()

			return server.ServeStdio()
		},
	}
}
