// Package cli implements the launchfile command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/config"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/workspace"
)

// options holds the persistent flags shared by all commands.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	json       bool
}

// source returns the settings source. It re-reads the file on every Load.
func (o *options) source() config.FileSource {
	return config.FileSource{Path: o.configPath}
}

// logger builds the logger from the settings, the environment and the
// flags, in increasing precedence.
func (o *options) logger(cfg *config.Config, out io.Writer) *slog.Logger {
	lc := &applog.Config{
		Level:     cfg.Log.Level,
		Format:    applog.Format(cfg.Log.Format),
		AddSource: cfg.Log.AddSource,
		Output:    out,
	}
	lc = applog.FromEnv(lc)
	if o.logLevel != "" {
		lc.Level = strings.ToLower(o.logLevel)
	}
	if o.logFormat != "" {
		lc.Format = applog.Format(strings.ToLower(o.logFormat))
	}
	return applog.New(lc)
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// workspaceFlags selects the document and workspace of a command.
type workspaceFlags struct {
	language  string
	workspace string
}

func (f *workspaceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language id of the file, overriding the one derived from its extension")
	cmd.Flags().StringVarP(&f.workspace, "workspace", "w", "", "Workspace folder holding .vscode/ (default: discovered from the file)")
}

func (f *workspaceFlags) context(file string) (workspace.Context, error) {
	return workspace.New(workspace.Options{
		File:       file,
		LanguageID: f.language,
		Folder:     f.workspace,
	})
}

// NewRootCommand creates the launchfile command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "launchfile",
		Short: "Build and debug a file from its VS Code launch and task configuration",
		Long: `launchfile debugs the current file the way .vscode/launch.json describes it.

The file's language id picks the debug configuration whose name starts with
that id and ends with the debug suffix (default "_Debug"), e.g. "cpp_Debug".
When that configuration names a build task through preLaunchTask, the task
from .vscode/tasks.json runs first and debugging starts after it has ended.

Run 'launchfile serve' to expose the same workflow as an MCP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to settings file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output in JSON format")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return HandleExitError(cmd.ExecuteContext(ctx), stderr)
}
