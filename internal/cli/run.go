package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/adapters"
	"github.com/ctagard/launchfile/internal/config"
	"github.com/ctagard/launchfile/internal/dap"
	"github.com/ctagard/launchfile/internal/debug"
	applog "github.com/ctagard/launchfile/internal/log"
	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/pipeline"
	"github.com/ctagard/launchfile/pkg/types"
)

// starterFactory creates the debug starter of one run. Tests replace it.
type starterFactory func(cfg *config.Config, sessions *dap.SessionManager, logger *slog.Logger) debug.Starter

func dapStarter(cfg *config.Config, sessions *dap.SessionManager, logger *slog.Logger) debug.Starter {
	return debug.NewDAPStarter(adapters.NewRegistry(cfg), sessions, logger)
}

func newRunCommand(opts *options) *cobra.Command {
	return newRunCommandWith(opts, dapStarter)
}

func newRunCommandWith(opts *options, starters starterFactory) *cobra.Command {
	var wf workspaceFlags
	var noWait bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Build and debug a source file",
		Long: `Resolve the debug configuration for a file, run its build task and start
the debug session once the task has ended.

Build output goes to stdout, messages to stderr. The command stays attached
until the debug session ends; interrupting it terminates the debuggee.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, opts, &wf, args[0], noWait, starters)
		},
	}

	wf.register(cmd)
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the session has started, disconnecting from it")

	return cmd
}

func runFile(cmd *cobra.Command, opts *options, wf *workspaceFlags, file string, noWait bool, starters starterFactory) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	wctx, err := wf.context(file)
	if err != nil {
		return err
	}

	source := opts.source()
	settings, err := source.Load(wctx.Folder)
	if err != nil {
		notify.Error(notify.NewWriter(stderr, nil), err)
		return reported(err)
	}
	logger := opts.logger(settings, stderr)
	notifier := notify.NewWriter(stderr, logger)

	sessions := dap.NewSessionManager(settings.MaxSessions, logger)
	defer sessions.Close()

	workflow := pipeline.NewWorkflow(pipeline.WorkflowConfig{
		Settings: source,
		Engines:  pipeline.ExecutorEngines(stdout, logger),
		Starter:  starters(settings, sessions, logger),
		Notifier: notifier,
		Logger:   logger,
	})

	result, err := workflow.Run(ctx, wctx)
	if err != nil {
		return reported(err)
	}

	if opts.json {
		if err := printJSON(stdout, result); err != nil {
			return err
		}
	} else {
		reportRun(notifier, result)
	}

	if noWait {
		return nil
	}
	waitForSession(ctx, sessions, result.Session.SessionID, notifier, logger)
	return nil
}

func reportRun(n notify.Notifier, result *types.RunResult) {
	if b := result.Build; b != nil {
		if b.Skipped {
			notify.Info(n, "build task %q is not available, debugging without a build", b.Label)
		} else {
			notify.Info(n, "build task %q exited with code %d after %s", b.Label, b.ExitCode, b.Duration.Round(time.Millisecond))
		}
	}
	if s := result.Session; s != nil {
		notify.Info(n, "debugging %q with %s (session %s)", s.ConfigName, s.Debugger, s.SessionID)
	}
}

// waitForSession blocks until the session ends or ctx is cancelled.
func waitForSession(ctx context.Context, sessions *dap.SessionManager, id string, n notify.Notifier, logger *slog.Logger) {
	session, err := sessions.GetSession(id)
	if err != nil {
		// Already ended and removed.
		return
	}
	select {
	case <-session.Done():
		notify.Info(n, "debug session %s ended", id)
	case <-ctx.Done():
		logger.Info("interrupted, terminating debug session", applog.SessionIDKey, id)
	}
}
