package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/pipeline"
)

func newResolveCommand(opts *options) *cobra.Command {
	var wf workspaceFlags

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Show the debug configuration and build task a file resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			wctx, err := wf.context(args[0])
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

			workflow := pipeline.NewWorkflow(pipeline.WorkflowConfig{
				Settings: source,
				Notifier: notify.NewWriter(stderr, logger),
				Logger:   logger,
			})
			plan, err := workflow.Resolve(cmd.Context(), wctx)
			if err != nil {
				return reported(err)
			}

			info := plan.Info()
			if opts.json {
				return printJSON(stdout, info)
			}

			w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "workspace:\t%s\n", wctx.Folder)
			fmt.Fprintf(w, "file type:\t%s\n", info.FileType)
			fmt.Fprintf(w, "strategy:\t%s\n", info.Strategy)
			fmt.Fprintf(w, "debug configuration:\t%s\n", info.DebugConfigID)
			if info.BuildStepID != "" {
				fmt.Fprintf(w, "build task:\t%s\n", info.BuildStepID)
			} else {
				fmt.Fprintf(w, "build task:\t(none)\n")
			}
			return w.Flush()
		},
	}

	wf.register(cmd)
	return cmd
}
