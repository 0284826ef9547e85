package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/notify"
	"github.com/ctagard/launchfile/internal/resolve"
)

func newListCommand(opts *options) *cobra.Command {
	var wf workspaceFlags

	cmd := &cobra.Command{
		Use:   "list [file]",
		Short: "List launch configurations and build tasks",
		Long: `List the configurations of .vscode/launch.json and the tasks of
.vscode/tasks.json. With a file or --language, also show which entries the
current naming convention matches for its language id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			notifier := notify.NewWriter(stderr, nil)

			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			wctx, err := wf.context(file)
			if err != nil {
				return err
			}

			settings, err := opts.source().Load(wctx.Folder)
			if err != nil {
				notify.Error(notifier, err)
				return reported(err)
			}

			catalog, err := resolve.List(wctx.Folder, wctx.Document.Tag(), settings)
			if err != nil {
				notify.Error(notifier, err)
				return reported(err)
			}

			if opts.json {
				return printJSON(stdout, catalog)
			}
			for _, warning := range catalog.Warnings {
				notifier.Notify(notify.Message{Level: notify.LevelWarning, Text: warning})
			}
			return printCatalog(stdout, catalog)
		},
	}

	wf.register(cmd)
	return cmd
}

func printCatalog(out io.Writer, c *resolve.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\n", c.LaunchPath)
	fmt.Fprintln(w, "  NAME\tTYPE\tREQUEST\tPRELAUNCHTASK")
	for _, info := range c.Configurations {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", info.Name, info.Type, info.Request, info.PreLaunchTask)
	}

	fmt.Fprintf(w, "\n%s\n", c.TasksPath)
	for _, label := range c.Tasks {
		fmt.Fprintf(w, "  %s\n", label)
	}

	if m := c.Match; m != nil {
		fmt.Fprintf(w, "\nmatching %q (strategy %s, debug suffix %q)\n", m.FileType, c.Strategy, c.DebugSuffix)
		fmt.Fprintf(w, "  configurations:\t%s\n", joinOrNone(m.Configurations))
		fmt.Fprintf(w, "  tasks:\t%s\n", joinOrNone(m.Tasks))
	}
	return w.Flush()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return strings.Join(quoted, ", ")
}
