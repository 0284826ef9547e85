package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctagard/launchfile/internal/version"
)

// VersionInfo is the JSON output of the version command.
type VersionInfo struct {
	Version string              `json:"version"`
	Update  *version.UpdateInfo `json:"update,omitempty"`
}

func newVersionCommand(opts *options) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: version.Version}
			if check {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				info.Update = version.NewChecker().CheckForUpdates(ctx)
			}

			if opts.json {
				return printJSON(cmd.OutOrStdout(), info)
			}

			cmd.Printf("launchfile version %s\n", info.Version)
			if u := info.Update; u != nil {
				switch {
				case u.Error != "":
					cmd.PrintErrf("update check failed: %s\n", u.Error)
				case u.UpdateAvailable:
					cmd.Println(u.UpdateMessage())
				default:
					cmd.Println("launchfile is up to date")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	return cmd
}
