// cmd/show.go

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/tradeinfra/host-conformance/pkg/report"
)

// newShowCmd re-renders a saved run from the JSON data written next to its report
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <report.adoc>",
		Short: "Print a previously saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := report.LoadCheckResults(args[0])
			if err != nil {
				return &SetupError{Err: err}
			}

			renderer := report.NewConsoleRenderer(cmd.OutOrStdout())
			renderer.Banner(saved.Title, fmt.Sprintf("%s (recorded %s)",
				saved.Hostname, saved.GeneratedAt.Format("2006-01-02 15:04:05")))
			for _, check := range saved.Checks {
				renderer.AddCheck(check)
			}

			summary := saved.Summary()
			renderer.Summary(summary)
			if !summary.OK() {
				return ErrChecksFailed
			}
			return nil
		},
	}
}
