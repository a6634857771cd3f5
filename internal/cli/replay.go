package cli

import (
	"fmt"

	"clustersim/internal/sched"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "replay <events.csv>",
		Short: "Recompute a report from a CSV event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := sched.ReadEventLogFile(args[0])
			if err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}
			logger.Debug("event log loaded", "records", len(log.Records), "dispatches", len(log.Dispatches))
			return renderReport(cmd.OutOrStdout(), sched.Replay(log).Report(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
