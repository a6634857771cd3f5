package cli

import (
	"fmt"
	"time"

	"clustersim/internal/sched"
	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	var (
		o      overrides
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run the same workload under every policy and compare the reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &o)
			if err != nil {
				return err
			}
			// every policy sees the same arrivals
			if cfg.Seed == 0 {
				cfg.Seed = time.Now().UnixNano()
			}
			cfg.Silent = true

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			reports := make([]sched.Report, 0, len(sched.Policies()))
			for _, p := range sched.Policies() {
				run := cfg
				run.Policy = string(p)
				s, err := sched.New(run, sched.WithLogger(logger))
				if err != nil {
					return err
				}
				logger.Info("comparing policy", "policy", p, "seed", run.Seed)
				report, err := s.Run(ctx)
				if err != nil {
					return fmt.Errorf("simulation %s: %w", p, err)
				}
				reports = append(reports, report)
			}
			return renderComparison(cmd.OutOrStdout(), reports, asJSON)
		},
	}

	o.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reports as JSON")
	return cmd
}
