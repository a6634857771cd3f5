package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clustersim/internal/sched"
	"github.com/spf13/cobra"
)

// overrides holds the flags that take precedence over the config file.
type overrides struct {
	policy    string
	timeScale float64
	seed      int64
	silent    bool
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.policy, "policy", "p", "", "Scheduling policy: round_robin, shortest_job_first, priority")
	cmd.Flags().Float64Var(&o.timeScale, "time-scale", 0, "Real seconds per simulated time unit")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "Arrival jitter seed (0 = random)")
	cmd.Flags().BoolVarP(&o.silent, "silent", "s", false, "Suppress progress lines")
}

// apply copies every explicitly set flag onto cfg.
func (o *overrides) apply(cmd *cobra.Command, cfg *sched.Config) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Policy = o.policy
	}
	if flags.Changed("time-scale") {
		cfg.TimeScale = o.timeScale
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("silent") {
		cfg.Silent = o.silent
	}
}

func loadConfig(cmd *cobra.Command, o *overrides) (sched.Config, error) {
	cfg, err := sched.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	o.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", flagConfig, err)
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	var (
		o       overrides
		csvPath string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &o)
			if err != nil {
				return err
			}

			s, err := sched.New(cfg, sched.WithLogger(logger), sched.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := s.EnableCSVLogging(csvPath); err != nil {
					return fmt.Errorf("open event log: %w", err)
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := s.Run(ctx)
			if err != nil {
				return fmt.Errorf("simulation: %w", err)
			}
			return renderReport(cmd.OutOrStdout(), report, asJSON)
		},
	}

	o.register(cmd)
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the event log to this CSV file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
