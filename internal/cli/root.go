package cli

import (
	"log/slog"
	"os"

	"clustersim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// defaultConfigPath returns the cluster definition path, checking CLUSTERSIM_CONFIG first.
func defaultConfigPath() string {
	if p := os.Getenv("CLUSTERSIM_CONFIG"); p != "" {
		return p
	}
	return "config.yml"
}

// NewRootCmd creates the root cobra command for the clustersim CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clustersim",
		Short: "Simulate scheduling policies on a pool of compute workers",
		Long: "clustersim feeds inference-style jobs with randomized arrivals to a fixed pool of workers\n" +
			"and reports mean response time, utilization and throughput per scheduling policy.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", defaultConfigPath(), "Cluster definition file, YAML or JSON (or CLUSTERSIM_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newCompareCmd(),
		newReplayCmd(),
	)

	return root
}
