package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/rig/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run the requested targets and their dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			parallelism, _ := cmd.Flags().GetInt("parallel")
			continueOnFailure, _ := cmd.Flags().GetBool("continue")
			satisfied, _ := cmd.Flags().GetStringSlice("skip")
			outputMode, _ := cmd.Flags().GetString("output-mode")
			ci, _ := cmd.Flags().GetBool("ci")
			metricsFile, _ := cmd.Flags().GetString("metrics-file")
			noHistory, _ := cmd.Flags().GetBool("no-history")

			// If --ci is set, override output-mode to "linear"
			if ci {
				outputMode = "linear"
			}

			_, err := c.app.Run(cmd.Context(), args, app.RunOptions{
				Dir:               c.dir,
				Parallelism:       parallelism,
				ContinueOnFailure: continueOnFailure,
				Satisfied:         satisfied,
				OutputMode:        outputMode,
				MetricsFile:       metricsFile,
				NoHistory:         noHistory,
			})
			return err
		},
	}
	cmd.Flags().IntP("parallel", "p", 1, "Maximum number of targets running at once")
	cmd.Flags().Bool("continue", false, "Keep running independent targets after a failure")
	cmd.Flags().StringSlice("skip", nil, "Treat these targets as already succeeded")
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, tui, or linear")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics of the run to this file")
	cmd.Flags().Bool("no-history", false, "Do not store the run report")
	return cmd
}
