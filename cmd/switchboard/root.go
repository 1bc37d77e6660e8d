package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/switchboard/internal/dispatch"
)

var (
	debugLogPath string
	debugLogger  *dispatch.DebugLogger
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Specialist dispatch & coordination engine",
	Long: `Switchboard routes free-text problem descriptions to specialist
handlers. It classifies the problem against learned domain patterns, picks
a dispatch strategy (direct, parallel, or batched meta-dispatch), tracks
the coordination session under a correlation id, and accumulates layered
context across specialist invocations.

Core capabilities:
- Scores problem text against domain patterns and learns from outcomes
- Fans multi-domain problems out to specialists in parallel
- Accumulates findings with conflict/dependency/synergy detection
- Archives sessions and carries them as historical context`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := dispatch.NewDebugLogger(debugLogPath)
		if err != nil {
			return err
		}
		debugLogger = l
		dispatch.SetDebugLogger(l)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		dispatch.SetDebugLogger(nil)
		debugLogger.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&debugLogPath, "debug-log", "", "Write dispatch debug logging to this file")
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}
