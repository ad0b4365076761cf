// Package cli wires the presubmit gates to the command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "presubmit",
	Short: "Run upload and commit presubmit gates",
	Long: `presubmit checks a change before it is uploaded for review or committed.

Each gate runs a battery of checks (line endings, tabs, trailing whitespace,
line length, formatting and lint) and reports a PASS or FAIL verdict.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var debugLogging bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	rootCmd.AddCommand(onUploadCmd)
	rootCmd.AddCommand(onCommitCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
