package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MuntasirSZN/rustowl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "rustowl",
	Short:         "Ownership and lifetime analysis for Rust functions",
	Long:          `rustowl turns borrow-checker facts into per-variable lifetime, borrow and drop ranges`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		return applyColorMode(mode, os.Stdout)
	},
}

// main registers subcommands and persistent flags and executes the root
// command, exiting with status 1 on error.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "shorthand for --log-level=debug")

	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace event format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer size for --trace-mode=ring|both")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
