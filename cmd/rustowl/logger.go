package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/logx"
)

// newLogger builds the process logger from the persistent log flags.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	flags := cmd.Root().PersistentFlags()
	level, err := flags.GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	asJSON, err := flags.GetBool("log-json")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	return logx.New(logx.Options{Level: level, JSON: asJSON, Verbose: verbose})
}
