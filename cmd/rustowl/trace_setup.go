package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MuntasirSZN/rustowl/internal/trace"
)

type traceFlags struct {
	output    string
	level     string
	mode      string
	format    string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	flags := cmd.Root().PersistentFlags()
	var (
		tf  traceFlags
		err error
	)
	if tf.output, err = flags.GetString("trace"); err != nil {
		return tf, fmt.Errorf("failed to get trace flag: %w", err)
	}
	if tf.level, err = flags.GetString("trace-level"); err != nil {
		return tf, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if tf.mode, err = flags.GetString("trace-mode"); err != nil {
		return tf, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	if tf.format, err = flags.GetString("trace-format"); err != nil {
		return tf, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	if tf.ringSize, err = flags.GetInt("trace-ring-size"); err != nil {
		return tf, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if tf.heartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return tf, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	return tf, nil
}

// setupTracing builds the tracer selected by the trace flags and attaches it
// to the command context. The returned cleanup stops the heartbeat and
// flushes the tracer; a ring-only tracer is dumped to stderr first.
func setupTracing(cmd *cobra.Command, log *zap.Logger) (func(), error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	level, err := trace.ParseLevel(tf.level)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		if tf.output == "" {
			cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
			return func() {}, nil
		}
		// an explicit --trace file implies phase events
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(tf.mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	format, err := trace.ParseFormat(tf.format)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: tf.output,
		RingSize:   tf.ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	progress := &trace.Progress{}
	cmd.SetContext(trace.WithProgress(trace.WithTracer(cmd.Context(), tracer), progress))

	heartbeat := trace.StartHeartbeat(tracer, tf.heartbeat, progress)
	return func() {
		heartbeat.Stop()
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				log.Warn("trace dump failed", zap.Error(err))
			}
		}
		if err := tracer.Flush(); err != nil {
			log.Warn("trace flush failed", zap.Error(err))
		}
		if err := tracer.Close(); err != nil {
			log.Warn("trace close failed", zap.Error(err))
		}
	}, nil
}
