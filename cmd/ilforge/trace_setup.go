package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilforge/internal/project"
	"ilforge/internal/trace"
)

type traceSession struct {
	tracer    trace.Tracer
	ring      *trace.RingTracer
	format    trace.Format
	heartbeat *trace.Heartbeat
}

// session is the tracer of the command being executed.
var session *traceSession

// setupTracing builds the tracer from the [trace] table of the nearest
// manifest, overridden by explicitly set flags, and attaches it to the
// command context.
func setupTracing(cmd *cobra.Command) error {
	cfg := project.Defaults().Trace
	if m, ok, err := project.Load("."); err != nil {
		return err
	} else if ok {
		cfg = m.Config.Trace
	}

	flags := cmd.Flags()
	for flag, dst := range map[string]*string{
		"trace":        &cfg.Output,
		"trace-level":  &cfg.Level,
		"trace-mode":   &cfg.Mode,
		"trace-format": &cfg.Format,
	} {
		if !flags.Changed(flag) {
			continue
		}
		v, err := flags.GetString(flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	// --trace alone asks for phase spans.
	if flags.Changed("trace") && !flags.Changed("trace-level") && cfg.Level == "off" {
		cfg.Level = "phase"
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: cfg.Output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	s := &traceSession{tracer: tracer, format: format}
	if ring, ok := tracer.(*trace.RingTracer); ok {
		s.ring = ring
	}
	if s.format == trace.FormatAuto {
		s.format = trace.FormatText
	}
	if heartbeat > 0 {
		s.heartbeat = trace.StartHeartbeat(tracer, heartbeat)
	}
	session = s
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return nil
}

// finishTracing stops the heartbeat and closes the tracer. After a failure
// the ring buffer, if any, is dumped to stderr.
func finishTracing(cmd *cobra.Command, failed bool) {
	s := session
	if s == nil {
		return
	}
	session = nil
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
	if failed && s.ring != nil {
		if err := s.ring.Dump(cmd.ErrOrStderr(), s.format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
		}
	}
	if err := s.tracer.Flush(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
}
