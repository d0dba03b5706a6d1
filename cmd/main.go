// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/sysspecs/internal/format"
	"github.com/antimetal/sysspecs/internal/output"
	"github.com/antimetal/sysspecs/internal/version"
	"github.com/antimetal/sysspecs/pkg/snapshot"
	// Import to trigger collector init() registration
	_ "github.com/antimetal/sysspecs/pkg/snapshot/collectors"
)

var (
	// CLI Options
	formatName string
	outputBase string
	verbosity  int
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysspecs",
		Short: "Capture a snapshot of host system specifications",
		Long: "sysspecs gathers OS, CPU, memory, disk and GPU information from the host\n" +
			"and renders it as text, JSON or CSV, to the console or to a file.",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.SetVersionTemplate(version.String() + "\n")

	cmd.Flags().StringVarP(&formatName, "format", "f", string(format.FormatText),
		"Output format: text, json or csv")
	cmd.Flags().StringVarP(&outputBase, "output", "o", "",
		"Output file base name; the format extension is appended. Omit to print to stdout")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0,
		"Log verbosity (higher is noisier); diagnostics go to stderr")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	// Validate configuration before any collection or output happens: an
	// unrecognized format must not leave a partial artifact behind
	f, err := format.Parse(formatName)
	if err != nil {
		return err
	}

	logger := newLogger(verbosity)

	gatherer, err := snapshot.NewGatherer(logger, snapshot.DefaultCollectionConfig(), version.Version)
	if err != nil {
		return fmt.Errorf("unable to create gatherer: %w", err)
	}

	snap, runInfo := gatherer.Collect(cmd.Context())
	for metricType, stat := range runInfo.CollectorStats {
		if stat.Status != snapshot.CollectorStatusActive {
			logger.V(1).Info("Category degraded",
				"metric_type", metricType, "status", stat.Status, "error", stat.Error)
		}
	}

	data, err := format.Render(snap, f)
	if err != nil {
		return err
	}

	sink := output.NewSink(outputBase)
	if err := sink.Write(data, f); err != nil {
		return err
	}
	if path := sink.Path(f); path != "" {
		logger.Info("Wrote snapshot", "path", path, "format", f)
	}
	return nil
}

// newLogger builds the logr.Logger used across the run. Output goes to
// stderr so stdout stays clean for snapshot data.
func newLogger(verbosity int) logr.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		// logr V-levels map onto negative zap levels
		zap.NewAtomicLevelAt(zapcore.Level(-verbosity)),
	)
	return zapr.NewLogger(zap.New(core))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
