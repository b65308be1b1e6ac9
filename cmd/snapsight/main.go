// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command snapsight resolves Jest snapshot assertions to their recorded
// snapshots, from the command line or as an HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/snapsight/services/snapsight/config"
	"github.com/AleutianAI/snapsight/services/snapsight/lookup"
	"github.com/AleutianAI/snapsight/services/snapsight/telemetry"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath   string
	logFormat    string
	logLevel     string
	traceOutput  string
	otlpEndpoint string
}

// app is the state built by the root command before any subcommand runs.
type app struct {
	opts     globalOptions
	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc

	// registerer receives the OpenTelemetry metric bridge; nil skips it.
	registerer prometheus.Registerer
}

func (a *app) newResolver() (*lookup.Resolver, error) {
	return lookup.NewResolver(a.cfg, lookup.WithLogger(a.logger))
}

func main() {
	if err := newRootCmd(prometheus.DefaultRegisterer).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd(registerer prometheus.Registerer) *cobra.Command {
	a := &app{registerer: registerer}

	root := &cobra.Command{
		Use:   "snapsight",
		Short: "Resolve Jest snapshot assertions to their recorded snapshots",
		Long: `snapsight finds the snapshot an expect(...).toMatchSnapshot() call refers to.

The snapshot name is built from the titles of the enclosing describe/it/test
blocks and the index of the assertion within its block, then looked up in the
__snapshots__/<file>.snap artifact next to the test file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "snapsight.yaml", "YAML config file; missing means defaults")
	flags.StringVar(&a.opts.logFormat, "log-format", "auto", "Log format (auto, json, text)")
	flags.StringVar(&a.opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.opts.traceOutput, "trace", telemetry.ExporterNone, "Span exporter (none, stdout, otlp)")
	flags.StringVar(&a.opts.otlpEndpoint, "otlp-endpoint", "", "OTLP collector address for --trace=otlp")

	root.AddCommand(newResolveCmd(a), newPathsCmd(a), newServeCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	level, err := telemetry.ParseLevel(a.opts.logLevel)
	if err != nil {
		return err
	}
	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), a.opts.logFormat, level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.logger = logger

	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Options{
		Exporter:             a.opts.traceOutput,
		OTLPEndpoint:         a.opts.otlpEndpoint,
		Writer:               cmd.ErrOrStderr(),
		PrometheusRegisterer: a.registerer,
	})
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	cfg, err := config.Load(cmd.Context(), a.opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) close() error {
	if a.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	return nil
}
