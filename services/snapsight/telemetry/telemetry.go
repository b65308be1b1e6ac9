// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry providers and trace-correlated
// logging for snapsight processes.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names accepted by Setup.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Options selects the telemetry backends.
type Options struct {
	// Exporter is one of ExporterNone, ExporterStdout or ExporterOTLP.
	// Empty means ExporterNone.
	Exporter string

	// OTLPEndpoint is the collector address for ExporterOTLP, e.g.
	// "localhost:4317". Empty uses the exporter's environment defaults.
	OTLPEndpoint string

	// Writer receives stdout exporter output (default os.Stderr).
	Writer io.Writer

	// PrometheusRegisterer, when set, receives the OpenTelemetry metrics so
	// they are served next to the promauto collectors. A registerer accepts
	// the bridge once.
	PrometheusRegisterer prometheus.Registerer
}

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

// Setup installs global tracer and meter providers.
//
// Description:
//
//	Metrics are bridged into opts.PrometheusRegisterer when set, and with
//	the stdout exporter also printed periodically. Spans go to the chosen
//	exporter; with ExporterNone the global no-op tracer is left in place.
//
// Outputs:
//
//	ShutdownFunc - Flushes and stops every installed provider.
//	error        - Non-nil for an unknown exporter or exporter setup failure.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	switch strings.ToLower(opts.Exporter) {
	case "", ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}

	var readers []sdkmetric.Option
	if opts.PrometheusRegisterer != nil {
		promExporter, err := otelprom.New(otelprom.WithRegisterer(opts.PrometheusRegisterer))
		if err != nil {
			return nil, fmt.Errorf("creating prometheus metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(promExporter))
	}

	var (
		spanExporter sdktrace.SpanExporter
		err          error
	)
	switch strings.ToLower(opts.Exporter) {
	case "", ExporterNone:
	case ExporterStdout:
		spanExporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout span exporter: %w", err)
		}
		metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	case ExporterOTLP:
		var grpcOpts []otlptracegrpc.Option
		if opts.OTLPEndpoint != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpoint(opts.OTLPEndpoint), otlptracegrpc.WithInsecure())
		}
		spanExporter, err = otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp span exporter: %w", err)
		}
	}

	if len(readers) > 0 {
		mp := sdkmetric.NewMeterProvider(readers...)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	if spanExporter != nil {
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(spanExporter))
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}
	return shutdown, nil
}

// LoggerWithTrace returns logger annotated with the trace and span IDs of the
// span in ctx, or logger itself when ctx carries no valid span.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

// NewLogger builds the process logger.
//
// Description:
//
//	format "json" or "text" selects the handler; "auto" picks text when w is
//	a terminal and JSON otherwise.
func NewLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "", "auto":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
