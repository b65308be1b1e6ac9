// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	assert.Same(t, base, LoggerWithTrace(context.Background(), base), "no span: logger unchanged")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	LoggerWithTrace(ctx, base).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = NewLogger(&buf, "auto", slog.LevelDebug)
	require.NoError(t, err)
	logger.Debug("buffered")
	assert.Contains(t, buf.String(), `"msg":"buffered"`, "non-terminal writers get JSON")

	buf.Reset()
	logger, err = NewLogger(&buf, "text", slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")

	_, err = NewLogger(&buf, "xml", slog.LevelInfo)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Options{Exporter: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestSetup_StdoutWithPrometheus(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()

	shutdown, err := Setup(context.Background(), Options{
		Exporter:             ExporterStdout,
		Writer:               &buf,
		PrometheusRegisterer: reg,
	})
	require.NoError(t, err)

	counter, err := otel.Meter("test").Int64Counter("setup.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	_, span := otel.Tracer("test").Start(context.Background(), "setup-span")
	span.End()

	families, err := reg.Gather()
	require.NoError(t, err)
	bridged := false
	for _, f := range families {
		// Name escaping depends on the exporter's translation strategy.
		if strings.Contains(f.GetName(), "events") {
			bridged = true
		}
	}
	assert.True(t, bridged, "otel counter missing from the prometheus registry")

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "setup-span")
}
