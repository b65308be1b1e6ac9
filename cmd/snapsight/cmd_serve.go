// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/snapsight/services/snapsight/server"
)

type serveOptions struct {
	addr            string
	debug           bool
	requestsPerSec  float64
	burst           int
	shutdownTimeout time.Duration
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshot resolution over HTTP",
		Long: `Starts the HTTP API:

  GET  /v1/snapsight/health
  POST /v1/snapsight/resolve
  POST /v1/snapsight/paths
  POST /v1/snapsight/external_files
  GET  /metrics

SIGINT or SIGTERM drains in-flight requests before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Gin debug mode with access logging")
	cmd.Flags().Float64Var(&opts.requestsPerSec, "rate-limit", 0, "Requests per second across all clients; 0 disables")
	cmd.Flags().IntVar(&opts.burst, "burst", 10, "Rate limiter burst size")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 10*time.Second, "Time allowed for in-flight requests on shutdown")
	return cmd
}

func runServe(ctx context.Context, a *app, opts serveOptions) error {
	if opts.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	resolver, err := a.newResolver()
	if err != nil {
		return err
	}
	router := server.NewRouter(resolver, server.RouterOptions{
		RequestsPerSecond: opts.requestsPerSec,
		Burst:             opts.burst,
		AccessLog:         opts.debug,
		Logger:            a.logger,
	})
	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("snapsight server listening", slog.String("address", opts.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("snapsight server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
