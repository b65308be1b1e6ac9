// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/snapsight/services/snapsight/lookup"
)

// RegisterRoutes registers the /snapsight endpoints on rg.
//
// Endpoints:
//
//	GET  /v1/snapsight/health         - Health and cache status
//	POST /v1/snapsight/resolve        - Snapshot at a position
//	POST /v1/snapsight/paths          - Artifact candidates for a file
//	POST /v1/snapsight/external_files - Existing artifacts of open files
//
// Example:
//
//	v1 := router.Group("/v1")
//	server.RegisterRoutes(v1, server.NewHandlers(resolver, nil))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	snapsight := rg.Group("/snapsight")
	{
		snapsight.GET("/health", handlers.HandleHealth)
		snapsight.POST("/resolve", handlers.HandleResolve)
		snapsight.POST("/paths", handlers.HandlePaths)
		snapsight.POST("/external_files", handlers.HandleExternalFiles)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName names the otelgin server spans (default "snapsight").
	ServiceName string

	// RequestsPerSecond limits /v1 requests across all clients. Zero or
	// less disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default 1 when limiting).
	Burst int

	// AccessLog enables gin's request logger.
	AccessLog bool

	// Logger is the handler logger (default slog.Default()).
	Logger *slog.Logger
}

// NewRouter builds the gin engine: recovery, tracing and request IDs on every
// route, the optional rate limit on /v1, and /metrics for Prometheus.
func NewRouter(resolver *lookup.Resolver, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "snapsight"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(RequestIDMiddleware())
	if opts.AccessLog {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		v1.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)))
	}
	RegisterRoutes(v1, NewHandlers(resolver, opts.Logger))
	return router
}

// RateLimitMiddleware rejects requests with 429 when limiter has no token.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			writeError(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
