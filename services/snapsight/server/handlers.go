// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes snapshot resolution over HTTP.
package server

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/snapsight/services/snapsight/lookup"
	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
	"github.com/AleutianAI/snapsight/services/snapsight/telemetry"
)

// requestIDHeader carries the request correlation ID.
const requestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key of the request ID.
const requestIDKey = "request_id"

// Handlers serves the snapsight endpoints for one Resolver.
//
// Thread Safety: Safe for concurrent use; all state lives in the Resolver.
type Handlers struct {
	resolver *lookup.Resolver
	logger   *slog.Logger
}

// NewHandlers creates handlers over resolver. A nil logger means slog.Default().
func NewHandlers(resolver *lookup.Resolver, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{resolver: resolver, logger: logger}
}

// RequestIDMiddleware makes sure every request carries an X-Request-ID,
// generating a UUID when the client sent none, and echoes it back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return c.GetHeader(requestIDHeader)
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return telemetry.LoggerWithTrace(c.Request.Context(), h.logger).With(
		slog.String("request_id", requestID(c)),
		slog.String("handler", handler),
	)
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

// HandleHealth handles GET /v1/snapsight/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	cfg := h.resolver.Config()
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		CachedFiles:  h.resolver.Store().Len(),
		SnapshotDir:  cfg.SnapshotDir,
		UseJSTags:    cfg.UseJSTagsForSnapshotHover,
		TestBlockIDs: len(cfg.TestBlockIdentifiers),
	})
}

// HandleResolve handles POST /v1/snapsight/resolve.
//
// Description:
//
//	Resolves the snapshot asserted at a position in a test file. With
//	content the in-memory buffer is resolved instead of the file on disk;
//	the artifact is still looked up next to file.
//
// Response:
//
//	200 OK: ResolveResponse, found=false when the position has no snapshot
//	400 Bad Request: Malformed body, missing position, unsupported or
//	                 unreadable file
//	500 Internal Server Error: Any other failure
func (h *Handlers) HandleResolve(c *gin.Context) {
	logger := h.requestLogger(c, "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	var pos lookup.Position
	switch {
	case req.Offset != nil:
		pos = lookup.AtOffset(*req.Offset)
	case req.Line != nil && req.Character != nil:
		pos = lookup.AtLine(*req.Line, *req.Character)
	default:
		writeError(c, http.StatusBadRequest, CodeMissingPosition, "offset or line and character are required")
		return
	}

	var (
		res *lookup.Result
		err error
	)
	if req.Content != nil {
		res, err = h.resolver.ResolveSource(c.Request.Context(), req.File, []byte(*req.Content), pos)
	} else {
		res, err = h.resolver.ResolveFile(c.Request.Context(), req.File, pos)
	}
	if err != nil {
		status, code := classifyError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("resolve failed", slog.String("file", req.File), slog.String("error", err.Error()))
		} else {
			logger.Debug("resolve rejected", slog.String("file", req.File), slog.String("error", err.Error()))
		}
		writeError(c, status, code, err.Error())
		return
	}

	if res == nil {
		c.JSON(http.StatusOK, ResolveResponse{Found: false})
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{
		Found:      true,
		Record:     res.Record,
		Hover:      res.Hover,
		Definition: res.Definition,
	})
}

// HandlePaths handles POST /v1/snapsight/paths.
func (h *Handlers) HandlePaths(c *gin.Context) {
	var req PathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, PathsResponse{Paths: h.resolver.Store().AllPossiblePathsForFile(req.File)})
}

// HandleExternalFiles handles POST /v1/snapsight/external_files.
func (h *Handlers) HandleExternalFiles(c *gin.Context) {
	var req ExternalFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	files := h.resolver.ExternalFiles(req.OpenFiles)
	h.requestLogger(c, "HandleExternalFiles").Debug("external files listed",
		slog.Int("open_files", len(req.OpenFiles)),
		slog.Int("files", len(files)))
	c.JSON(http.StatusOK, ExternalFilesResponse{Files: files})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, lookup.ErrUnsupportedLanguage):
		return http.StatusBadRequest, CodeUnsupportedLanguage
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest, CodeFileNotFound
	case errors.Is(err, syntax.ErrInvalidContent), errors.Is(err, syntax.ErrFileTooLarge):
		return http.StatusBadRequest, CodeInvalidContent
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
