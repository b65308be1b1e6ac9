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
	"github.com/AleutianAI/snapsight/services/snapsight/lookup"
	"github.com/AleutianAI/snapsight/services/snapsight/snapshot"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a human-readable message.
	Error string `json:"error"`

	// Code is a stable machine-readable code, e.g. "INVALID_REQUEST".
	Code string `json:"code"`

	// RequestID echoes the X-Request-ID of the failed request.
	RequestID string `json:"request_id,omitempty"`
}

// Error codes.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeMissingPosition     = "MISSING_POSITION"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeFileNotFound        = "FILE_NOT_FOUND"
	CodeInvalidContent      = "INVALID_CONTENT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ResolveRequest is the body of POST /v1/snapsight/resolve.
//
// The position is either Offset, or Line and Character (both 0-based).
// Content, when present, replaces the file's content on disk.
type ResolveRequest struct {
	File      string  `json:"file" binding:"required"`
	Offset    *int    `json:"offset,omitempty" binding:"omitempty,gte=0"`
	Line      *int    `json:"line,omitempty" binding:"omitempty,gte=0"`
	Character *int    `json:"character,omitempty" binding:"omitempty,gte=0"`
	Content   *string `json:"content,omitempty"`
}

// ResolveResponse is the body of a successful resolve.
type ResolveResponse struct {
	Found      bool               `json:"found"`
	Record     *snapshot.Record   `json:"record,omitempty"`
	Hover      string             `json:"hover,omitempty"`
	Definition *lookup.Definition `json:"definition,omitempty"`
}

// PathsRequest is the body of POST /v1/snapsight/paths.
type PathsRequest struct {
	File string `json:"file" binding:"required"`
}

// PathsResponse lists artifact candidates in lookup order.
type PathsResponse struct {
	Paths []string `json:"paths"`
}

// ExternalFilesRequest is the body of POST /v1/snapsight/external_files.
type ExternalFilesRequest struct {
	OpenFiles []string `json:"open_files" binding:"required"`
}

// ExternalFilesResponse lists the existing artifacts of the open files.
type ExternalFilesResponse struct {
	Files []string `json:"files"`
}

// HealthResponse is the body of GET /v1/snapsight/health.
type HealthResponse struct {
	Status       string `json:"status"`
	CachedFiles  int    `json:"cached_files"`
	SnapshotDir  string `json:"snapshot_dir"`
	UseJSTags    bool   `json:"use_js_tags_for_snapshot_hover"`
	TestBlockIDs int    `json:"test_block_identifiers"`
}
