// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot locates, parses and caches snapshot artifact files.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultDir is the artifact directory next to a test file.
	DefaultDir = "__snapshots__"

	// DefaultExtension is the artifact file extension.
	DefaultExtension = ".snap"

	// DefaultCacheCapacity is the number of artifact files kept parsed.
	DefaultCacheCapacity = 1024
)

var storeTracer = otel.Tracer(snapshotTracerName)

// Info is the parsed content of one artifact file.
type Info struct {
	// File is the artifact path.
	File string `json:"file"`

	// Definitions are the records in source order. The slice is shared with
	// the cache and must not be modified.
	Definitions []Record `json:"definitions"`
}

// Find returns the first record called name.
func (i *Info) Find(name string) (*Record, bool) {
	if i == nil {
		return nil, false
	}
	for idx := range i.Definitions {
		if i.Definitions[idx].Name == name {
			rec := i.Definitions[idx]
			return &rec, true
		}
	}
	return nil, false
}

type cacheEntry struct {
	definitions  []Record
	lastModified time.Time
}

// Store finds the artifact file for a test file and keeps parsed artifacts
// cached by path, re-parsing when the modification time changes.
//
// Description:
//
//	The search policy (extensions and directory name) is part of the cache
//	key space, so changing it clears the cache. The cache is bounded; an
//	evicted artifact is simply parsed again on its next lookup.
//
// Thread Safety:
//
//	Safe for concurrent use. One mutex covers the stat, compare, parse and
//	store sequence as well as policy changes.
type Store struct {
	mu         sync.Mutex
	fs         afero.Fs
	parse      ParseFunc
	logger     *slog.Logger
	extensions []string
	dir        string
	capacity   int
	cache      *lru.Cache[string, cacheEntry]
}

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem (default afero.NewOsFs()).
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithParser overrides the artifact parser (default ParseSnapshotFile).
func WithParser(fn ParseFunc) Option {
	return func(s *Store) {
		if fn != nil {
			s.parse = fn
		}
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExtensions sets the artifact extensions (default [".snap"]).
func WithExtensions(exts ...string) Option {
	return func(s *Store) {
		if len(exts) > 0 {
			s.extensions = append([]string(nil), exts...)
		}
	}
}

// WithDir sets the artifact directory name (default "__snapshots__").
func WithDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.dir = dir
		}
	}
}

// WithCacheCapacity bounds the number of cached artifact files.
func WithCacheCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewStore creates a Store.
//
// Outputs:
//
//	*Store - The store with an empty cache.
//	error  - Non-nil only if the cache cannot be created.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		fs:         afero.NewOsFs(),
		parse:      ParseSnapshotFile,
		logger:     slog.Default(),
		extensions: []string{DefaultExtension},
		dir:        DefaultDir,
		capacity:   DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[string, cacheEntry](s.capacity)
	if err != nil {
		return nil, fmt.Errorf("creating artifact cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Extensions returns a copy of the artifact extensions.
func (s *Store) Extensions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.extensions...)
}

// Dir returns the artifact directory name.
func (s *Store) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// SetExtensions replaces the artifact extensions and clears the cache.
func (s *Store) SetExtensions(exts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extensions = append([]string(nil), exts...)
	s.purgeLocked("extensions")
}

// SetDir replaces the artifact directory name and clears the cache.
func (s *Store) SetDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = dir
	s.purgeLocked("dir")
}

// Len returns the number of cached artifact files.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *Store) purgeLocked(setting string) {
	if n := s.cache.Len(); n > 0 {
		cacheEvictionsTotal.WithLabelValues("reconfigure").Add(float64(n))
	}
	s.cache.Purge()
	s.logger.Debug("artifact cache cleared", slog.String("setting", setting))
}

// AllPossiblePathsForFile lists the artifact candidates for a test file.
//
// Description:
//
//	For each extension, <dir of file>/<artifact dir>/<file name><ext>;
//	then for each extension the same with the file's own extension
//	replaced by ".js" (compiled output naming). The first existing
//	candidate wins, so the order is significant.
func (s *Store) AllPossiblePathsForFile(sourcePath string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pathsLocked(sourcePath)
}

func (s *Store) pathsLocked(sourcePath string) []string {
	dir := filepath.Join(filepath.Dir(sourcePath), s.dir)
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	paths := make([]string, 0, 2*len(s.extensions))
	for _, ext := range s.extensions {
		paths = append(paths, filepath.Join(dir, base+ext))
	}
	for _, ext := range s.extensions {
		paths = append(paths, filepath.Join(dir, stem+".js"+ext))
	}
	return paths
}

// SnapshotForFile returns the parsed artifact for a test file.
//
// Description:
//
//	Picks the first existing candidate from AllPossiblePathsForFile. When
//	the cached entry for that path has the same modification time the
//	cached records are returned without reading the file; otherwise the
//	file is read, parsed and cached.
//
// Inputs:
//
//	ctx        - Context for tracing and parse cancellation.
//	sourcePath - Path of the test file.
//
// Outputs:
//
//	*Info - The artifact path and records.
//	bool  - False when no candidate exists or any I/O step fails.
func (s *Store) SnapshotForFile(ctx context.Context, sourcePath string) (*Info, bool) {
	ctx, span := storeTracer.Start(ctx, "Store.SnapshotForFile",
		trace.WithAttributes(attribute.String("file", sourcePath)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		snapshotPath string
		modTime      time.Time
	)
	for _, candidate := range s.pathsLocked(sourcePath) {
		info, err := s.fs.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		snapshotPath, modTime = candidate, info.ModTime()
		break
	}
	if snapshotPath == "" {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, false
	}
	span.SetAttributes(
		attribute.Bool("found", true),
		attribute.String("snapshot_path", snapshotPath),
	)

	entry, cached := s.cache.Get(snapshotPath)
	if cached && entry.lastModified.Equal(modTime) {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return &Info{File: snapshotPath, Definitions: entry.definitions}, true
	}
	if cached {
		cacheLookupsTotal.WithLabelValues("stale").Inc()
	} else {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	content, err := afero.ReadFile(s.fs, snapshotPath)
	if err != nil {
		readErrorsTotal.Inc()
		span.RecordError(err)
		s.logger.Warn("reading snapshot file failed",
			slog.String("snapshot_path", snapshotPath),
			slog.String("error", err.Error()))
		return nil, false
	}

	definitions := s.parse(ctx, snapshotPath, content)
	if s.cache.Add(snapshotPath, cacheEntry{definitions: definitions, lastModified: modTime}) {
		cacheEvictionsTotal.WithLabelValues("capacity").Inc()
	}
	span.SetAttributes(attribute.Int("definitions", len(definitions)))

	s.logger.Debug("snapshot file parsed",
		slog.String("snapshot_path", snapshotPath),
		slog.Int("definitions", len(definitions)))
	return &Info{File: snapshotPath, Definitions: definitions}, true
}
