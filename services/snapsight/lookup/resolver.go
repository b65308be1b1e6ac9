// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/snapsight/services/snapsight/config"
	"github.com/AleutianAI/snapsight/services/snapsight/constant"
	"github.com/AleutianAI/snapsight/services/snapsight/snapshot"
	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
	"github.com/AleutianAI/snapsight/services/snapsight/telemetry"
)

// ErrUnsupportedLanguage is returned for source files that are not
// JavaScript or TypeScript.
var ErrUnsupportedLanguage = errors.New("unsupported source language")

// sourceExtensions are the test file extensions the resolver parses.
var sourceExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// IsSourceFile reports whether path has a JavaScript or TypeScript extension.
func IsSourceFile(path string) bool {
	return slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(path)))
}

var (
	lookupTracer = otel.Tracer("snapsight.lookup")
	lookupMeter  = otel.Meter("snapsight.lookup")
)

// resolutionsTotal counts resolutions by outcome: "found", "not_found" or
// "error".
var resolutionsTotal, _ = lookupMeter.Int64Counter(
	"snapsight.lookup.resolutions",
	metric.WithDescription("Snapshot resolutions by outcome."),
)

// Position is a cursor location, either a byte offset or a 0-based
// line/character pair.
type Position struct {
	Offset    int
	Line      int
	Character int
	lineBased bool
}

// AtOffset returns a byte offset position.
func AtOffset(offset int) Position {
	return Position{Offset: offset}
}

// AtLine returns a 0-based line/character position.
func AtLine(line, character int) Position {
	return Position{Line: line, Character: character, lineBased: true}
}

func (p Position) resolve(tree *syntax.Tree) int {
	if p.lineBased {
		return tree.PositionOf(p.Line, p.Character)
	}
	return p.Offset
}

// Result is a successful resolution.
type Result struct {
	Record     *snapshot.Record `json:"record"`
	Hover      string           `json:"hover"`
	Definition *Definition      `json:"definition"`
}

// Resolver is a host session: one artifact store and one configuration.
//
// Description:
//
//	Reads test files from its filesystem, parses them, builds a constant
//	oracle that follows relative imports, and runs ResolveSnapshotAtPosition.
//	Imported modules are parsed at most once per resolution.
//
// Thread Safety:
//
//	Safe for concurrent use. Reconfigure may run concurrently with
//	resolutions; each resolution sees either the old or the new settings.
type Resolver struct {
	mu     sync.RWMutex
	cfg    *config.Config
	store  *snapshot.Store
	fs     afero.Fs
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFs sets the filesystem for source, module and artifact reads
// (default afero.NewOsFs()).
func WithFs(fs afero.Fs) ResolverOption {
	return func(r *Resolver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver. A nil cfg means config.Default().
func NewResolver(cfg *config.Config, opts ...ResolverOption) (*Resolver, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolver config: %w", err)
	}
	r := &Resolver{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	store, err := snapshot.NewStore(
		snapshot.WithFs(r.fs),
		snapshot.WithLogger(r.logger),
		snapshot.WithExtensions(cfg.SnapshotFileExtensions...),
		snapshot.WithDir(cfg.SnapshotDir),
		snapshot.WithCacheCapacity(cfg.CacheCapacity),
	)
	if err != nil {
		return nil, err
	}
	r.store = store
	return r, nil
}

// Config returns the current configuration.
func (r *Resolver) Config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Store returns the artifact store.
func (r *Resolver) Store() *snapshot.Store {
	return r.store
}

// Reconfigure replaces the configuration. Changing the artifact extensions
// or directory clears the artifact cache. The cache capacity is fixed at
// construction.
func (r *Resolver) Reconfigure(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("resolver config: nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Equal(r.cfg.SnapshotFileExtensions, cfg.SnapshotFileExtensions) {
		r.store.SetExtensions(cfg.SnapshotFileExtensions)
	}
	if r.cfg.SnapshotDir != cfg.SnapshotDir {
		r.store.SetDir(cfg.SnapshotDir)
	}
	r.cfg = cfg
	r.logger.Info("resolver reconfigured",
		slog.String("snapshot_dir", cfg.SnapshotDir),
		slog.Any("snapshot_file_extensions", cfg.SnapshotFileExtensions))
	return nil
}

// ResolveFile resolves the assertion at pos in the test file at path.
//
// Outputs:
//
//	*Result - The record with its hover text and definition target, or nil.
//	error   - Non-nil only when the file cannot be read or parsed. A
//	          position without a snapshot is (nil, nil).
func (r *Resolver) ResolveFile(ctx context.Context, path string, pos Position) (*Result, error) {
	content, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r.ResolveSource(ctx, path, content, pos)
}

// ResolveSource resolves the assertion at pos in content, an in-memory
// version of the test file at path. The artifact and imported modules are
// still looked up relative to path.
func (r *Resolver) ResolveSource(ctx context.Context, path string, content []byte, pos Position) (*Result, error) {
	ctx, span := lookupTracer.Start(ctx, "Resolver.ResolveSource",
		trace.WithAttributes(attribute.String("file", path)),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, r.logger)

	if !IsSourceFile(path) {
		r.count(ctx, "error")
		span.SetStatus(codes.Error, "unsupported language")
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedLanguage)
	}
	tree, err := syntax.Parse(ctx, path, content)
	if err != nil {
		r.count(ctx, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	offset := pos.resolve(tree)
	span.SetAttributes(attribute.Int("offset", offset))

	loader := constant.NewModuleLoader(r.fs, constant.WithModuleLogger(logger))
	oracle := constant.NewDeclarations(ctx, tree,
		constant.WithModuleLoader(loader),
		constant.WithLogger(logger),
	)

	rec, ok := ResolveSnapshotAtPosition(ctx, tree, offset, r.store, cfg, oracle)
	if !ok {
		r.count(ctx, "not_found")
		span.SetAttributes(attribute.Bool("found", false))
		logger.Debug("no snapshot at position", slog.String("file", path), slog.Int("offset", offset))
		return nil, nil
	}

	r.count(ctx, "found")
	span.SetAttributes(
		attribute.Bool("found", true),
		attribute.String("name", rec.Name),
	)
	logger.Debug("snapshot resolved",
		slog.String("file", path),
		slog.Int("offset", offset),
		slog.String("snapshot_path", rec.File),
		slog.String("name", rec.Name))
	return &Result{
		Record:     rec,
		Hover:      Hover(rec, cfg.UseJSTagsForSnapshotHover),
		Definition: DefinitionOf(rec),
	}, nil
}

// ExternalFiles lists the existing artifact files of openFiles, for hosts
// that register them as project dependencies. Files that are themselves
// artifacts are skipped. Each artifact appears once.
func (r *Resolver) ExternalFiles(openFiles []string) []string {
	exts := r.store.Extensions()
	seen := make(map[string]struct{})
	files := []string{}
	for _, f := range openFiles {
		if hasAnySuffix(f, exts) {
			continue
		}
		for _, candidate := range r.store.AllPossiblePathsForFile(f) {
			if _, dup := seen[candidate]; dup {
				continue
			}
			info, err := r.fs.Stat(candidate)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					r.logger.Debug("stat artifact candidate failed",
						slog.String("snapshot_path", candidate),
						slog.String("error", err.Error()))
				}
				continue
			}
			if info.IsDir() {
				continue
			}
			seen[candidate] = struct{}{}
			files = append(files, candidate)
		}
	}
	return files
}

func (r *Resolver) count(ctx context.Context, outcome string) {
	if resolutionsTotal != nil {
		resolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
