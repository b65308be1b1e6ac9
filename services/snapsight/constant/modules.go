// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package constant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

var (
	// ErrBareSpecifier is returned for package imports such as "lodash";
	// only relative specifiers are followed.
	ErrBareSpecifier = errors.New("bare module specifier")

	// ErrModuleNotFound is returned when no candidate file exists.
	ErrModuleNotFound = errors.New("module not found")
)

// moduleExtensions are tried in order when a specifier has no usable extension.
var moduleExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// ModuleLoader resolves relative import specifiers and parses the target
// modules, caching each parsed tree for the loader's lifetime.
//
// Thread Safety:
//
//	Safe for concurrent use.
type ModuleLoader struct {
	fs     afero.Fs
	logger *slog.Logger

	mu    sync.Mutex
	trees map[string]*syntax.Tree
}

// ModuleLoaderOption configures a ModuleLoader.
type ModuleLoaderOption func(*ModuleLoader)

// WithModuleLogger sets the logger (default slog.Default()).
func WithModuleLogger(logger *slog.Logger) ModuleLoaderOption {
	return func(l *ModuleLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewModuleLoader creates a loader reading from fs. A nil fs means the OS
// filesystem.
func NewModuleLoader(fs afero.Fs, opts ...ModuleLoaderOption) *ModuleLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	l := &ModuleLoader{
		fs:     fs,
		logger: slog.Default(),
		trees:  make(map[string]*syntax.Tree),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve maps an import specifier, relative to the importing file, onto an
// existing file path.
//
// Description:
//
//	Candidates, in order: the specifier itself when it carries an
//	extension; a ".js"/".jsx"/".mjs"/".cjs" specifier rewritten to its
//	TypeScript source; the specifier plus each module extension; and
//	"index" plus each module extension inside the specifier directory.
//
// Outputs:
//
//	string - The resolved path.
//	error  - ErrBareSpecifier or ErrModuleNotFound.
func (l *ModuleLoader) Resolve(fromFile, specifier string) (string, error) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") && !filepath.IsAbs(specifier) {
		return "", fmt.Errorf("%w: %q", ErrBareSpecifier, specifier)
	}
	base := specifier
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(fromFile), specifier)
	}

	for _, candidate := range moduleCandidates(base) {
		if info, err := l.fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q from %s", ErrModuleNotFound, specifier, fromFile)
}

func moduleCandidates(base string) []string {
	var out []string
	ext := filepath.Ext(base)
	switch ext {
	case ".ts", ".tsx", ".mts", ".cts":
		out = append(out, base)
	case ".js", ".jsx", ".mjs", ".cjs":
		out = append(out, base)
		stem := strings.TrimSuffix(base, ext)
		switch ext {
		case ".mjs":
			out = append(out, stem+".mts")
		case ".cjs":
			out = append(out, stem+".cts")
		default:
			out = append(out, stem+".ts", stem+".tsx")
		}
	}
	for _, e := range moduleExtensions {
		out = append(out, base+e)
	}
	for _, e := range moduleExtensions {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}

// Load resolves specifier relative to fromFile and returns the parsed module.
func (l *ModuleLoader) Load(ctx context.Context, fromFile, specifier string) (*syntax.Tree, error) {
	path, err := l.Resolve(fromFile, specifier)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if tree, ok := l.trees[path]; ok {
		l.mu.Unlock()
		return tree, nil
	}
	l.mu.Unlock()

	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", path, err)
	}
	tree, err := syntax.Parse(ctx, path, content)
	if err != nil {
		return nil, fmt.Errorf("parsing module %s: %w", path, err)
	}

	l.mu.Lock()
	l.trees[path] = tree
	l.mu.Unlock()

	l.logger.Debug("loaded module",
		slog.String("file", path),
		slog.String("from", fromFile))
	return tree, nil
}
