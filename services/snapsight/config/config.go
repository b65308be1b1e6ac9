// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads snapsight settings from embedded defaults, an optional
// YAML file, a .env file and SNAPSIGHT_* environment variables.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed defaults.yaml
var defaultConfigYAML []byte

// MaxYAMLFileSize is the largest config file accepted (1MB).
const MaxYAMLFileSize = 1 << 20

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SNAPSIGHT_"

var configTracer = otel.Tracer("snapsight.config")

// =============================================================================
// Configuration Types
// =============================================================================

// Config holds the resolver settings.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// SnapshotCallIdentifiers are the assertion names counted as snapshot
	// calls, e.g. "toMatchSnapshot".
	SnapshotCallIdentifiers []string `yaml:"snapshot_call_identifiers" json:"snapshot_call_identifiers" validate:"required,min=1,dive,required"`

	// TestBlockIdentifiers are the callee forms of test blocks, e.g.
	// "describe" or "it.only".
	TestBlockIdentifiers []string `yaml:"test_block_identifiers" json:"test_block_identifiers" validate:"required,min=1,dive,required"`

	// SnapshotFileExtensions are the artifact extensions, tried in order.
	SnapshotFileExtensions []string `yaml:"snapshot_file_extensions" json:"snapshot_file_extensions" validate:"required,min=1,dive,required,startswith=."`

	// SnapshotDir is the artifact directory name next to a test file.
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir" validate:"required,excludesall=/"`

	// UseJSTagsForSnapshotHover wraps hover content in a jsx code fence.
	UseJSTagsForSnapshotHover bool `yaml:"use_js_tags_for_snapshot_hover" json:"use_js_tags_for_snapshot_hover"`

	// CacheCapacity bounds the number of parsed artifact files kept.
	CacheCapacity int `yaml:"cache_capacity" json:"cache_capacity" validate:"gte=1"`
}

// SnapshotCallSet returns SnapshotCallIdentifiers as a set.
func (c *Config) SnapshotCallSet() syntax.IdentifierSet {
	return syntax.NewIdentifierSet(c.SnapshotCallIdentifiers...)
}

// TestBlockSet returns TestBlockIdentifiers as a set.
func (c *Config) TestBlockSet() syntax.IdentifierSet {
	return syntax.NewIdentifierSet(c.TestBlockIdentifiers...)
}

// Validate checks the field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid %s: failed %q constraint", first.Namespace(), first.Tag())
		}
		return err
	}
	return nil
}

// Default returns the embedded defaults.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml is invalid: %v", err))
	}
	return &cfg
}

// =============================================================================
// Loading
// =============================================================================

// Load builds the configuration for a host process.
//
// Description:
//
//	Layers, later wins: embedded defaults, the YAML file at path (skipped
//	when path is empty or the file does not exist), variables from a .env
//	file in the working directory, and SNAPSIGHT_* environment variables.
//	The result is validated.
//
// Inputs:
//
//	ctx  - Context for tracing.
//	path - Optional YAML config path.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error   - Non-nil if the file cannot be read or parsed, an environment
//	          value is malformed, or validation fails.
func Load(ctx context.Context, path string) (*Config, error) {
	_, span := configTracer.Start(ctx, "config.Load")
	defer span.End()

	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	fromFile := false
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config file not found, using defaults", slog.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := mergeYAML(cfg, data); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
			fromFile = true
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("from_file", fromFile),
		attribute.Int("snapshot_calls", len(cfg.SnapshotCallIdentifiers)),
		attribute.Int("test_blocks", len(cfg.TestBlockIdentifiers)),
	)
	slog.Info("snapsight config loaded",
		slog.Bool("from_file", fromFile),
		slog.String("snapshot_dir", cfg.SnapshotDir),
		slog.Any("snapshot_file_extensions", cfg.SnapshotFileExtensions),
	)
	return cfg, nil
}

// LoadBytes merges YAML data over the defaults and validates the result.
// Environment variables are not consulted.
func LoadBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := mergeYAML(cfg, data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeYAML(cfg *Config, data []byte) error {
	if len(data) > MaxYAMLFileSize {
		return fmt.Errorf("YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// applyEnv applies SNAPSIGHT_* overrides. List values are comma separated.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "SNAPSHOT_CALL_IDENTIFIERS"); ok {
		cfg.SnapshotCallIdentifiers = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "TEST_BLOCK_IDENTIFIERS"); ok {
		cfg.TestBlockIdentifiers = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "SNAPSHOT_FILE_EXTENSIONS"); ok {
		cfg.SnapshotFileExtensions = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "SNAPSHOT_DIR"); ok {
		cfg.SnapshotDir = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPrefix + "USE_JS_TAGS_FOR_SNAPSHOT_HOVER"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sUSE_JS_TAGS_FOR_SNAPSHOT_HOVER: %w", EnvPrefix, err)
		}
		cfg.UseJSTagsForSnapshotHover = b
	}
	if v, ok := lookup(EnvPrefix + "CACHE_CAPACITY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_CAPACITY: %w", EnvPrefix, err)
		}
		cfg.CacheCapacity = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
