// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"toMatchSnapshot", "toThrowErrorMatchingSnapshot"}, cfg.SnapshotCallIdentifiers)
	assert.Contains(t, cfg.TestBlockIdentifiers, "describe")
	assert.Contains(t, cfg.TestBlockIdentifiers, "it.only")
	assert.Equal(t, []string{".snap"}, cfg.SnapshotFileExtensions)
	assert.Equal(t, "__snapshots__", cfg.SnapshotDir)
	assert.False(t, cfg.UseJSTagsForSnapshotHover)
	assert.Equal(t, 1024, cfg.CacheCapacity)

	assert.True(t, cfg.SnapshotCallSet().Has("toMatchSnapshot"))
	assert.True(t, cfg.TestBlockSet().Has("test.skip"))
	assert.False(t, cfg.TestBlockSet().Has("beforeEach"))
}

func TestDefault_ReturnsFreshCopies(t *testing.T) {
	a := Default()
	a.SnapshotCallIdentifiers[0] = "changed"
	assert.Equal(t, "toMatchSnapshot", Default().SnapshotCallIdentifiers[0])
}

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
snapshot_file_extensions: [".snap", ".shot"]
use_js_tags_for_snapshot_hover: true
`))
	require.NoError(t, err)
	assert.Equal(t, []string{".snap", ".shot"}, cfg.SnapshotFileExtensions)
	assert.True(t, cfg.UseJSTagsForSnapshotHover)
	// Unset fields keep their defaults.
	assert.Equal(t, "__snapshots__", cfg.SnapshotDir)
	assert.Equal(t, 1024, cfg.CacheCapacity)
}

func TestLoadBytes_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"malformed", "snapshot_dir: [", "parsing YAML"},
		{"empty calls", "snapshot_call_identifiers: []", "SnapshotCallIdentifiers"},
		{"blank block name", `test_block_identifiers: ["it", ""]`, "TestBlockIdentifiers"},
		{"extension without dot", `snapshot_file_extensions: ["snap"]`, "startswith"},
		{"dir with separator", "snapshot_dir: a/b", "SnapshotDir"},
		{"zero capacity", "cache_capacity: 0", "CacheCapacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadBytes_TooLarge(t *testing.T) {
	_, err := LoadBytes([]byte(strings.Repeat("#", MaxYAMLFileSize+1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapsight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snapshot_dir: snaps\ncache_capacity: 8\n"), 0o644))

	t.Setenv("SNAPSIGHT_CACHE_CAPACITY", "16")
	t.Setenv("SNAPSIGHT_SNAPSHOT_CALL_IDENTIFIERS", "toMatchSnapshot, toMatchInlineSnapshot ,")
	t.Setenv("SNAPSIGHT_USE_JS_TAGS_FOR_SNAPSHOT_HOVER", "true")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "snaps", cfg.SnapshotDir)
	assert.Equal(t, 16, cfg.CacheCapacity, "environment wins over the file")
	assert.Equal(t, []string{"toMatchSnapshot", "toMatchInlineSnapshot"}, cfg.SnapshotCallIdentifiers)
	assert.True(t, cfg.UseJSTagsForSnapshotHover)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvErrors(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"SNAPSIGHT_CACHE_CAPACITY", "many", "SNAPSIGHT_CACHE_CAPACITY"},
		{"SNAPSIGHT_USE_JS_TAGS_FOR_SNAPSHOT_HOVER", "maybe", "SNAPSIGHT_USE_JS_TAGS_FOR_SNAPSHOT_HOVER"},
		{"SNAPSIGHT_SNAPSHOT_FILE_EXTENSIONS", " , ", "SnapshotFileExtensions"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(context.Background(), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv_Unset(t *testing.T) {
	cfg := Default()
	require.NoError(t, applyEnv(cfg, func(string) (string, bool) { return "", false }))
	assert.Equal(t, Default(), cfg)
}
