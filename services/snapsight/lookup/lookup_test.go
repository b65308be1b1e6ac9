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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/snapsight/internal/testfixtures"
	"github.com/AleutianAI/snapsight/services/snapsight/config"
	"github.com/AleutianAI/snapsight/services/snapsight/snapshot"
	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

const testSourcePath = "/p/__tests__/testsource.ts"

// staticSource serves one parsed artifact for every test file.
type staticSource struct {
	info  *snapshot.Info
	calls int
}

func (s *staticSource) SnapshotForFile(ctx context.Context, sourcePath string) (*snapshot.Info, bool) {
	s.calls++
	if s.info == nil {
		return nil, false
	}
	return s.info, true
}

// panickingSource fails the way a corrupted tree or store would.
type panickingSource struct{}

func (panickingSource) SnapshotForFile(context.Context, string) (*snapshot.Info, bool) {
	panic("boom")
}

func fixtureSource(t *testing.T) *staticSource {
	t.Helper()
	defs := snapshot.ParseSnapshotFile(context.Background(), "testsource.ts.snap", []byte(testfixtures.TestSnapshot))
	require.NotEmpty(t, defs)
	return &staticSource{info: &snapshot.Info{File: "testsource.ts.snap", Definitions: defs}}
}

func parseFixture(t *testing.T) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), testSourcePath, []byte(testfixtures.TestSource))
	require.NoError(t, err)
	return tree
}

func TestResolveSnapshotAtPosition(t *testing.T) {
	tree := parseFixture(t)
	source := fixtureSource(t)

	tests := []struct {
		name      string
		line, col int
		wantName  string
		wantValue string
	}{
		{"single block", 2, 14, "test 1", `"test 1"`},
		{"middle of identifier", 2, 20, "test 1", `"test 1"`},
		{"last character of identifier", 2, 28, "test 1", `"test 1"`},
		{"dotted block callee", 6, 14, "test2 1", `"test2 1"`},
		{"nested first", 11, 18, "a test2 1", `"a test2 1"`},
		{"nested second", 12, 18, "a test2 2", `"a test2 2"`},
		{"third call", 26, 18, "valid test1 3", `"valid test1 3"`},
		{"three levels", 31, 22, "valid inner test2 1", `"valid inner test2 1"`},
		{"multiline snapshot", 35, 22, "valid inner test3 1", "\nObject {\n  \"inner\": true,\n}\n"},
		{"anonymous before custom", 42, 18, "custom with custom names 1", `"anonymous 1"`},
		{"first custom", 43, 18, "custom with custom names: custom 1", `"custom 1"`},
		{"second custom", 44, 18, "custom with custom names: custom 2", `"custom 2"`},
		{"anonymous between custom", 45, 18, "custom with custom names 2", `"anonymous 2"`},
		{"other custom name", 46, 18, "custom with custom names: custom2 1", `"custom2 1"`},
		{"third anonymous", 47, 18, "custom with custom names 3", `"anonymous 3"`},
		{"third custom", 48, 18, "custom with custom names: custom 3", `"custom 3"`},
		{"second custom2", 49, 18, "custom with custom names: custom2 2", `"custom2 2"`},
		{"property matcher", 54, 14, "property matchers 1", "\nObject {\n  \"a\": Any<String>,\n}\n"},
		{"property matcher with hint", 55, 14, "property matchers: Snapshot name 1", "\nObject {\n  \"a\": Any<String>,\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(tt.line, tt.col), source, nil, nil)
			require.True(t, ok, "no snapshot at %d:%d", tt.line, tt.col)
			assert.Equal(t, tt.wantName, rec.Name)
			assert.Equal(t, tt.wantValue, rec.Snapshot)
			assert.Equal(t, "testsource.ts.snap", rec.File)
		})
	}
}

func TestResolveSnapshotAtPosition_NoResult(t *testing.T) {
	tree := parseFixture(t)

	tests := []struct {
		name      string
		line, col int
	}{
		{"expect identifier", 2, 5},
		{"block title", 1, 5},
		{"non-snapshot matcher", 19, 14},
		{"runtime block title", 60, 14},
		{"between statements", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := fixtureSource(t)
			_, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(tt.line, tt.col), source, nil, nil)
			assert.False(t, ok)
			assert.Zero(t, source.calls, "artifact consulted without a name")
		})
	}
}

func TestResolveSnapshotAtPosition_IdentifierAsArgument(t *testing.T) {
	src := "it(\"x\", () => {\n  register(toMatchSnapshot);\n  expect(a).toMatchSnapshot();\n});\n"
	tree, err := syntax.Parse(context.Background(), "/p/x.test.js", []byte(src))
	require.NoError(t, err)
	source := &staticSource{info: &snapshot.Info{File: "x.test.js.snap", Definitions: []snapshot.Record{
		{File: "x.test.js.snap", Name: "x 1", Snapshot: "first"},
		{File: "x.test.js.snap", Name: "x 2", Snapshot: "second"},
	}}}

	_, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(1, 12), source, nil, nil)
	assert.False(t, ok, "argument identifier resolved")
	assert.Zero(t, source.calls)

	rec, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), source, nil, nil)
	require.True(t, ok)
	assert.Equal(t, "x 1", rec.Name)
}

func TestResolveSnapshotAtPosition_NoArtifact(t *testing.T) {
	tree := parseFixture(t)

	_, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), &staticSource{}, nil, nil)
	assert.False(t, ok)

	empty := &staticSource{info: &snapshot.Info{File: "x.snap", Definitions: []snapshot.Record{}}}
	_, ok = ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), empty, nil, nil)
	assert.False(t, ok)

	_, ok = ResolveSnapshotAtPosition(context.Background(), nil, 0, fixtureSource(t), nil, nil)
	assert.False(t, ok)
	_, ok = ResolveSnapshotAtPosition(context.Background(), tree, 0, nil, nil, nil)
	assert.False(t, ok)
}

func TestResolveSnapshotAtPosition_RecoversPanics(t *testing.T) {
	tree := parseFixture(t)
	assert.NotPanics(t, func() {
		rec, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), panickingSource{}, nil, nil)
		assert.False(t, ok)
		assert.Nil(t, rec)
	})
}

func TestResolveSnapshotAtPosition_CustomIdentifiers(t *testing.T) {
	src := `context("ctx", () => {
    expect(a).toMatchInlineSnapshot();
    expect(a).toMatchSnapshot();
});
`
	tree, err := syntax.Parse(context.Background(), "/p/a.test.js", []byte(src))
	require.NoError(t, err)
	source := &staticSource{info: &snapshot.Info{Definitions: []snapshot.Record{
		{Name: "ctx 1", Snapshot: "first"},
		{Name: "ctx 2", Snapshot: "second"},
	}}}

	cfg := config.Default()
	cfg.SnapshotCallIdentifiers = []string{"toMatchSnapshot", "toMatchInlineSnapshot"}

	rec, ok := ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), source, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, "second", rec.Snapshot, "both identifiers share one counter")

	rec, ok = ResolveSnapshotAtPosition(context.Background(), tree, tree.PositionOf(2, 14), source, config.Default(), nil)
	require.True(t, ok)
	assert.Equal(t, "first", rec.Snapshot, "unconfigured identifiers are not counted")
}

func TestCompositeName(t *testing.T) {
	tree := parseFixture(t)

	name, ok := CompositeName(tree, tree.PositionOf(60, 14), nil, nil)
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok = CompositeName(tree, tree.PositionOf(46, 18), nil, nil)
	require.True(t, ok)
	assert.Equal(t, "custom with custom names: custom2 1", name)

	_, ok = CompositeName(nil, 0, nil, nil)
	assert.False(t, ok)
}

func TestHover(t *testing.T) {
	rec := &snapshot.Record{Snapshot: "<div />"}
	assert.Equal(t, "\n<div />", Hover(rec, false))
	assert.Equal(t, "```jsx\n<div />\n```", Hover(rec, true))
	assert.Empty(t, Hover(nil, true))
}

func TestDefinitionOf(t *testing.T) {
	def := DefinitionOf(&snapshot.Record{File: "/p/__snapshots__/a.js.snap", Name: "a 1", Position: 42, Length: 17})
	assert.Equal(t, &Definition{
		File:          "/p/__snapshots__/a.js.snap",
		Name:          "a 1",
		ContainerName: "Snapshots",
		Start:         42,
		Length:        17,
	}, def)
	assert.Nil(t, DefinitionOf(nil))
}
