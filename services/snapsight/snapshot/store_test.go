// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/snapsight/internal/testfixtures"
)

// countingParser wraps ParseSnapshotFile and counts invocations.
type countingParser struct {
	calls atomic.Int32
}

func (p *countingParser) parse(ctx context.Context, path string, source []byte) []Record {
	p.calls.Add(1)
	return ParseSnapshotFile(ctx, path, source)
}

func newTestStore(t *testing.T, fs afero.Fs, opts ...Option) (*Store, *countingParser) {
	t.Helper()
	parser := &countingParser{}
	opts = append([]Option{WithFs(fs), WithParser(parser.parse)}, opts...)
	store, err := NewStore(opts...)
	require.NoError(t, err)
	return store, parser
}

func TestStore_AllPossiblePathsForFile(t *testing.T) {
	store, _ := newTestStore(t, afero.NewMemMapFs())

	assert.Equal(t, []string{
		"/a/b/__snapshots__/c.ts.snap",
		"/a/b/__snapshots__/c.js.snap",
	}, store.AllPossiblePathsForFile("/a/b/c.ts"))

	store.SetExtensions([]string{".snap", ".shot"})
	store.SetDir("snaps")
	assert.Equal(t, []string{
		"/a/b/snaps/c.test.tsx.snap",
		"/a/b/snaps/c.test.tsx.shot",
		"/a/b/snaps/c.test.js.snap",
		"/a/b/snaps/c.test.js.shot",
	}, store.AllPossiblePathsForFile("/a/b/c.test.tsx"))
}

func TestStore_Defaults(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultExtension}, store.Extensions())
	assert.Equal(t, DefaultDir, store.Dir())
}

func TestStore_SnapshotForFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/__tests__/__snapshots__/testsource.ts.snap", []byte(testfixtures.TestSnapshot), 0o644))
	store, parser := newTestStore(t, fs)

	info, ok := store.SnapshotForFile(context.Background(), "/p/__tests__/testsource.ts")
	require.True(t, ok)
	assert.Equal(t, "/p/__tests__/__snapshots__/testsource.ts.snap", info.File)
	require.NotEmpty(t, info.Definitions)
	assert.Equal(t, "test 1", info.Definitions[0].Name)
	assert.Equal(t, `"test 1"`, info.Definitions[0].Snapshot)

	rec, ok := info.Find("valid inner test3 1")
	require.True(t, ok)
	assert.Equal(t, "\nObject {\n  \"inner\": true,\n}\n", rec.Snapshot)

	// Unchanged mtime: served from cache.
	again, ok := store.SnapshotForFile(context.Background(), "/p/__tests__/testsource.ts")
	require.True(t, ok)
	assert.Equal(t, info.Definitions, again.Definitions)
	assert.Equal(t, int32(1), parser.calls.Load())
	assert.Equal(t, 1, store.Len())
}

func TestStore_SnapshotForFile_ReparsesOnMtimeChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/p/__snapshots__/a.test.js.snap"
	require.NoError(t, afero.WriteFile(fs, path, []byte("exports[`a 1`] = `old`;\n"), 0o644))
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes(path, past, past))
	store, parser := newTestStore(t, fs)

	info, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)
	assert.Equal(t, "old", info.Definitions[0].Snapshot)

	require.NoError(t, afero.WriteFile(fs, path, []byte("exports[`a 1`] = `new`;\n"), 0o644))
	later := past.Add(time.Hour)
	require.NoError(t, fs.Chtimes(path, later, later))

	info, ok = store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)
	assert.Equal(t, "new", info.Definitions[0].Snapshot)
	assert.Equal(t, int32(2), parser.calls.Load())
}

func TestStore_SnapshotForFile_SameMtimeKeepsCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/p/__snapshots__/a.test.js.snap"
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, afero.WriteFile(fs, path, []byte("exports[`a 1`] = `old`;\n"), 0o644))
	require.NoError(t, fs.Chtimes(path, stamp, stamp))
	store, parser := newTestStore(t, fs)

	_, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)

	// Content changes but the mtime is restored: the cache cannot tell.
	require.NoError(t, afero.WriteFile(fs, path, []byte("exports[`a 1`] = `new`;\n"), 0o644))
	require.NoError(t, fs.Chtimes(path, stamp, stamp))

	info, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)
	assert.Equal(t, "old", info.Definitions[0].Snapshot)
	assert.Equal(t, int32(1), parser.calls.Load())
}

func TestStore_SnapshotForFile_CandidateOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/__snapshots__/a.test.js.snap", []byte("exports[`js 1`] = `js`;\n"), 0o644))
	store, _ := newTestStore(t, fs)

	// Only the compiled-output name exists.
	info, ok := store.SnapshotForFile(context.Background(), "/p/a.test.ts")
	require.True(t, ok)
	assert.Equal(t, "/p/__snapshots__/a.test.js.snap", info.File)

	// The direct name wins once it exists.
	require.NoError(t, afero.WriteFile(fs, "/p/__snapshots__/a.test.ts.snap", []byte("exports[`ts 1`] = `ts`;\n"), 0o644))
	info, ok = store.SnapshotForFile(context.Background(), "/p/a.test.ts")
	require.True(t, ok)
	assert.Equal(t, "/p/__snapshots__/a.test.ts.snap", info.File)
	assert.Equal(t, "ts 1", info.Definitions[0].Name)
}

func TestStore_SnapshotForFile_Missing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/__snapshots__/a.test.js.snap", 0o755))
	store, parser := newTestStore(t, fs)

	_, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	assert.False(t, ok, "directories are not artifacts")

	_, ok = store.SnapshotForFile(context.Background(), "/elsewhere/b.test.js")
	assert.False(t, ok)
	assert.Equal(t, int32(0), parser.calls.Load())
}

func TestStore_SnapshotForFile_ReadFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/p/__snapshots__/a.test.js.snap", []byte("exports[`a 1`] = `a`;\n"), 0o644))
	store, _ := newTestStore(t, unreadableFs{Fs: base})

	_, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	assert.False(t, ok)
}

// unreadableFs stats files but refuses to open them, like a file that
// disappears between the existence check and the read.
type unreadableFs struct {
	afero.Fs
}

func (unreadableFs) Open(name string) (afero.File, error) {
	return nil, afero.ErrFileNotFound
}

func TestStore_ReconfigureClearsCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/__snapshots__/a.test.js.snap", []byte("exports[`a 1`] = `a`;\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/p/snaps/a.test.js.snap", []byte("exports[`b 1`] = `b`;\n"), 0o644))
	store, parser := newTestStore(t, fs)

	_, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)
	assert.Equal(t, 1, store.Len())

	store.SetDir("snaps")
	assert.Equal(t, 0, store.Len())

	info, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
	require.True(t, ok)
	assert.Equal(t, "b 1", info.Definitions[0].Name)

	store.SetExtensions([]string{".snap"})
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int32(2), parser.calls.Load())
}

func TestStore_CacheCapacity(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, afero.WriteFile(fs, "/p/__snapshots__/"+name+".js.snap", []byte("exports[`x 1`] = `x`;\n"), 0o644))
	}
	store, parser := newTestStore(t, fs, WithCacheCapacity(2))

	for _, name := range []string{"a", "b", "c", "a"} {
		_, ok := store.SnapshotForFile(context.Background(), "/p/"+name+".js")
		require.True(t, ok)
	}
	assert.Equal(t, 2, store.Len())
	// "a" was evicted by "c" and parsed again.
	assert.Equal(t, int32(4), parser.calls.Load())
}

func TestStore_SnapshotForFile_Concurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/__snapshots__/a.test.js.snap", []byte(testfixtures.TestSnapshot), 0o644))
	store, parser := newTestStore(t, fs)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := store.SnapshotForFile(context.Background(), "/p/a.test.js")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), parser.calls.Load())
}
