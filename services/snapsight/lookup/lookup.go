// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lookup resolves the snapshot asserted by the call under a cursor.
//
// A snapshot name is built from the titles of the enclosing test blocks and
// the 1-based index of the assertion within the innermost block:
//
//	describe("valid", () => {
//	    it("test1", () => {
//	        expect(a).toMatchSnapshot();        // "valid test1 1"
//	        expect(b).toMatchSnapshot("hint");  // "valid test1: hint 1"
//	        expect(c).toMatchSnapshot();        // "valid test1 2"
//	    });
//	});
package lookup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/snapsight/services/snapsight/config"
	"github.com/AleutianAI/snapsight/services/snapsight/constant"
	"github.com/AleutianAI/snapsight/services/snapsight/snapshot"
	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
	"github.com/AleutianAI/snapsight/services/snapsight/testblock"
)

// ArtifactSource supplies parsed artifact files. *snapshot.Store implements it.
type ArtifactSource interface {
	SnapshotForFile(ctx context.Context, sourcePath string) (*snapshot.Info, bool)
}

// ResolveSnapshotAtPosition returns the artifact record asserted by the call
// at offset.
//
// Description:
//
//	The node at offset must be a snapshot assertion identifier (one of
//	cfg.SnapshotCallIdentifiers) whose grandparent is a call expression.
//	The enclosing test blocks give the name prefix. Assertions in the
//	innermost block up to and including this one give the index: per
//	custom name when the call has a string-literal-like argument, among
//	anonymous calls otherwise. The first record with the composite name is
//	returned.
//
//	Resolution is best effort. Every failure, including a panic in any
//	step, is reported as no result.
//
// Inputs:
//
//	ctx    - Context for the artifact lookup.
//	tree   - Parsed test file. tree.Path locates the artifact.
//	offset - Byte offset of the cursor.
//	store  - Artifact source.
//	cfg    - Identifier sets. nil means config.Default().
//	oracle - Constant oracle for non-literal block titles. May be nil.
//
// Outputs:
//
//	*snapshot.Record - The matching record.
//	bool             - False when there is no match.
func ResolveSnapshotAtPosition(ctx context.Context, tree *syntax.Tree, offset int, store ArtifactSource, cfg *config.Config, oracle constant.Oracle) (rec *snapshot.Record, found bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("snapshot resolution panicked",
				slog.Any("panic", r),
				slog.Int("offset", offset))
			rec, found = nil, false
		}
	}()

	if tree == nil || store == nil {
		return nil, false
	}
	if cfg == nil {
		cfg = config.Default()
	}
	name, ok := compositeName(tree, offset, cfg, oracle)
	if !ok {
		return nil, false
	}
	info, ok := store.SnapshotForFile(ctx, tree.Path)
	if !ok || len(info.Definitions) == 0 {
		return nil, false
	}
	return info.Find(name)
}

// CompositeName returns the snapshot name the assertion at offset refers to,
// without consulting any artifact.
func CompositeName(tree *syntax.Tree, offset int, cfg *config.Config, oracle constant.Oracle) (name string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			name, ok = "", false
		}
	}()
	if tree == nil {
		return "", false
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return compositeName(tree, offset, cfg, oracle)
}

func compositeName(tree *syntax.Tree, offset int, cfg *config.Config, oracle constant.Oracle) (string, bool) {
	node := syntax.FindNodeAtPosition(tree, offset)
	calls := cfg.SnapshotCallSet()
	if !syntax.IsMatchingIdentifier(node, calls) {
		return "", false
	}
	call, ok := testblock.AssertionCall(node)
	if !ok {
		return "", false
	}

	path, ok := testblock.GetParentTestBlocks(tree, cfg.TestBlockSet(), node.Start(), oracle)
	if !ok {
		return "", false
	}
	counts := testblock.CountIdentifiersInBlock(path.Block, calls, node.Start())

	if custom, ok := testblock.CustomName(call); ok {
		return fmt.Sprintf("%s: %s %d", path.Name(), custom, counts.Named[custom]), true
	}
	return fmt.Sprintf("%s %d", path.Name(), counts.Anonymous), true
}

// Hover renders a record for hover display: a jsx code fence when useJSTags,
// otherwise the snapshot on a new line.
func Hover(rec *snapshot.Record, useJSTags bool) string {
	if rec == nil {
		return ""
	}
	if useJSTags {
		return "```jsx\n" + rec.Snapshot + "\n```"
	}
	return "\n" + rec.Snapshot
}

// Definition is a go-to-definition target inside an artifact file.
type Definition struct {
	File          string `json:"file"`
	Name          string `json:"name"`
	ContainerName string `json:"container_name"`
	Start         int    `json:"start"`
	Length        int    `json:"length"`
}

// DefinitionOf converts a record into a go-to-definition target.
func DefinitionOf(rec *snapshot.Record) *Definition {
	if rec == nil {
		return nil
	}
	return &Definition{
		File:          rec.File,
		Name:          rec.Name,
		ContainerName: "Snapshots",
		Start:         rec.Position,
		Length:        rec.Length,
	}
}
