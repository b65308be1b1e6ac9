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
	"log/slog"
	"time"

	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

// Record is one stored snapshot inside an artifact file.
type Record struct {
	// File is the artifact path the record was read from.
	File string `json:"file"`

	// Name is the snapshot key, e.g. "describe it 1".
	Name string `json:"name"`

	// Snapshot is the stored value with escape sequences processed.
	Snapshot string `json:"snapshot"`

	// Position is the byte offset of the assignment in the artifact file.
	Position int `json:"position"`

	// Length is the byte length of the assignment.
	Length int `json:"length"`
}

// ParseFunc extracts records from an artifact file.
type ParseFunc func(ctx context.Context, path string, source []byte) []Record

// ParseSnapshotFile extracts every `container[key] = value` assignment whose
// key and value are string literals or plain template literals.
//
// Description:
//
//	The artifact is parsed as JavaScript. Matching assignments are not
//	descended into; every other node is, so assignments nested in blocks
//	or wrappers are found too. Records are returned in source order.
//
// Inputs:
//
//	ctx    - Context for cancellation of the parse.
//	path   - Artifact path, copied into every record.
//	source - Artifact content.
//
// Outputs:
//
//	[]Record - The records. Empty (never an error) when the source cannot
//	           be parsed.
func ParseSnapshotFile(ctx context.Context, path string, source []byte) []Record {
	if len(source) == 0 {
		return []Record{}
	}
	start := time.Now()
	tree, err := syntax.ParseLanguage(ctx, path, syntax.LanguageJavaScript, source)
	if err != nil {
		slog.Debug("snapshot file not parsed",
			slog.String("snapshot_path", path),
			slog.String("error", err.Error()))
		recordParse("error", time.Since(start))
		return []Record{}
	}

	records := []Record{}
	var visit func(n *syntax.Node)
	visit = func(n *syntax.Node) {
		if rec, ok := recordOf(n); ok {
			rec.File = path
			records = append(records, rec)
			return
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	if tree.Root != nil {
		visit(tree.Root)
	}

	recordParse("success", time.Since(start))
	return records
}

func recordOf(n *syntax.Node) (Record, bool) {
	if n.Kind() != syntax.KindAssignment {
		return Record{}, false
	}
	left, right := n.Left(), n.Right()
	if left == nil || left.Kind() != syntax.KindSubscript {
		return Record{}, false
	}
	name, ok := left.Index().StringValue()
	if !ok {
		return Record{}, false
	}
	value, ok := right.StringValue()
	if !ok {
		return Record{}, false
	}
	return Record{
		Name:     name,
		Snapshot: value,
		Position: n.Start(),
		Length:   n.End() - n.Start(),
	}, true
}
