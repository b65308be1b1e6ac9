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
	"strings"
	"testing"

	"github.com/AleutianAI/snapsight/internal/testfixtures"
)

func TestParseSnapshotFile(t *testing.T) {
	src := testfixtures.ParserSnapshot
	records := ParseSnapshotFile(context.Background(), "a.snap", []byte(src))

	want := []struct {
		name     string
		snapshot string
		text     string
	}{
		{"abc", "abc", `exports["abc"] = "abc"`},
		{"abc", "\n        abc,\n        def\n        ", "exports[`abc`] = `\n        abc,\n        def\n        `"},
		{"bb", "abc", `module.exports["bb"] = "abc"`},
		{"def", "", `exports["def"] = ""`},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(records), records)
	}
	for i, w := range want {
		rec := records[i]
		if rec.File != "a.snap" {
			t.Errorf("record %d: expected file a.snap, got %q", i, rec.File)
		}
		if rec.Name != w.name {
			t.Errorf("record %d: expected name %q, got %q", i, w.name, rec.Name)
		}
		if rec.Snapshot != w.snapshot {
			t.Errorf("record %d: expected snapshot %q, got %q", i, w.snapshot, rec.Snapshot)
		}
		if rec.Position != strings.Index(src, w.text) {
			t.Errorf("record %d: expected position %d, got %d", i, strings.Index(src, w.text), rec.Position)
		}
		if rec.Length != len(w.text) {
			t.Errorf("record %d: expected length %d, got %d", i, len(w.text), rec.Length)
		}
	}
}

func TestParseSnapshotFile_Escapes(t *testing.T) {
	src := "exports[`escaped \\` name 1`] = `a \\${b} \\\\ c`;\n"
	records := ParseSnapshotFile(context.Background(), "a.snap", []byte(src))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Name != "escaped ` name 1" {
		t.Errorf("unexpected name %q", records[0].Name)
	}
	if records[0].Snapshot != `a ${b} \ c` {
		t.Errorf("unexpected snapshot %q", records[0].Snapshot)
	}
}

func TestParseSnapshotFile_SkipsNonLiteral(t *testing.T) {
	src := `exports[name] = "a";
exports["b"] = value;
exports["c"] = ` + "`hole ${x}`" + `;
exports.d = "d";
exports["e"] += "e";
if (true) {
    exports["nested"] = "found";
}
`
	records := ParseSnapshotFile(context.Background(), "a.snap", []byte(src))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(records), records)
	}
	if records[0].Name != "nested" || records[0].Snapshot != "found" {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestParseSnapshotFile_Unparseable(t *testing.T) {
	records := ParseSnapshotFile(context.Background(), "a.snap", []byte{0xff, 0xfe})
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty slice, got %#v", records)
	}
}

func TestParseSnapshotFile_Empty(t *testing.T) {
	for name, src := range map[string][]byte{"nil": nil, "empty": []byte("")} {
		t.Run(name, func(t *testing.T) {
			records := ParseSnapshotFile(context.Background(), "a.snap", src)
			if records == nil || len(records) != 0 {
				t.Errorf("expected empty slice, got %#v", records)
			}
		})
	}
}

func TestParseSnapshotFile_SingleRecord(t *testing.T) {
	src := `exports["abc"] = "abc";`
	records := ParseSnapshotFile(context.Background(), "a.snap", []byte(src))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Name != "abc" || rec.Snapshot != "abc" || rec.File != "a.snap" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Position != 0 || rec.Length != len(`exports["abc"] = "abc"`) {
		t.Errorf("unexpected span %d+%d", rec.Position, rec.Length)
	}
}

func TestInfo_Find(t *testing.T) {
	info := &Info{Definitions: []Record{{Name: "a 1", Snapshot: "first"}, {Name: "a 1", Snapshot: "second"}}}

	rec, ok := info.Find("a 1")
	if !ok || rec.Snapshot != "first" {
		t.Errorf("expected first match, got %+v", rec)
	}
	if _, ok := info.Find("missing"); ok {
		t.Error("expected no match")
	}
	var nilInfo *Info
	if _, ok := nilInfo.Find("a 1"); ok {
		t.Error("expected no match on nil info")
	}
}
