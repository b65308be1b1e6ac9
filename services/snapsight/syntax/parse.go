// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DefaultMaxFileSize is the largest source accepted by Parse (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

var (
	// ErrFileTooLarge is returned when the source exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent is returned when the source is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content: not valid UTF-8")
)

// Language identifiers returned by LanguageForPath.
const (
	LanguageJavaScript = "javascript"
	LanguageTypeScript = "typescript"
	LanguageTSX        = "tsx"
)

// tree-sitter node types mapped onto Kind.
var nodeKinds = map[string]Kind{
	"program":                       KindProgram,
	"call_expression":               KindCall,
	"arguments":                     KindArguments,
	"member_expression":             KindMember,
	"subscript_expression":          KindSubscript,
	"identifier":                    KindIdentifier,
	"property_identifier":           KindIdentifier,
	"shorthand_property_identifier": KindIdentifier,
	"type_identifier":               KindIdentifier,
	"string":                        KindString,
	"template_string":               KindTemplate,
	"template_substitution":         KindTemplateSubstitution,
	"number":                        KindNumber,
	"binary_expression":             KindBinary,
	"assignment_expression":         KindAssignment,
	"lexical_declaration":           KindLexicalDeclaration,
	"variable_declaration":          KindLexicalDeclaration,
	"variable_declarator":           KindVariableDeclarator,
	"import_statement":              KindImport,
	"import_clause":                 KindImportClause,
	"namespace_import":              KindNamespaceImport,
	"import_specifier":              KindImportSpecifier,
	"export_statement":              KindExport,
	"export_clause":                 KindExportClause,
	"export_specifier":              KindExportSpecifier,
	"object":                        KindObject,
	"pair":                          KindPair,
	"enum_declaration":              KindEnum,
	"enum_assignment":               KindEnumAssignment,
	"as_expression":                 KindAs,
	"parenthesized_expression":      KindParenthesized,
	"ERROR":                         KindError,
}

// Field names captured per kind. Only these are looked up with
// ChildByFieldName; everything else is reachable through Children.
var kindFields = map[Kind][]string{
	KindCall:               {"function", "arguments"},
	KindMember:             {"object", "property"},
	KindSubscript:          {"object", "index"},
	KindBinary:             {"left", "right"},
	KindAssignment:         {"left", "right"},
	KindVariableDeclarator: {"name", "value"},
	KindImport:             {"source"},
	KindImportSpecifier:    {"name", "alias"},
	KindExport:             {"declaration", "value", "source"},
	KindExportSpecifier:    {"name", "alias"},
	KindPair:               {"key", "value"},
	KindEnum:               {"name", "body"},
	KindEnumAssignment:     {"name", "value"},
}

// Tree is the parsed, immutable representation of one source file.
//
// Description:
//
//	Built once per lookup by the host and only read by the resolver. The
//	underlying tree-sitter tree is released as soon as the Node tree has
//	been materialized, so a Tree holds no C memory.
//
// Thread Safety:
//
//	Safe for concurrent reads.
type Tree struct {
	// Path is the file path the tree was parsed from.
	Path string

	// Language is one of LanguageJavaScript, LanguageTypeScript, LanguageTSX.
	Language string

	// Root is the program node.
	Root *Node

	// HasErrors is true when tree-sitter had to recover from syntax errors.
	HasErrors bool

	source     []byte
	lineStarts []int
}

// PositionOf converts a 0-based line and 0-based byte column into an offset.
// Lines past the end of the file map to len(source) + character.
func (t *Tree) PositionOf(line, character int) int {
	if line < 0 {
		return character
	}
	if line >= len(t.lineStarts) {
		return len(t.source) + character
	}
	return t.lineStarts[line] + character
}

// LineColumn converts an offset into a 0-based line and byte column.
func (t *Tree) LineColumn(offset int) (int, int) {
	line := sort.Search(len(t.lineStarts), func(i int) bool { return t.lineStarts[i] > offset }) - 1
	if line < 0 {
		return 0, offset
	}
	return line, offset - t.lineStarts[line]
}

// LanguageForPath picks the grammar for a file from its extension.
//
// Description:
//
//	.tsx uses the TSX grammar, .ts/.mts/.cts the TypeScript grammar and
//	everything else (including .js, .jsx and snapshot artifacts) the
//	JavaScript grammar, which understands JSX.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return LanguageTSX
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	default:
		return LanguageJavaScript
	}
}

func sitterLanguage(lang string) *sitter.Language {
	switch lang {
	case LanguageTSX:
		return tsx.GetLanguage()
	case LanguageTypeScript:
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Parse parses source into a Tree using the grammar selected by the path.
//
// Description:
//
//	Parse is error-tolerant: syntactically invalid code still yields a tree
//	with ERROR nodes, and Tree.HasErrors is set.
//
// Inputs:
//
//	ctx    - Context for cancellation. Checked before parsing.
//	path   - File path. Selects the grammar and is recorded on the Tree.
//	source - Raw UTF-8 source bytes.
//
// Outputs:
//
//	*Tree - The parsed tree. Never nil on success.
//	error - ErrFileTooLarge, ErrInvalidContent, or a context/parse error.
//
// Thread Safety:
//
//	Safe for concurrent use; each call creates its own tree-sitter parser.
func Parse(ctx context.Context, path string, source []byte) (*Tree, error) {
	return ParseLanguage(ctx, path, LanguageForPath(path), source)
}

// ParseLanguage is Parse with an explicit language.
func ParseLanguage(ctx context.Context, path, lang string, source []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if len(source) > DefaultMaxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(source), DefaultMaxFileSize)
	}
	if !utf8.Valid(source) {
		return nil, ErrInvalidContent
	}

	parser := sitter.NewParser()
	parser.SetLanguage(sitterLanguage(lang))

	tsTree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	tree := &Tree{
		Path:       path,
		Language:   lang,
		HasErrors:  root.HasError(),
		source:     source,
		lineStarts: computeLineStarts(source),
	}
	tree.Root = convert(root, nil, source)

	if tree.HasErrors {
		slog.Debug("parsed with syntax errors",
			slog.String("file", path),
			slog.String("language", lang))
	}
	return tree, nil
}

// convert materializes a tree-sitter node and its named descendants.
func convert(ts *sitter.Node, parent *Node, source []byte) *Node {
	typ := ts.Type()
	n := &Node{
		kind:   nodeKinds[typ],
		typ:    typ,
		start:  int(ts.StartByte()),
		end:    int(ts.EndByte()),
		parent: parent,
		source: source,
	}

	// String literals are leaves; template literals keep only their holes.
	count := int(ts.NamedChildCount())
	if n.kind == KindString {
		count = 0
	}
	if count > 0 {
		n.children = make([]*Node, 0, count)
	}
	for i := 0; i < count; i++ {
		child := ts.NamedChild(i)
		if child == nil || child.IsMissing() || child.Type() == "comment" {
			continue
		}
		if n.kind == KindTemplate && child.Type() != "template_substitution" {
			continue
		}
		n.children = append(n.children, convert(child, n, source))
	}

	if names, ok := kindFields[n.kind]; ok {
		for _, name := range names {
			fc := ts.ChildByFieldName(name)
			if fc == nil {
				continue
			}
			if match := n.childAt(int(fc.StartByte()), int(fc.EndByte()), fc.Type()); match != nil {
				if n.fields == nil {
					n.fields = make(map[string]*Node, len(names))
				}
				n.fields[name] = match
			}
		}
	}

	switch n.kind {
	case KindBinary:
		if op := ts.ChildByFieldName("operator"); op != nil {
			n.operator = op.Type()
		}
	case KindLexicalDeclaration:
		if ts.ChildCount() > 0 {
			n.keyword = ts.Child(0).Type()
		}
	}
	return n
}

func (n *Node) childAt(start, end int, typ string) *Node {
	for _, c := range n.children {
		if c.start == start && c.end == end && c.typ == typ {
			return c
		}
	}
	return nil
}

func computeLineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
