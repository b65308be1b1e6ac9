// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package testblock locates the named test blocks enclosing a position and
// counts the snapshot assertions inside a block.
package testblock

import (
	"strings"

	"github.com/AleutianAI/snapsight/services/snapsight/constant"
	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

// Path is the chain of named test blocks enclosing a position.
type Path struct {
	// Names holds the folded block titles, outermost first.
	Names []string

	// Block is the innermost named block call. Its subtree is the counting
	// scope for snapshot assertions.
	Block *syntax.Node
}

// Name joins the block titles the way snapshot names are built.
func (p *Path) Name() string {
	return strings.Join(p.Names, " ")
}

// GetParentTestBlocks finds the named test blocks enclosing offset.
//
// Description:
//
//	Descends from the root into every node whose closed span contains
//	offset. A call whose callee is in blocks and whose first argument folds
//	to a string (see constant.ResolveBlockName) contributes its title and
//	becomes the innermost candidate. Calls that do not qualify are still
//	descended, so blocks with runtime titles are transparent rather than
//	hiding the named blocks inside them.
//
// Inputs:
//
//	tree   - Parsed source. May be nil.
//	blocks - Test block callee forms ("describe", "it.only", ...).
//	offset - Byte offset of the position.
//	oracle - Constant oracle for non-literal titles. May be nil.
//
// Outputs:
//
//	*Path - The enclosing named blocks.
//	bool  - False when no named block encloses offset.
func GetParentTestBlocks(tree *syntax.Tree, blocks syntax.IdentifierSet, offset int, oracle constant.Oracle) (*Path, bool) {
	if tree == nil || tree.Root == nil {
		return nil, false
	}
	path := &Path{}

	var visit func(n *syntax.Node)
	visit = func(n *syntax.Node) {
		if !n.Contains(offset) {
			return
		}
		if syntax.IsMatchingCallExpression(n, blocks) {
			if args := n.Arguments(); len(args) > 0 {
				if name, ok := constant.ResolveBlockName(args[0], oracle); ok {
					path.Names = append(path.Names, name)
					path.Block = n
				}
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(tree.Root)

	if path.Block == nil {
		return nil, false
	}
	return path, true
}

// Counts holds how many snapshot assertions occur in a block up to and
// including a position.
type Counts struct {
	// Anonymous counts calls without a custom name.
	Anonymous int

	// Named counts calls per custom name.
	Named map[string]int
}

// CountIdentifiersInBlock counts the snapshot assertions in scope whose name
// starts at or before offset.
//
// Description:
//
//	Walks the whole subtree of scope, nested blocks included. An identifier
//	from calls that is the method of a call (expect(x).name(), see
//	AssertionCall) counts once: under its custom name when that call has a
//	string-literal-like argument, as anonymous otherwise. The
//	comparison is inclusive, so the call at offset counts itself and the
//	result can be used directly as its 1-based index.
func CountIdentifiersInBlock(scope *syntax.Node, calls syntax.IdentifierSet, offset int) Counts {
	counts := Counts{Named: make(map[string]int)}
	if scope == nil {
		return counts
	}
	scope.Walk(func(n *syntax.Node) bool {
		if n.Start() > offset {
			// Descendants never start before their parent.
			return false
		}
		if !syntax.IsMatchingIdentifier(n, calls) {
			return true
		}
		call, ok := AssertionCall(n)
		if !ok {
			return true
		}
		if name, ok := CustomName(call); ok {
			counts.Named[name]++
		} else {
			counts.Anonymous++
		}
		return true
	})
	return counts
}

// AssertionCall returns the call invoking ident as a method, e.g. the
// expect(x).toMatchSnapshot() call for the toMatchSnapshot identifier.
// Identifiers passed as arguments (register(toMatchSnapshot)) or called
// bare are not assertions.
func AssertionCall(ident *syntax.Node) (*syntax.Node, bool) {
	if ident == nil {
		return nil, false
	}
	member := ident.Parent()
	if member == nil || member.Kind() != syntax.KindMember || member.Property() != ident {
		return nil, false
	}
	call := member.Parent()
	if call == nil || call.Kind() != syntax.KindCall || call.Callee() != member {
		return nil, false
	}
	return call, true
}

// CustomName returns the cooked value of the first string-literal-like
// argument of a snapshot assertion call, e.g. "hint" in
// toMatchSnapshot({ id: expect.any(String) }, "hint").
func CustomName(call *syntax.Node) (string, bool) {
	if call == nil {
		return "", false
	}
	for _, arg := range call.Arguments() {
		if syntax.IsStringLiteralLike(arg) {
			return arg.StringValue()
		}
	}
	return "", false
}
