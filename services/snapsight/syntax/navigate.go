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

// IdentifierSet is a set of identifier texts such as "toMatchSnapshot" or
// dotted callee forms such as "it.only".
type IdentifierSet map[string]struct{}

// NewIdentifierSet builds a set from a list of names.
func NewIdentifierSet(names ...string) IdentifierSet {
	set := make(IdentifierSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (s IdentifierSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// FindNodeAtPosition returns the innermost node whose span contains offset.
//
// Description:
//
//	Starting from the top-level statements, descends into the first child
//	whose closed span [Start, End] contains offset and stops when no child
//	qualifies. The program node itself is never returned.
//
// Inputs:
//
//	tree   - Parsed tree. May be nil.
//	offset - Byte offset into the source.
//
// Outputs:
//
//	*Node - The innermost node, or nil when the offset lies outside every
//	        top-level statement (out of range, or whitespace between
//	        statements).
func FindNodeAtPosition(tree *Tree, offset int) *Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	current := firstContaining(tree.Root.children, offset)
	if current == nil {
		return nil
	}
	for {
		next := firstContaining(current.children, offset)
		if next == nil {
			return current
		}
		current = next
	}
}

func firstContaining(nodes []*Node, offset int) *Node {
	for _, n := range nodes {
		if n.Contains(offset) {
			return n
		}
	}
	return nil
}

// IsMatchingIdentifier reports whether node is a bare name whose text is in set.
func IsMatchingIdentifier(node *Node, set IdentifierSet) bool {
	if node == nil || node.kind != KindIdentifier {
		return false
	}
	return set.Has(node.Text())
}

// IsMatchingCallExpression reports whether node is a call whose callee text
// (e.g. "it", "it.only", "describe.skip") is in set.
func IsMatchingCallExpression(node *Node, set IdentifierSet) bool {
	if node == nil || node.kind != KindCall {
		return false
	}
	callee := node.Callee()
	if callee == nil {
		return false
	}
	return set.Has(callee.Text())
}
