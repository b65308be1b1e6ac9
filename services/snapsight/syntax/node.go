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

import "strings"

// Kind is the closed set of node variants the resolver distinguishes.
//
// Every tree-sitter node type the resolver does not need to inspect maps to
// KindOther; such nodes are still part of the tree so offsets and parents
// stay accurate.
type Kind int

const (
	KindOther Kind = iota
	KindProgram
	KindCall
	KindArguments
	KindMember
	KindSubscript
	KindIdentifier
	KindString
	KindTemplate
	KindTemplateSubstitution
	KindNumber
	KindBinary
	KindAssignment
	KindLexicalDeclaration
	KindVariableDeclarator
	KindImport
	KindImportClause
	KindNamespaceImport
	KindImportSpecifier
	KindExport
	KindExportClause
	KindExportSpecifier
	KindObject
	KindPair
	KindEnum
	KindEnumAssignment
	KindAs
	KindParenthesized
	KindError
)

var kindNames = map[Kind]string{
	KindOther:                "other",
	KindProgram:              "program",
	KindCall:                 "call",
	KindArguments:            "arguments",
	KindMember:               "member",
	KindSubscript:            "subscript",
	KindIdentifier:           "identifier",
	KindString:               "string",
	KindTemplate:             "template",
	KindTemplateSubstitution: "template_substitution",
	KindNumber:               "number",
	KindBinary:               "binary",
	KindAssignment:           "assignment",
	KindLexicalDeclaration:   "lexical_declaration",
	KindVariableDeclarator:   "variable_declarator",
	KindImport:               "import",
	KindImportClause:         "import_clause",
	KindNamespaceImport:      "namespace_import",
	KindImportSpecifier:      "import_specifier",
	KindExport:               "export",
	KindExportClause:         "export_clause",
	KindExportSpecifier:      "export_specifier",
	KindObject:               "object",
	KindPair:                 "pair",
	KindEnum:                 "enum",
	KindEnumAssignment:       "enum_assignment",
	KindAs:                   "as",
	KindParenthesized:        "parenthesized",
	KindError:                "error",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is one immutable node of a parsed source file.
//
// Description:
//
//	Nodes are built once by Parse and never mutated afterwards. Parent is a
//	back-reference only; ownership flows from Tree.Root down through
//	Children. Kind-specific accessors (Callee, Arguments, Object, ...) return
//	nil when the node is of a different kind or the field is absent.
//
// Thread Safety:
//
//	Safe for concurrent reads.
type Node struct {
	kind     Kind
	typ      string
	start    int
	end      int
	parent   *Node
	children []*Node
	source   []byte

	// fields holds tree-sitter field children (function, arguments, object,
	// property, index, left, right, name, value, source, alias, key, body).
	fields map[string]*Node
	// operator is the anonymous operator token of binary expressions.
	operator string
	// keyword is the declaration keyword of lexical declarations (const, let).
	keyword string
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Type returns the underlying tree-sitter node type, e.g. "property_identifier".
func (n *Node) Type() string { return n.typ }

// Start returns the start byte offset (inclusive).
func (n *Node) Start() int { return n.start }

// End returns the end byte offset (exclusive in the source, inclusive for
// position containment checks).
func (n *Node) End() int { return n.end }

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the named children in source order.
func (n *Node) Children() []*Node { return n.children }

// Text returns the exact source text of the node.
func (n *Node) Text() string {
	if n == nil || n.start < 0 || n.end > len(n.source) || n.start > n.end {
		return ""
	}
	return string(n.source[n.start:n.end])
}

// Contains reports whether offset lies within the closed span [Start, End].
func (n *Node) Contains(offset int) bool {
	return offset >= n.start && offset <= n.end
}

// Grandparent returns the parent of the parent, or nil.
func (n *Node) Grandparent() *Node {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent.parent
}

func (n *Node) field(name string) *Node {
	if n == nil || n.fields == nil {
		return nil
	}
	return n.fields[name]
}

// Field returns the child stored under a tree-sitter field name.
func (n *Node) Field(name string) *Node { return n.field(name) }

// Callee returns the function expression of a call.
func (n *Node) Callee() *Node {
	if n.kind != KindCall {
		return nil
	}
	return n.field("function")
}

// Arguments returns the argument expressions of a call. Tagged template
// calls have no argument list and return nil.
func (n *Node) Arguments() []*Node {
	if n.kind != KindCall {
		return nil
	}
	args := n.field("arguments")
	if args == nil || args.kind != KindArguments {
		return nil
	}
	return args.children
}

// Object returns the object of a member or subscript expression.
func (n *Node) Object() *Node {
	if n.kind != KindMember && n.kind != KindSubscript {
		return nil
	}
	return n.field("object")
}

// Property returns the property name node of a member expression.
func (n *Node) Property() *Node {
	if n.kind != KindMember {
		return nil
	}
	return n.field("property")
}

// Index returns the index expression of a subscript expression.
func (n *Node) Index() *Node {
	if n.kind != KindSubscript {
		return nil
	}
	return n.field("index")
}

// Left returns the left operand of a binary or assignment expression.
func (n *Node) Left() *Node {
	if n.kind != KindBinary && n.kind != KindAssignment {
		return nil
	}
	return n.field("left")
}

// Right returns the right operand of a binary or assignment expression.
func (n *Node) Right() *Node {
	if n.kind != KindBinary && n.kind != KindAssignment {
		return nil
	}
	return n.field("right")
}

// Operator returns the operator token of a binary expression.
func (n *Node) Operator() string { return n.operator }

// Keyword returns "const", "let" or "var" for declarations.
func (n *Node) Keyword() string { return n.keyword }

// Substitutions returns the ${...} holes of a template literal in order.
func (n *Node) Substitutions() []*Node {
	if n.kind != KindTemplate {
		return nil
	}
	var subs []*Node
	for _, c := range n.children {
		if c.kind == KindTemplateSubstitution {
			subs = append(subs, c)
		}
	}
	return subs
}

// Expression returns the wrapped expression of a template substitution,
// parenthesized expression or as-expression.
func (n *Node) Expression() *Node {
	switch n.kind {
	case KindTemplateSubstitution, KindParenthesized, KindAs:
		if len(n.children) == 0 {
			return nil
		}
		return n.children[0]
	}
	return nil
}

// IsConstAssertion reports whether an as-expression is `expr as const`.
func (n *Node) IsConstAssertion() bool {
	if n.kind != KindAs {
		return false
	}
	text := n.Text()
	expr := n.Expression()
	if expr == nil {
		return false
	}
	fields := strings.Fields(text[expr.end-n.start:])
	return len(fields) == 2 && fields[0] == "as" && fields[1] == "const"
}

// Walk calls fn for n and every descendant in depth-first pre-order. When fn
// returns false the children of that node are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}
