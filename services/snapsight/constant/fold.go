// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package constant folds test block titles into strings.
//
// Titles written as plain literals fold syntactically. Titles that refer to
// other declarations (identifiers, property access, template holes) need an
// Oracle, which reports the literal value an expression statically evaluates
// to. Declarations is the Oracle used by the hosts.
package constant

import (
	"strings"

	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

// LiteralKind distinguishes string from numeric literal values.
type LiteralKind int

const (
	// KindString is a string literal value.
	KindString LiteralKind = iota

	// KindNumber is a numeric literal value, stored in canonical decimal text.
	KindNumber
)

// String returns "string" or "number".
func (k LiteralKind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "string"
}

// Literal is the statically known value of an expression.
type Literal struct {
	Value string
	Kind  LiteralKind
}

// Oracle answers which literal value an expression statically evaluates to.
//
// Implementations must be side-effect free from the caller's point of view
// and must not panic on unexpected node shapes.
type Oracle interface {
	LiteralOf(expr *syntax.Node) (Literal, bool)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(expr *syntax.Node) (Literal, bool)

// LiteralOf calls f(expr).
func (f OracleFunc) LiteralOf(expr *syntax.Node) (Literal, bool) { return f(expr) }

// ResolveBlockName folds a test block title expression into a string.
//
// Description:
//
//	Cases are tried in order:
//	  1. String or numeric literal, or template without holes.
//	  2. Bare name or property access: the oracle must report a string literal.
//	  3. Template with holes: every hole must be a bare name or property
//	     access the oracle reports as a string or number literal.
//	  4. Binary "+": both operands fold recursively and are concatenated.
//	Anything else is unresolved.
//
// Inputs:
//
//	node   - The title expression (usually the first call argument). May be nil.
//	oracle - Static value oracle. May be nil, in which case cases 2 and 3
//	         always fail.
//
// Outputs:
//
//	string - The folded name.
//	bool   - False when the expression cannot be folded. Never panics.
func ResolveBlockName(node *syntax.Node, oracle Oracle) (string, bool) {
	if node == nil {
		return "", false
	}

	if syntax.IsStringLiteralLike(node) {
		return node.StringValue()
	}
	if v, ok := node.NumberValue(); ok {
		return v, true
	}

	switch node.Kind() {
	case syntax.KindIdentifier, syntax.KindMember:
		lit, ok := query(oracle, node)
		if !ok || lit.Kind != KindString {
			return "", false
		}
		return lit.Value, true

	case syntax.KindTemplate:
		head, spans, ok := node.TemplateParts()
		if !ok {
			return "", false
		}
		var b strings.Builder
		b.WriteString(head)
		for _, span := range spans {
			expr := span.Expression
			if expr == nil || (expr.Kind() != syntax.KindIdentifier && expr.Kind() != syntax.KindMember) {
				return "", false
			}
			lit, ok := query(oracle, expr)
			if !ok {
				return "", false
			}
			b.WriteString(lit.Value)
			b.WriteString(span.Literal)
		}
		return b.String(), true

	case syntax.KindBinary:
		if node.Operator() != "+" {
			return "", false
		}
		left, ok := ResolveBlockName(node.Left(), oracle)
		if !ok {
			return "", false
		}
		right, ok := ResolveBlockName(node.Right(), oracle)
		if !ok {
			return "", false
		}
		return left + right, true
	}
	return "", false
}

func query(oracle Oracle, expr *syntax.Node) (Literal, bool) {
	if oracle == nil {
		return Literal{}, false
	}
	return oracle.LiteralOf(expr)
}
