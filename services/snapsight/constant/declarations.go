// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package constant

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/AleutianAI/snapsight/services/snapsight/syntax"
)

// DefaultMaxDepth bounds how many bindings and imports one lookup may chase.
const DefaultMaxDepth = 16

// Declarations is an Oracle backed by the declarations visible in a source
// file and, through a ModuleLoader, the modules it imports.
//
// Description:
//
//	An expression has a literal value when it is (or chases to) one of:
//	  - a string, number or plain template literal, optionally negated,
//	    parenthesized or asserted "as const";
//	  - a const binding whose initializer has a literal value;
//	  - a member of a string or numeric enum (E.A);
//	  - a property of an object literal asserted "as const" (obj.a, obj["a"]);
//	  - an import (named, default or namespace) of any of the above from a
//	    relative module, following export clauses and re-exports.
//	let/var bindings, function parameters and destructured names shadow
//	outer constants and are never literal.
//
// Thread Safety:
//
//	Safe for concurrent use if the ModuleLoader is.
type Declarations struct {
	ctx      context.Context
	root     *module
	loader   *ModuleLoader
	maxDepth int
	logger   *slog.Logger
}

// DeclarationsOption configures Declarations.
type DeclarationsOption func(*Declarations)

// WithModuleLoader enables following imports. Without a loader imported
// names are never literal.
func WithModuleLoader(loader *ModuleLoader) DeclarationsOption {
	return func(d *Declarations) { d.loader = loader }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) DeclarationsOption {
	return func(d *Declarations) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) DeclarationsOption {
	return func(d *Declarations) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDeclarations creates an oracle for expressions inside tree. ctx bounds
// module loading and should be scoped to a single lookup.
func NewDeclarations(ctx context.Context, tree *syntax.Tree, opts ...DeclarationsOption) *Declarations {
	if ctx == nil {
		ctx = context.Background()
	}
	d := &Declarations{
		ctx:      ctx,
		root:     &module{tree: tree},
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LiteralOf implements Oracle.
func (d *Declarations) LiteralOf(expr *syntax.Node) (Literal, bool) {
	if d == nil || expr == nil || d.root.tree == nil {
		return Literal{}, false
	}
	v, ok := d.eval(expr, d.root, 0)
	if !ok || v.kind != valueLiteral {
		return Literal{}, false
	}
	return v.lit, true
}

type module struct {
	tree *syntax.Tree
}

func (m *module) path() string {
	if m.tree == nil {
		return ""
	}
	return m.tree.Path
}

type valueKind int

const (
	valueLiteral valueKind = iota
	valueObject
	valueEnum
	valueModule
)

// value is the static value of an expression: a literal, or a container
// whose members can be looked up.
type value struct {
	kind valueKind
	lit  Literal
	// node is the object literal or enum declaration.
	node *syntax.Node
	// frozen marks objects under an "as const" assertion.
	frozen bool
	mod    *module
}

func (d *Declarations) eval(expr *syntax.Node, mod *module, depth int) (value, bool) {
	if expr == nil || depth > d.maxDepth {
		return value{}, false
	}

	if syntax.IsStringLiteralLike(expr) {
		s, ok := expr.StringValue()
		return value{kind: valueLiteral, lit: Literal{Value: s, Kind: KindString}}, ok
	}

	switch expr.Kind() {
	case syntax.KindNumber:
		n, _ := expr.NumberValue()
		return value{kind: valueLiteral, lit: Literal{Value: n, Kind: KindNumber}}, true

	case syntax.KindIdentifier:
		return d.lookup(expr, expr.Text(), mod, depth+1)

	case syntax.KindMember:
		prop := expr.Property()
		if prop == nil {
			return value{}, false
		}
		container, ok := d.eval(expr.Object(), mod, depth+1)
		if !ok {
			return value{}, false
		}
		return d.member(container, prop.Text(), depth+1)

	case syntax.KindSubscript:
		key, ok := d.eval(expr.Index(), mod, depth+1)
		if !ok || key.kind != valueLiteral {
			return value{}, false
		}
		container, ok := d.eval(expr.Object(), mod, depth+1)
		if !ok {
			return value{}, false
		}
		return d.member(container, key.lit.Value, depth+1)

	case syntax.KindParenthesized:
		return d.eval(expr.Expression(), mod, depth+1)

	case syntax.KindAs:
		if !expr.IsConstAssertion() {
			return value{}, false
		}
		v, ok := d.eval(expr.Expression(), mod, depth+1)
		if ok && v.kind == valueObject {
			v.frozen = true
		}
		return v, ok

	case syntax.KindObject:
		return value{kind: valueObject, node: expr, mod: mod}, true
	}

	if expr.Type() == "unary_expression" && len(expr.Children()) == 1 {
		operand := expr.Children()[0]
		if operand.Kind() == syntax.KindNumber && len(expr.Text()) > 0 && expr.Text()[0] == '-' {
			n, _ := operand.NumberValue()
			if n != "0" {
				n = "-" + n
			}
			return value{kind: valueLiteral, lit: Literal{Value: n, Kind: KindNumber}}, true
		}
	}
	return value{}, false
}

// member looks up name inside a container value.
func (d *Declarations) member(container value, name string, depth int) (value, bool) {
	switch container.kind {
	case valueObject:
		if !container.frozen {
			return value{}, false
		}
		for _, pair := range container.node.Children() {
			if pair.Kind() != syntax.KindPair || propertyKey(pair.Field("key")) != name {
				continue
			}
			v, ok := d.eval(pair.Field("value"), container.mod, depth+1)
			if ok && v.kind == valueObject {
				v.frozen = true
			}
			return v, ok
		}
	case valueEnum:
		return enumMember(container.node, name)
	case valueModule:
		return d.exported(container.mod, name, depth+1)
	}
	return value{}, false
}

func propertyKey(key *syntax.Node) string {
	if key == nil {
		return ""
	}
	if s, ok := key.StringValue(); ok {
		return s
	}
	if n, ok := key.NumberValue(); ok {
		return n
	}
	return key.Text()
}

// enumMember evaluates a member of a string or numeric enum. Members without
// an initializer continue numbering from the previous numeric member.
func enumMember(decl *syntax.Node, name string) (value, bool) {
	body := decl.Field("body")
	if body == nil {
		return value{}, false
	}
	next, numeric := 0.0, true
	for _, m := range body.Children() {
		var (
			memberName string
			lit        Literal
			ok         bool
		)
		switch m.Kind() {
		case syntax.KindEnumAssignment:
			memberName = propertyKey(m.Field("name"))
			init := m.Field("value")
			switch {
			case syntax.IsStringLiteralLike(init):
				s, _ := init.StringValue()
				lit, ok = Literal{Value: s, Kind: KindString}, true
				numeric = false
			case init != nil && init.Kind() == syntax.KindNumber:
				text, _ := init.NumberValue()
				f, err := strconv.ParseFloat(text, 64)
				lit, ok = Literal{Value: text, Kind: KindNumber}, err == nil
				next, numeric = f+1, err == nil
			default:
				numeric = false
			}
		default:
			memberName = propertyKey(m)
			if numeric {
				lit, ok = Literal{Value: syntax.FormatNumber(strconv.FormatFloat(next, 'f', -1, 64)), Kind: KindNumber}, true
				next++
			}
		}
		if memberName == name {
			return value{kind: valueLiteral, lit: lit}, ok
		}
	}
	return value{}, false
}

// lookup finds the binding of name visible from the node at, walking scopes
// outwards.
func (d *Declarations) lookup(at *syntax.Node, name string, mod *module, depth int) (value, bool) {
	if depth > d.maxDepth {
		return value{}, false
	}
	for scope := at.Parent(); scope != nil; scope = scope.Parent() {
		if bindsParameter(scope, name) {
			return value{}, false
		}
		for _, stmt := range scope.Children() {
			v, found, ok := d.declared(stmt, name, mod, depth)
			if found {
				return v, ok
			}
		}
	}
	return value{}, false
}

// declared checks whether stmt declares name. found reports a binding
// (literal or not) that ends the scope walk.
func (d *Declarations) declared(stmt *syntax.Node, name string, mod *module, depth int) (v value, found, ok bool) {
	switch stmt.Kind() {
	case syntax.KindExport:
		if decl := stmt.Field("declaration"); decl != nil {
			return d.declared(decl, name, mod, depth)
		}

	case syntax.KindLexicalDeclaration:
		for _, declarator := range stmt.Children() {
			if declarator.Kind() != syntax.KindVariableDeclarator {
				continue
			}
			target := declarator.Field("name")
			if target == nil {
				continue
			}
			if target.Kind() != syntax.KindIdentifier {
				if patternBinds(target, name) {
					return value{}, true, false
				}
				continue
			}
			if target.Text() != name {
				continue
			}
			if stmt.Keyword() != "const" {
				return value{}, true, false
			}
			v, ok := d.eval(declarator.Field("value"), mod, depth+1)
			return v, true, ok
		}

	case syntax.KindEnum:
		if n := stmt.Field("name"); n != nil && n.Text() == name {
			return value{kind: valueEnum, node: stmt, mod: mod}, true, true
		}

	case syntax.KindImport:
		return d.imported(stmt, name, mod, depth)
	}
	return value{}, false, false
}

func (d *Declarations) imported(stmt *syntax.Node, name string, mod *module, depth int) (value, bool, bool) {
	source := stmt.Field("source")
	var clause *syntax.Node
	for _, c := range stmt.Children() {
		if c.Kind() == syntax.KindImportClause {
			clause = c
		}
	}
	if source == nil || clause == nil {
		return value{}, false, false
	}

	// exported is the name to look up in the target module; "" means the
	// module namespace itself.
	exported, found := "", false
	for _, c := range clause.Children() {
		switch c.Kind() {
		case syntax.KindIdentifier:
			if c.Text() == name {
				exported, found = "default", true
			}
		case syntax.KindNamespaceImport:
			for _, id := range c.Children() {
				if id.Kind() == syntax.KindIdentifier && id.Text() == name {
					found = true
				}
			}
		default:
			for _, spec := range c.Children() {
				if spec.Kind() != syntax.KindImportSpecifier {
					continue
				}
				local := spec.Field("alias")
				if local == nil {
					local = spec.Field("name")
				}
				if local != nil && local.Text() == name {
					exported, found = propertyKey(spec.Field("name")), true
				}
			}
		}
		if found {
			break
		}
	}
	if !found {
		return value{}, false, false
	}

	specifier, ok := source.StringValue()
	if !ok {
		return value{}, true, false
	}
	target, ok := d.load(mod, specifier)
	if !ok {
		return value{}, true, false
	}
	if exported == "" {
		return value{kind: valueModule, mod: target}, true, true
	}
	v, ok := d.exported(target, exported, depth+1)
	return v, true, ok
}

// exported evaluates the export called name of mod.
func (d *Declarations) exported(mod *module, name string, depth int) (value, bool) {
	if depth > d.maxDepth || mod == nil || mod.tree == nil || mod.tree.Root == nil {
		return value{}, false
	}
	var starSources []*syntax.Node

	for _, stmt := range mod.tree.Root.Children() {
		if stmt.Kind() != syntax.KindExport {
			continue
		}
		if decl := stmt.Field("declaration"); decl != nil {
			if v, found, ok := d.declared(decl, name, mod, depth); found {
				return v, ok
			}
			continue
		}
		if name == "default" && stmt.Field("value") != nil {
			return d.eval(stmt.Field("value"), mod, depth+1)
		}

		source := stmt.Field("source")
		var clause, namespace *syntax.Node
		for _, c := range stmt.Children() {
			switch {
			case c.Kind() == syntax.KindExportClause:
				clause = c
			case c.Type() == "namespace_export":
				namespace = c
			}
		}

		switch {
		case clause != nil:
			for _, spec := range clause.Children() {
				if spec.Kind() != syntax.KindExportSpecifier {
					continue
				}
				local := propertyKey(spec.Field("name"))
				public := local
				if alias := spec.Field("alias"); alias != nil {
					public = propertyKey(alias)
				}
				if public != name {
					continue
				}
				if source == nil {
					return d.lookup(spec, local, mod, depth+1)
				}
				return d.reexport(mod, source, local, depth)
			}
		case namespace != nil:
			for _, id := range namespace.Children() {
				if id.Text() == name && source != nil {
					if specifier, ok := source.StringValue(); ok {
						if target, ok := d.load(mod, specifier); ok {
							return value{kind: valueModule, mod: target}, true
						}
					}
					return value{}, false
				}
			}
		case source != nil:
			starSources = append(starSources, source)
		}
	}

	if name == "default" {
		return value{}, false
	}
	for _, source := range starSources {
		if v, ok := d.reexport(mod, source, name, depth); ok {
			return v, true
		}
	}
	return value{}, false
}

func (d *Declarations) reexport(mod *module, source *syntax.Node, name string, depth int) (value, bool) {
	specifier, ok := source.StringValue()
	if !ok {
		return value{}, false
	}
	target, ok := d.load(mod, specifier)
	if !ok {
		return value{}, false
	}
	return d.exported(target, name, depth+1)
}

func (d *Declarations) load(from *module, specifier string) (*module, bool) {
	if d.loader == nil {
		return nil, false
	}
	tree, err := d.loader.Load(d.ctx, from.path(), specifier)
	if err != nil {
		d.logger.Debug("import not followed",
			slog.String("file", from.path()),
			slog.String("specifier", specifier),
			slog.String("error", err.Error()))
		return nil, false
	}
	return &module{tree: tree}, true
}

// bindsParameter reports whether a function, loop or catch clause scope binds
// name itself, shadowing outer declarations.
func bindsParameter(scope *syntax.Node, name string) bool {
	switch scope.Type() {
	case "arrow_function":
		children := scope.Children()
		if len(children) > 1 && children[0].Type() == "identifier" && children[0].Text() == name {
			return true
		}
	case "for_in_statement", "catch_clause":
		children := scope.Children()
		if len(children) > 1 && children[0].Type() != "statement_block" && patternBinds(children[0], name) {
			return true
		}
	}
	for _, c := range scope.Children() {
		if c.Type() == "formal_parameters" && patternBinds(c, name) {
			return true
		}
	}
	return false
}

// patternBinds reports whether a binding pattern introduces name.
func patternBinds(pattern *syntax.Node, name string) bool {
	bound := false
	pattern.Walk(func(n *syntax.Node) bool {
		if bound {
			return false
		}
		switch n.Type() {
		case "identifier", "shorthand_property_identifier_pattern":
			if n.Text() == name {
				bound = true
			}
		case "type_annotation":
			return false
		}
		return true
	})
	return bound
}
