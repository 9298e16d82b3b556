package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/cangen/internal/ir"
)

// Composite type constructors accepted as the single key of a struct typeExpr.
const (
	exprRecord  = "record"
	exprVariant = "variant"
	exprTuple   = "tuple"
	exprVec     = "vec"
	exprOpt     = "opt"
	exprFunc    = "func"
)

var exprKeys = []string{exprRecord, exprVariant, exprTuple, exprVec, exprOpt, exprFunc}

// CompileTypeExpr compiles an anonymous type expression.
//
// A string is a primitive kind or a reference to a named type. A struct
// with a single constructor key builds a composite; anonymous composites are
// marked inline and receive their structural synthetic name.
//
//	"nat64"
//	"User"
//	{vec: "User"}
//	{record: {id: "nat64", tags: {vec: "text"}}}
//	{variant: {active: "null", banned: "text"}}
//	{func: {params: ["text"], returns: "nat", mode: "query"}}
func CompileTypeExpr(v cue.Value) (ir.TypeNode, error) {
	return compileExpr(v, pathOf(v), "")
}

// compileDeclaration compiles the body of a named type declaration.
// Composites take the declared name; everything else becomes an alias.
func compileDeclaration(name string, v cue.Value) (ir.TypeNode, error) {
	node, err := compileExpr(v, "types."+name, name)
	if err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case ir.Primitive:
		n.Alias = name
		return n, nil
	case ir.Record, ir.Variant, ir.Tuple, ir.Func:
		return n, nil
	default:
		return ir.TypeRef{Alias: name, Aliased: n}, nil
	}
}

// compileExpr compiles v. A non-empty name declares the outermost composite
// under that name instead of marking it inline.
func compileExpr(v cue.Value, field, name string) (ir.TypeNode, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(field, err)
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(field, err)
		}
		if s == "" {
			return nil, compileErrorf(field, v.Pos(), "empty type name")
		}
		if kind, ok := ir.ParsePrimitiveKind(s); ok {
			return ir.Primitive{Kind: kind}, nil
		}
		return ir.Ref(s), nil
	case cue.StructKind:
		return compileComposite(v, field, name)
	default:
		return nil, compileErrorf(field, v.Pos(),
			"type expression must be a string or a struct with one of %s, got %v",
			strings.Join(exprKeys, ", "), v.IncompleteKind())
	}
}

func compileComposite(v cue.Value, field, name string) (ir.TypeNode, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(field, err)
	}
	if !iter.Next() {
		return nil, compileErrorf(field, v.Pos(), "empty type expression")
	}
	key, body := iter.Label(), iter.Value()
	if iter.Next() {
		return nil, compileErrorf(field, v.Pos(), "type expression has more than one key (%s, %s)", key, iter.Label())
	}
	field += "." + key

	var node ir.TypeNode
	switch key {
	case exprRecord:
		members, err := compileMembers(body, field)
		if err != nil {
			return nil, err
		}
		node = ir.Record{Name: name, Members: members}
	case exprVariant:
		members, err := compileMembers(body, field)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, compileErrorf(field, body.Pos(), "variant needs at least one tag")
		}
		node = ir.Variant{Name: name, Members: members}
	case exprTuple:
		elems, err := compileList(body, field)
		if err != nil {
			return nil, err
		}
		node = ir.Tuple{Name: name, Elems: elems}
	case exprVec:
		elem, err := compileExpr(body, field, "")
		if err != nil {
			return nil, err
		}
		return ir.Array{Elem: elem}, nil
	case exprOpt:
		elem, err := compileExpr(body, field, "")
		if err != nil {
			return nil, err
		}
		return ir.Option{Elem: elem}, nil
	case exprFunc:
		fn, err := compileFunc(body, field)
		if err != nil {
			return nil, err
		}
		fn.Name = name
		node = fn
	default:
		return nil, compileErrorf(field, v.Pos(), "unknown type constructor %q (want one of %s)",
			key, strings.Join(exprKeys, ", "))
	}

	if name != "" {
		return node, nil
	}
	return markInline(node), nil
}

// markInline flags an anonymous composite and assigns its synthetic name.
func markInline(node ir.TypeNode) ir.TypeNode {
	switch n := node.(type) {
	case ir.Record:
		n.Inline = true
		n.Name = ir.MustInlineName(n)
		return n
	case ir.Variant:
		n.Inline = true
		n.Name = ir.MustInlineName(n)
		return n
	case ir.Tuple:
		n.Inline = true
		n.Name = ir.MustInlineName(n)
		return n
	case ir.Func:
		n.Inline = true
		n.Name = ir.MustInlineName(n)
		return n
	}
	return node
}

// compileMembers compiles {label: typeExpr} in declaration order.
func compileMembers(v cue.Value, field string) ([]ir.Member, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, compileErrorf(field, v.Pos(), "expected a struct of members, got %v", v.IncompleteKind())
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(field, err)
	}
	var members []ir.Member
	for iter.Next() {
		label := iter.Label()
		t, err := compileExpr(iter.Value(), field+"."+label, "")
		if err != nil {
			return nil, err
		}
		members = append(members, ir.Member{Name: label, Type: t})
	}
	return members, nil
}

func compileList(v cue.Value, field string) ([]ir.TypeNode, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, compileErrorf(field, v.Pos(), "expected a list, got %v", v.IncompleteKind())
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(field, err)
	}
	var out []ir.TypeNode
	for i := 0; iter.Next(); i++ {
		t, err := compileExpr(iter.Value(), fmt.Sprintf("%s[%d]", field, i), "")
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func compileFunc(v cue.Value, field string) (ir.Func, error) {
	fn := ir.Func{Mode: ir.FuncQuery}
	if v.IncompleteKind() != cue.StructKind {
		return fn, compileErrorf(field, v.Pos(), "expected {params, returns?, mode?}, got %v", v.IncompleteKind())
	}

	if params := v.LookupPath(cue.ParsePath("params")); params.Exists() {
		list, err := compileList(params, field+".params")
		if err != nil {
			return fn, err
		}
		fn.Params = list
	}
	if ret := v.LookupPath(cue.ParsePath("returns")); ret.Exists() {
		t, err := compileExpr(ret, field+".returns", "")
		if err != nil {
			return fn, err
		}
		fn.Return = t
	}
	if mode := v.LookupPath(cue.ParsePath("mode")); mode.Exists() {
		s, err := mode.String()
		if err != nil {
			return fn, formatCUEError(field+".mode", err)
		}
		switch m := ir.FuncMode(s); m {
		case ir.FuncQuery, ir.FuncUpdate, ir.FuncOneway:
			fn.Mode = m
		default:
			return fn, compileErrorf(field+".mode", mode.Pos(), "unknown func mode %q", s)
		}
	}
	if fn.Mode == ir.FuncOneway && fn.Return != nil {
		return fn, compileErrorf(field+".returns", v.Pos(), "oneway functions return nothing")
	}
	return fn, nil
}

func pathOf(v cue.Value) string {
	if p := v.Path().String(); p != "" {
		return p
	}
	return "type"
}
