package ir

import "fmt"

// TypeNode is a sealed interface over every data shape a method signature can
// reach. Only Primitive, TypeRef, Array, Option, Record, Variant, Tuple and
// Func implement it. Consumers dispatch with Walk so that adding a shape is a
// compile error in every Visitor.
type TypeNode interface {
	typeNode() // Sealed
}

// PrimitiveKind enumerates the scalar wire kinds.
type PrimitiveKind string

const (
	Null      PrimitiveKind = "null"
	Reserved  PrimitiveKind = "reserved"
	Empty     PrimitiveKind = "empty"
	Bool      PrimitiveKind = "bool"
	Text      PrimitiveKind = "text"
	Blob      PrimitiveKind = "blob"
	Principal PrimitiveKind = "principal"
	Nat       PrimitiveKind = "nat"
	Nat8      PrimitiveKind = "nat8"
	Nat16     PrimitiveKind = "nat16"
	Nat32     PrimitiveKind = "nat32"
	Nat64     PrimitiveKind = "nat64"
	Int       PrimitiveKind = "int"
	Int8      PrimitiveKind = "int8"
	Int16     PrimitiveKind = "int16"
	Int32     PrimitiveKind = "int32"
	Int64     PrimitiveKind = "int64"
	Float32   PrimitiveKind = "float32"
	Float64   PrimitiveKind = "float64"
)

// PrimitiveKinds lists every primitive kind in a fixed order.
var PrimitiveKinds = []PrimitiveKind{
	Null, Reserved, Empty, Bool, Text, Blob, Principal,
	Nat, Nat8, Nat16, Nat32, Nat64,
	Int, Int8, Int16, Int32, Int64,
	Float32, Float64,
}

// ParsePrimitiveKind reports whether name is a primitive kind.
func ParsePrimitiveKind(name string) (PrimitiveKind, bool) {
	for _, k := range PrimitiveKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// Primitive is a scalar leaf. A non-empty Alias makes it a named alias
// declaration (`type Id = nat64`).
type Primitive struct {
	Kind  PrimitiveKind
	Alias string
}

// TypeRef is an indirection to a named definition. With Name set it is a
// literal reference resolved through Graph.Lookup. With Alias set it declares
// a named alias for a non-structural type such as `Users = vec User`; its
// Aliased body belongs to the declaration and is walked by the collector.
//
// Self-referential types must always reach themselves through a literal
// TypeRef, never by structural embedding.
type TypeRef struct {
	Name    string
	Alias   string
	Aliased TypeNode
}

// Array is a sequence of Elem. Arrays never carry their own name.
type Array struct {
	Elem TypeNode
}

// Option is an optional Elem. Options never carry their own name.
type Option struct {
	Elem TypeNode
}

// Member is a named field of a Record or a tag of a Variant.
type Member struct {
	Name string
	Type TypeNode
}

// Record is an ordered product of named fields.
type Record struct {
	Name    string
	Members []Member
	Inline  bool
}

// Variant is a sum with exactly one active tag.
type Variant struct {
	Name    string
	Members []Member
	Inline  bool
}

// Tuple is a positional product.
type Tuple struct {
	Name   string
	Elems  []TypeNode
	Inline bool
}

// FuncMode is the call mode of a function reference.
type FuncMode string

const (
	FuncQuery  FuncMode = "query"
	FuncUpdate FuncMode = "update"
	FuncOneway FuncMode = "oneway"
)

// Func is a reference to a remotely callable function. Values of this type
// are opaque and are never invoked by generated code.
type Func struct {
	Name   string
	Params []TypeNode
	Return TypeNode // nil when the function returns nothing
	Mode   FuncMode
	Inline bool
}

func (Primitive) typeNode() {}
func (TypeRef) typeNode()   {}
func (Array) typeNode()     {}
func (Option) typeNode()    {}
func (Record) typeNode()    {}
func (Variant) typeNode()   {}
func (Tuple) typeNode()     {}
func (Func) typeNode()      {}

// IsAlias reports whether the TypeRef declares an alias rather than referring
// to one.
func (t TypeRef) IsAlias() bool {
	return t.Alias != ""
}

// Visitor has one method per TypeNode variant.
type Visitor[R any] interface {
	Primitive(Primitive) R
	TypeRef(TypeRef) R
	Array(Array) R
	Option(Option) R
	Record(Record) R
	Variant(Variant) R
	Tuple(Tuple) R
	Func(Func) R
}

// Walk dispatches node to the matching Visitor method.
// Panics on a TypeNode outside the sealed set; that is a programming error.
func Walk[R any](node TypeNode, v Visitor[R]) R {
	switch n := node.(type) {
	case Primitive:
		return v.Primitive(n)
	case TypeRef:
		return v.TypeRef(n)
	case Array:
		return v.Array(n)
	case Option:
		return v.Option(n)
	case Record:
		return v.Record(n)
	case Variant:
		return v.Variant(n)
	case Tuple:
		return v.Tuple(n)
	case Func:
		return v.Func(n)
	default:
		panic(fmt.Sprintf("ir: unknown TypeNode %T", node))
	}
}

// Ident returns the identifier used as deduplication key and declaration
// target. Named composites and aliases are identified by name; literals by
// their structure.
func Ident(node TypeNode) string {
	switch n := node.(type) {
	case Primitive:
		if n.Alias != "" {
			return n.Alias
		}
		return string(n.Kind)
	case TypeRef:
		if n.Alias != "" {
			return n.Alias
		}
		return n.Name
	case Array:
		return "vec " + Ident(n.Elem)
	case Option:
		return "opt " + Ident(n.Elem)
	case Record:
		return n.Name
	case Variant:
		return n.Name
	case Tuple:
		return n.Name
	case Func:
		return n.Name
	default:
		panic(fmt.Sprintf("ir: unknown TypeNode %T", node))
	}
}

// IsInline reports whether node has no declared name of its own and must be
// promoted to a synthetic declaration. Arrays and options are inline exactly
// when their element is.
func IsInline(node TypeNode) bool {
	switch n := node.(type) {
	case Primitive, TypeRef:
		return false
	case Array:
		return IsInline(n.Elem)
	case Option:
		return IsInline(n.Elem)
	case Record:
		return n.Inline
	case Variant:
		return n.Inline
	case Tuple:
		return n.Inline
	case Func:
		return n.Inline
	default:
		panic(fmt.Sprintf("ir: unknown TypeNode %T", node))
	}
}

// HasDefinition reports whether node produces a top-level declaration.
func HasDefinition(node TypeNode) bool {
	switch n := node.(type) {
	case Primitive:
		return n.Alias != ""
	case TypeRef:
		return n.Alias != ""
	case Array, Option:
		return false
	default:
		return true
	}
}

// Ref returns a literal reference to a named node.
func Ref(name string) TypeRef {
	return TypeRef{Name: name}
}
