package wire

import (
	"bytes"
	"math"
	"math/big"
)

// Value is a sealed interface over static values.
type Value interface {
	wireValue() // Sealed
}

// Null is the unit value.
type Null struct{}

// Reserved is a value whose content is ignored.
type Reserved struct{}

// Bool is a boolean.
type Bool bool

// Nat is an unbounded natural number. A nil V is zero.
type Nat struct {
	V *big.Int
}

// Int is an unbounded integer. A nil V is zero.
type Int struct {
	V *big.Int
}

// Fixed-width integers.
type (
	Nat8  uint8
	Nat16 uint16
	Nat32 uint32
	Nat64 uint64
	Int8  int8
	Int16 int16
	Int32 int32
	Int64 int64
)

// Floats.
type (
	Float32 float32
	Float64 float64
)

// Text is a UTF-8 string.
type Text string

// Blob is an opaque byte string.
type Blob []byte

// Principal is an opaque identity.
type Principal []byte

// Vec is a homogeneous sequence.
type Vec []Value

// Opt is an optional value. A nil Value is none.
type Opt struct {
	Value Value
}

// Field is one named member of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered product of named fields.
type Record struct {
	Fields []Field
}

// Variant is a sum with one active tag.
type Variant struct {
	Tag   string
	Value Value
}

// Tuple is a positional product.
type Tuple []Value

// Func is an opaque reference to a remotely callable method.
type Func struct {
	Principal Principal
	Method    string
}

func (Null) wireValue()      {}
func (Reserved) wireValue()  {}
func (Bool) wireValue()      {}
func (Nat) wireValue()       {}
func (Int) wireValue()       {}
func (Nat8) wireValue()      {}
func (Nat16) wireValue()     {}
func (Nat32) wireValue()     {}
func (Nat64) wireValue()     {}
func (Int8) wireValue()      {}
func (Int16) wireValue()     {}
func (Int32) wireValue()     {}
func (Int64) wireValue()     {}
func (Float32) wireValue()   {}
func (Float64) wireValue()   {}
func (Text) wireValue()      {}
func (Blob) wireValue()      {}
func (Principal) wireValue() {}
func (Vec) wireValue()       {}
func (Opt) wireValue()       {}
func (Record) wireValue()    {}
func (Variant) wireValue()   {}
func (Tuple) wireValue()     {}
func (Func) wireValue()      {}

// NewNat returns a Nat holding v.
func NewNat(v uint64) Nat {
	return Nat{V: new(big.Int).SetUint64(v)}
}

// NewInt returns an Int holding v.
func NewInt(v int64) Int {
	return Int{V: big.NewInt(v)}
}

// Big returns n's value, treating nil as zero.
func (n Nat) Big() *big.Int {
	if n.V == nil {
		return new(big.Int)
	}
	return n.V
}

// Big returns i's value, treating nil as zero.
func (i Int) Big() *big.Int {
	if i.V == nil {
		return new(big.Int)
	}
	return i.V
}

// Some wraps v in a present Opt.
func Some(v Value) Opt {
	return Opt{Value: v}
}

// None is the absent Opt.
var None = Opt{}

// Get returns the named field of r.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// KindOf names v's kind for diagnostics.
func KindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case Null:
		return "null"
	case Reserved:
		return "reserved"
	case Bool:
		return "bool"
	case Nat:
		return "nat"
	case Int:
		return "int"
	case Nat8:
		return "nat8"
	case Nat16:
		return "nat16"
	case Nat32:
		return "nat32"
	case Nat64:
		return "nat64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Principal:
		return "principal"
	case Vec:
		return "vec"
	case Opt:
		return "opt"
	case Record:
		return "record"
	case Variant:
		return "variant"
	case Tuple:
		return "tuple"
	case Func:
		return "func"
	default:
		return "unknown"
	}
}

// Equal reports whether a and b are structurally equal.
// Big integers compare by value; floats compare by bit pattern.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Null, Reserved:
		return KindOf(a) == KindOf(b)
	case Bool, Nat8, Nat16, Nat32, Nat64, Int8, Int16, Int32, Int64, Text:
		return a == b
	case Nat:
		y, ok := b.(Nat)
		return ok && x.Big().Cmp(y.Big()) == 0
	case Int:
		y, ok := b.(Int)
		return ok && x.Big().Cmp(y.Big()) == 0
	case Float32:
		y, ok := b.(Float32)
		return ok && math.Float32bits(float32(x)) == math.Float32bits(float32(y))
	case Float64:
		y, ok := b.(Float64)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case Blob:
		y, ok := b.(Blob)
		return ok && bytes.Equal(x, y)
	case Principal:
		y, ok := b.(Principal)
		return ok && bytes.Equal(x, y)
	case Vec:
		y, ok := b.(Vec)
		return ok && equalSlices(x, y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSlices(x, y)
	case Opt:
		y, ok := b.(Opt)
		return ok && Equal(x.Value, y.Value)
	case Record:
		y, ok := b.(Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i].Name != y.Fields[i].Name || !Equal(x.Fields[i].Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	case Variant:
		y, ok := b.(Variant)
		return ok && x.Tag == y.Tag && Equal(x.Value, y.Value)
	case Func:
		y, ok := b.(Func)
		return ok && x.Method == y.Method && bytes.Equal(x.Principal, y.Principal)
	default:
		return false
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
