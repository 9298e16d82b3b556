package vm

import (
	"fmt"
	"math/big"
	"strconv"
)

// Value is a sealed interface over dynamic values.
type Value interface {
	vmValue() // Sealed
}

// Undefined is the absent value.
type Undefined struct{}

// Null is the null value.
type Null struct{}

// Bool is a boolean.
type Bool bool

// Number is a double-precision number.
type Number float64

// BigInt is an arbitrary-precision integer. A nil V is zero.
type BigInt struct {
	V *big.Int
}

// String is a string.
type String string

// Bytes is a byte array (Uint8Array in script terms).
type Bytes []byte

// Principal is an opaque identity object.
type Principal []byte

// Array is an ordered list.
type Array []Value

func (Undefined) vmValue() {}
func (Null) vmValue()      {}
func (Bool) vmValue()      {}
func (Number) vmValue()    {}
func (BigInt) vmValue()    {}
func (String) vmValue()    {}
func (Bytes) vmValue()     {}
func (Principal) vmValue() {}
func (Array) vmValue()     {}
func (*Object) vmValue()   {}
func (*Promise) vmValue()  {}

// NewBigInt returns a BigInt holding v.
func NewBigInt(v int64) BigInt {
	return BigInt{V: big.NewInt(v)}
}

// Big returns b's value, treating nil as zero.
func (b BigInt) Big() *big.Int {
	if b.V == nil {
		return new(big.Int)
	}
	return b.V
}

// TypeOf names v's dynamic kind.
func TypeOf(v Value) string {
	switch v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case BigInt:
		return "bigint"
	case String:
		return "string"
	case Bytes:
		return "Uint8Array"
	case Principal:
		return "Principal"
	case Array:
		return "array"
	case *Object:
		return "object"
	case *Promise:
		return "promise"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Describe renders v briefly for mismatch diagnostics, e.g. `number 300`.
func Describe(v Value) string {
	switch x := v.(type) {
	case Bool:
		return "boolean " + strconv.FormatBool(bool(x))
	case Number:
		return "number " + formatNumber(float64(x))
	case BigInt:
		return "bigint " + x.Big().String() + "n"
	case String:
		s := string(x)
		if len(s) > 32 {
			s = s[:32] + "..."
		}
		return "string " + strconv.Quote(s)
	case Array:
		return fmt.Sprintf("array of length %d", len(x))
	case Bytes:
		return fmt.Sprintf("Uint8Array of length %d", len(x))
	default:
		return TypeOf(v)
	}
}
