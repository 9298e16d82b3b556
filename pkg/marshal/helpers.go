package marshal

import (
	"fmt"
	"strings"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// The helpers below take kind and type names as strings so generated code
// outside this module can call them.

// Prim decodes a dynamic primitive of the named kind into T.
func Prim[T wire.Value](v vm.Value, kind string) (T, error) {
	var zero T
	w, err := decodePrimitive(ir.PrimitiveKind(kind), v)
	if err != nil {
		return zero, err
	}
	t, ok := w.(T)
	if !ok {
		return zero, trap.Internal("primitive %s decoded as %T, want %T", kind, w, zero)
	}
	return t, nil
}

// PrimToVM encodes a static primitive of the named kind.
// It panics with a trap on a kind/type disagreement, which only a
// generator defect can produce.
func PrimToVM[T wire.Value](w T, kind string) vm.Value {
	v, err := encodePrimitive(ir.PrimitiveKind(kind), w)
	if err != nil {
		panic(err)
	}
	return v
}

// PrimFromWire checks a byte-decoded primitive against the named kind.
func PrimFromWire[T wire.Value](w wire.Value, kind string) (T, error) {
	var zero T
	if err := conformPrimitive(ir.PrimitiveKind(kind), w); err != nil {
		return zero, err
	}
	if ir.PrimitiveKind(kind) == ir.Reserved {
		w = wire.Reserved{}
	}
	t, ok := w.(T)
	if !ok {
		return zero, trap.Mismatch(kind, wire.KindOf(w))
	}
	return t, nil
}

// DecodeVec decodes a dynamic array element by element.
func DecodeVec[T any](v vm.Value, typeName string, elem func(vm.Value) (T, error)) ([]T, error) {
	arr, ok := v.(vm.Array)
	if !ok {
		return nil, trap.Mismatch(typeName, vm.Describe(v))
	}
	out := make([]T, len(arr))
	for i, e := range arr {
		x, err := elem(e)
		if err != nil {
			return nil, at(err, i)
		}
		out[i] = x
	}
	return out, nil
}

// DecodeBytesVec decodes a vec nat8 from a byte array or an array of
// numbers.
func DecodeBytesVec(v vm.Value) ([]wire.Nat8, error) {
	if b, ok := v.(vm.Bytes); ok {
		out := make([]wire.Nat8, len(b))
		for i, x := range b {
			out[i] = wire.Nat8(x)
		}
		return out, nil
	}
	return DecodeVec(v, "vec nat8", func(e vm.Value) (wire.Nat8, error) {
		return Prim[wire.Nat8](e, string(ir.Nat8))
	})
}

// EncodeVec encodes a slice as a dynamic array.
func EncodeVec[T any](xs []T, elem func(T) vm.Value) vm.Value {
	out := make(vm.Array, len(xs))
	for i, x := range xs {
		out[i] = elem(x)
	}
	return out
}

// EncodeBytesVec encodes a vec nat8 as a byte array.
func EncodeBytesVec(xs []wire.Nat8) vm.Value {
	out := make(vm.Bytes, len(xs))
	for i, x := range xs {
		out[i] = byte(x)
	}
	return out
}

// DecodeOpt decodes [] as nil and [v] as a pointer to v.
func DecodeOpt[T any](v vm.Value, typeName string, elem func(vm.Value) (T, error)) (*T, error) {
	arr, ok := v.(vm.Array)
	if !ok || len(arr) > 1 {
		return nil, trap.Mismatch(typeName+" as [] or [value]", vm.Describe(v))
	}
	if len(arr) == 0 {
		return nil, nil
	}
	x, err := elem(arr[0])
	if err != nil {
		return nil, at(err, 0)
	}
	return &x, nil
}

// EncodeOpt encodes nil as [] and a pointer as [v].
func EncodeOpt[T any](p *T, elem func(T) vm.Value) vm.Value {
	if p == nil {
		return vm.Array{}
	}
	return vm.Array{elem(*p)}
}

// VecFromWire converts a byte-decoded vec.
func VecFromWire[T any](w wire.Value, typeName string, elem func(wire.Value) (T, error)) ([]T, error) {
	vec, ok := w.(wire.Vec)
	if !ok {
		return nil, trap.Mismatch(typeName, wire.KindOf(w))
	}
	out := make([]T, len(vec))
	for i, e := range vec {
		x, err := elem(e)
		if err != nil {
			return nil, at(err, i)
		}
		out[i] = x
	}
	return out, nil
}

// VecToWire converts a slice to a static vec.
func VecToWire[T any](xs []T, elem func(T) wire.Value) wire.Value {
	out := make(wire.Vec, len(xs))
	for i, x := range xs {
		out[i] = elem(x)
	}
	return out
}

// OptFromWire converts a byte-decoded opt.
func OptFromWire[T any](w wire.Value, typeName string, elem func(wire.Value) (T, error)) (*T, error) {
	opt, ok := w.(wire.Opt)
	if !ok {
		return nil, trap.Mismatch(typeName, wire.KindOf(w))
	}
	if opt.Value == nil {
		return nil, nil
	}
	x, err := elem(opt.Value)
	if err != nil {
		return nil, at(err, 0)
	}
	return &x, nil
}

// OptToWire converts a pointer to a static opt.
func OptToWire[T any](p *T, elem func(T) wire.Value) wire.Value {
	if p == nil {
		return wire.None
	}
	return wire.Some(elem(*p))
}

// Object asserts that v is an object representing the named record.
func Object(v vm.Value, typeName string) (*vm.Object, error) {
	obj, ok := v.(*vm.Object)
	if !ok {
		return nil, trap.Mismatch("record "+typeName, vm.Describe(v))
	}
	return obj, nil
}

// Field returns a required own property of a record object.
func Field(obj *vm.Object, typeName, name string) (vm.Value, error) {
	v, ok := obj.Get(name)
	if !ok {
		return nil, trap.Mismatch("record "+typeName, fmt.Sprintf("object missing field %q", name))
	}
	return v, nil
}

// Tag finds the first declared tag present as an own property of v.
func Tag(v vm.Value, typeName string, tags ...string) (string, vm.Value, error) {
	obj, ok := v.(*vm.Object)
	if !ok {
		return "", nil, trap.Mismatch("variant "+typeName, vm.Describe(v))
	}
	for _, tag := range tags {
		if payload, ok := obj.Get(tag); ok {
			return tag, payload, nil
		}
	}
	return "", nil, trap.Mismatch(
		fmt.Sprintf("variant %s with one of tags [%s]", typeName, strings.Join(tags, ", ")),
		"object with none of them",
	)
}

// Elems asserts that v is a tuple of n elements.
func Elems(v vm.Value, typeName string, n int) (vm.Array, error) {
	arr, ok := v.(vm.Array)
	if !ok || len(arr) != n {
		return nil, trap.Mismatch(fmt.Sprintf("tuple %s of %d elements", typeName, n), vm.Describe(v))
	}
	return arr, nil
}

// FuncRef decodes an opaque [principal, method] function reference.
func FuncRef(v vm.Value) (wire.Func, error) {
	w, err := decodeFuncRef(v)
	if err != nil {
		return wire.Func{}, err
	}
	return w.(wire.Func), nil
}

// FuncToVM encodes a function reference.
func FuncToVM(f wire.Func) vm.Value {
	return vm.Array{vm.Principal(append([]byte{}, f.Principal...)), vm.String(f.Method)}
}

// FuncFromWire checks a byte-decoded function reference.
func FuncFromWire(w wire.Value) (wire.Func, error) {
	f, ok := w.(wire.Func)
	if !ok {
		return wire.Func{}, trap.Mismatch("func", wire.KindOf(w))
	}
	return f, nil
}

// WireRecord asserts that w is a record.
func WireRecord(w wire.Value, typeName string) (wire.Record, error) {
	rec, ok := w.(wire.Record)
	if !ok {
		return wire.Record{}, trap.Mismatch("record "+typeName, wire.KindOf(w))
	}
	return rec, nil
}

// WireField returns a required field of a byte-decoded record.
func WireField(rec wire.Record, typeName, name string) (wire.Value, error) {
	v, ok := rec.Get(name)
	if !ok {
		return nil, trap.Mismatch("record "+typeName, fmt.Sprintf("record missing field %q", name))
	}
	return v, nil
}

// WireVariant asserts that w is a variant.
func WireVariant(w wire.Value, typeName string) (wire.Variant, error) {
	v, ok := w.(wire.Variant)
	if !ok {
		return wire.Variant{}, trap.Mismatch("variant "+typeName, wire.KindOf(w))
	}
	return v, nil
}

// UnknownTag reports a byte-decoded variant tag the type does not declare.
func UnknownTag(typeName, tag string, tags ...string) error {
	return trap.Mismatch(
		fmt.Sprintf("variant %s with one of tags [%s]", typeName, strings.Join(tags, ", ")),
		fmt.Sprintf("tag %q", tag),
	)
}

// WireTuple asserts that w is a tuple of n elements.
func WireTuple(w wire.Value, typeName string, n int) (wire.Tuple, error) {
	t, ok := w.(wire.Tuple)
	if !ok || len(t) != n {
		return nil, trap.Mismatch(fmt.Sprintf("tuple %s of %d elements", typeName, n), wire.KindOf(w))
	}
	return t, nil
}

// At prefixes a member name to a trap's path.
func At(err error, name string) error {
	return within(err, name)
}

// AtIndex prefixes an index to a trap's path.
func AtIndex(err error, i int) error {
	return at(err, i)
}
