package marshal

import (
	"fmt"
	"math"
	"math/big"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// numberRange bounds the fixed-width kinds carried as vm.Number.
type numberRange struct {
	min, max float64
}

var numberRanges = map[ir.PrimitiveKind]numberRange{
	ir.Nat8:  {0, math.MaxUint8},
	ir.Nat16: {0, math.MaxUint16},
	ir.Nat32: {0, math.MaxUint32},
	ir.Int8:  {math.MinInt8, math.MaxInt8},
	ir.Int16: {math.MinInt16, math.MaxInt16},
	ir.Int32: {math.MinInt32, math.MaxInt32},
}

var (
	maxNat64 = new(big.Int).SetUint64(math.MaxUint64)
	minInt64 = big.NewInt(math.MinInt64)
	maxInt64 = big.NewInt(math.MaxInt64)
)

func mismatch(kind ir.PrimitiveKind, v vm.Value) *trap.Error {
	return trap.Mismatch(string(kind), vm.Describe(v))
}

func outOfRange(kind ir.PrimitiveKind, v vm.Value) *trap.Error {
	return trap.Mismatch(string(kind), vm.Describe(v)+" (out of range)")
}

// decodePrimitive converts a dynamic value to a primitive of kind.
// No widening or truncation happens: a value outside the kind's range is a
// mismatch.
func decodePrimitive(kind ir.PrimitiveKind, v vm.Value) (wire.Value, error) {
	switch kind {
	case ir.Reserved:
		return wire.Reserved{}, nil
	case ir.Empty:
		return nil, mismatch(kind, v)
	case ir.Null:
		if _, ok := v.(vm.Null); ok {
			return wire.Null{}, nil
		}
	case ir.Bool:
		if b, ok := v.(vm.Bool); ok {
			return wire.Bool(b), nil
		}
	case ir.Text:
		if s, ok := v.(vm.String); ok {
			return wire.Text(s), nil
		}
	case ir.Blob:
		if b, ok := v.(vm.Bytes); ok {
			return wire.Blob(append([]byte{}, b...)), nil
		}
	case ir.Principal:
		if p, ok := v.(vm.Principal); ok {
			return wire.Principal(append([]byte{}, p...)), nil
		}
	case ir.Float32:
		if n, ok := v.(vm.Number); ok {
			f := float64(n)
			if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
				return nil, outOfRange(kind, v)
			}
			return wire.Float32(float32(n)), nil
		}
	case ir.Float64:
		if n, ok := v.(vm.Number); ok {
			return wire.Float64(float64(n)), nil
		}
	case ir.Nat8, ir.Nat16, ir.Nat32, ir.Int8, ir.Int16, ir.Int32:
		return decodeNumber(kind, v)
	case ir.Nat, ir.Int, ir.Nat64, ir.Int64:
		return decodeBigInt(kind, v)
	default:
		return nil, trap.Internal("unknown primitive kind %q", kind)
	}
	return nil, mismatch(kind, v)
}

func decodeNumber(kind ir.PrimitiveKind, v vm.Value) (wire.Value, error) {
	n, ok := v.(vm.Number)
	if !ok {
		return nil, mismatch(kind, v)
	}
	f := float64(n)
	r := numberRanges[kind]
	if math.IsNaN(f) || math.Trunc(f) != f || f < r.min || f > r.max {
		return nil, outOfRange(kind, v)
	}
	switch kind {
	case ir.Nat8:
		return wire.Nat8(f), nil
	case ir.Nat16:
		return wire.Nat16(f), nil
	case ir.Nat32:
		return wire.Nat32(f), nil
	case ir.Int8:
		return wire.Int8(f), nil
	case ir.Int16:
		return wire.Int16(f), nil
	default:
		return wire.Int32(f), nil
	}
}

func decodeBigInt(kind ir.PrimitiveKind, v vm.Value) (wire.Value, error) {
	b, ok := v.(vm.BigInt)
	if !ok {
		return nil, mismatch(kind, v)
	}
	x := b.Big()
	switch kind {
	case ir.Nat:
		if x.Sign() < 0 {
			return nil, outOfRange(kind, v)
		}
		return wire.Nat{V: new(big.Int).Set(x)}, nil
	case ir.Int:
		return wire.Int{V: new(big.Int).Set(x)}, nil
	case ir.Nat64:
		if x.Sign() < 0 || x.Cmp(maxNat64) > 0 {
			return nil, outOfRange(kind, v)
		}
		return wire.Nat64(x.Uint64()), nil
	default:
		if x.Cmp(minInt64) < 0 || x.Cmp(maxInt64) > 0 {
			return nil, outOfRange(kind, v)
		}
		return wire.Int64(x.Int64()), nil
	}
}

// encodePrimitive converts a static primitive back to its dynamic form.
// reserved discards whatever it carries.
func encodePrimitive(kind ir.PrimitiveKind, w wire.Value) (vm.Value, error) {
	bad := func() (vm.Value, error) {
		return nil, trap.Internal("cannot encode %s as %s", wire.KindOf(w), kind)
	}
	switch kind {
	case ir.Reserved:
		return vm.Null{}, nil
	case ir.Null:
		if _, ok := w.(wire.Null); ok {
			return vm.Null{}, nil
		}
	case ir.Bool:
		if b, ok := w.(wire.Bool); ok {
			return vm.Bool(b), nil
		}
	case ir.Text:
		if s, ok := w.(wire.Text); ok {
			return vm.String(s), nil
		}
	case ir.Blob:
		if b, ok := w.(wire.Blob); ok {
			return vm.Bytes(append([]byte{}, b...)), nil
		}
	case ir.Principal:
		if p, ok := w.(wire.Principal); ok {
			return vm.Principal(append([]byte{}, p...)), nil
		}
	case ir.Float32:
		if f, ok := w.(wire.Float32); ok {
			return vm.Number(float64(f)), nil
		}
	case ir.Float64:
		if f, ok := w.(wire.Float64); ok {
			return vm.Number(float64(f)), nil
		}
	case ir.Nat8:
		if x, ok := w.(wire.Nat8); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Nat16:
		if x, ok := w.(wire.Nat16); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Nat32:
		if x, ok := w.(wire.Nat32); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Int8:
		if x, ok := w.(wire.Int8); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Int16:
		if x, ok := w.(wire.Int16); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Int32:
		if x, ok := w.(wire.Int32); ok {
			return vm.Number(float64(x)), nil
		}
	case ir.Nat64:
		if x, ok := w.(wire.Nat64); ok {
			return vm.BigInt{V: new(big.Int).SetUint64(uint64(x))}, nil
		}
	case ir.Int64:
		if x, ok := w.(wire.Int64); ok {
			return vm.NewBigInt(int64(x)), nil
		}
	case ir.Nat:
		if x, ok := w.(wire.Nat); ok {
			return vm.BigInt{V: new(big.Int).Set(x.Big())}, nil
		}
	case ir.Int:
		if x, ok := w.(wire.Int); ok {
			return vm.BigInt{V: new(big.Int).Set(x.Big())}, nil
		}
	}
	return bad()
}

// conformPrimitive checks that a byte-decoded static value has kind.
func conformPrimitive(kind ir.PrimitiveKind, w wire.Value) error {
	if kind == ir.Reserved {
		return nil
	}
	if wire.KindOf(w) != string(kind) {
		return trap.Mismatch(string(kind), wire.KindOf(w))
	}
	if kind == ir.Nat {
		if w.(wire.Nat).Big().Sign() < 0 {
			return trap.Mismatch(string(kind), fmt.Sprintf("negative nat %s", w.(wire.Nat).Big()))
		}
	}
	return nil
}
