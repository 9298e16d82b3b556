package wire

import (
	"fmt"
	"math"
	"math/big"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers identifying each value kind on the wire.
const (
	kindNull protowire.Number = iota + 1
	kindReserved
	kindBool
	kindNat
	kindInt
	kindNat8
	kindNat16
	kindNat32
	kindNat64
	kindInt8
	kindInt16
	kindInt32
	kindInt64
	kindFloat32
	kindFloat64
	kindText
	kindBlob
	kindPrincipal
	kindVec
	kindOpt
	kindRecord
	kindVariant
	kindTuple
	kindFunc
)

// maxDepth bounds composite nesting while decoding untrusted bytes.
const maxDepth = 256

// DecodeError reports malformed bytes.
type DecodeError struct {
	// Offset is the byte position where decoding failed.
	Offset int

	// Message describes the failure.
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode error at offset %d: %s", e.Offset, e.Message)
}

// Marshal encodes v.
func Marshal(v Value) ([]byte, error) {
	return appendValue(nil, v)
}

// MarshalArgs encodes an argument list.
func MarshalArgs(args ...Value) ([]byte, error) {
	return Marshal(Tuple(args))
}

// Unmarshal decodes exactly one value spanning all of b.
func Unmarshal(b []byte) (Value, error) {
	d := decoder{buf: b}
	v, n, err := d.value(0, 0)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, &DecodeError{Offset: n, Message: fmt.Sprintf("%d trailing bytes", len(b)-n)}
	}
	return v, nil
}

// UnmarshalArgs decodes an argument list. Empty input is an empty list.
func UnmarshalArgs(b []byte) ([]Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	v, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}
	t, ok := v.(Tuple)
	if !ok {
		return nil, &DecodeError{Offset: 0, Message: "argument list is " + KindOf(v) + ", not tuple"}
	}
	return t, nil
}

func appendValue(b []byte, v Value) ([]byte, error) {
	switch x := v.(type) {
	case Null:
		return appendVarint(b, kindNull, 0), nil
	case Reserved:
		return appendVarint(b, kindReserved, 0), nil
	case Bool:
		return appendVarint(b, kindBool, protowire.EncodeBool(bool(x))), nil
	case Nat:
		if x.Big().Sign() < 0 {
			return nil, fmt.Errorf("wire: negative nat %s", x.V)
		}
		return appendBytes(b, kindNat, x.Big().Bytes()), nil
	case Int:
		sign := byte(0)
		if x.Big().Sign() < 0 {
			sign = 1
		}
		mag := new(big.Int).Abs(x.Big()).Bytes()
		return appendBytes(b, kindInt, append([]byte{sign}, mag...)), nil
	case Nat8:
		return appendVarint(b, kindNat8, uint64(x)), nil
	case Nat16:
		return appendVarint(b, kindNat16, uint64(x)), nil
	case Nat32:
		return appendVarint(b, kindNat32, uint64(x)), nil
	case Nat64:
		return appendVarint(b, kindNat64, uint64(x)), nil
	case Int8:
		return appendVarint(b, kindInt8, protowire.EncodeZigZag(int64(x))), nil
	case Int16:
		return appendVarint(b, kindInt16, protowire.EncodeZigZag(int64(x))), nil
	case Int32:
		return appendVarint(b, kindInt32, protowire.EncodeZigZag(int64(x))), nil
	case Int64:
		return appendVarint(b, kindInt64, protowire.EncodeZigZag(int64(x))), nil
	case Float32:
		b = protowire.AppendTag(b, kindFloat32, protowire.Fixed32Type)
		return protowire.AppendFixed32(b, math.Float32bits(float32(x))), nil
	case Float64:
		b = protowire.AppendTag(b, kindFloat64, protowire.Fixed64Type)
		return protowire.AppendFixed64(b, math.Float64bits(float64(x))), nil
	case Text:
		return appendBytes(b, kindText, []byte(x)), nil
	case Blob:
		return appendBytes(b, kindBlob, x), nil
	case Principal:
		return appendBytes(b, kindPrincipal, x), nil
	case Vec:
		inner, err := appendSeq(nil, x)
		if err != nil {
			return nil, err
		}
		return appendBytes(b, kindVec, inner), nil
	case Tuple:
		inner, err := appendSeq(nil, x)
		if err != nil {
			return nil, err
		}
		return appendBytes(b, kindTuple, inner), nil
	case Opt:
		var inner []byte
		if x.Value == nil {
			inner = protowire.AppendVarint(inner, 0)
		} else {
			inner = protowire.AppendVarint(inner, 1)
			var err error
			if inner, err = appendValue(inner, x.Value); err != nil {
				return nil, err
			}
		}
		return appendBytes(b, kindOpt, inner), nil
	case Record:
		inner := protowire.AppendVarint(nil, uint64(len(x.Fields)))
		for _, f := range x.Fields {
			inner = protowire.AppendString(inner, f.Name)
			var err error
			if inner, err = appendValue(inner, f.Value); err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return appendBytes(b, kindRecord, inner), nil
	case Variant:
		inner := protowire.AppendString(nil, x.Tag)
		inner, err := appendValue(inner, x.Value)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", x.Tag, err)
		}
		return appendBytes(b, kindVariant, inner), nil
	case Func:
		inner := protowire.AppendBytes(nil, x.Principal)
		inner = protowire.AppendString(inner, x.Method)
		return appendBytes(b, kindFunc, inner), nil
	case nil:
		return nil, fmt.Errorf("wire: cannot encode nil value")
	default:
		return nil, fmt.Errorf("wire: cannot encode %T", v)
	}
}

func appendVarint(b []byte, kind protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, kind, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, kind protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, kind, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendSeq(b []byte, vals []Value) ([]byte, error) {
	b = protowire.AppendVarint(b, uint64(len(vals)))
	for i, v := range vals {
		var err error
		if b, err = appendValue(b, v); err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return b, nil
}

// decoder walks buf. Offsets passed around are absolute positions in buf.
type decoder struct {
	buf []byte
}

func (d *decoder) fail(off int, format string, args ...any) error {
	return &DecodeError{Offset: off, Message: fmt.Sprintf(format, args...)}
}

// value decodes one framed value starting at off and returns the offset just
// past it.
func (d *decoder) value(off, depth int) (Value, int, error) {
	if depth > maxDepth {
		return nil, off, d.fail(off, "nesting deeper than %d", maxDepth)
	}
	num, typ, n := protowire.ConsumeTag(d.buf[off:])
	if n < 0 {
		return nil, off, d.fail(off, "tag: %v", protowire.ParseError(n))
	}
	start := off
	off += n

	want, known := wireTypes[num]
	if !known {
		return nil, start, d.fail(start, "unknown value kind %d", num)
	}
	if typ != want {
		return nil, start, d.fail(start, "value kind %d has wire type %d, want %d", num, typ, want)
	}

	switch typ {
	case protowire.VarintType:
		u, n := protowire.ConsumeVarint(d.buf[off:])
		if n < 0 {
			return nil, off, d.fail(off, "varint: %v", protowire.ParseError(n))
		}
		v, err := scalar(num, u)
		if err != nil {
			return nil, off, d.fail(off, "%v", err)
		}
		return v, off + n, nil
	case protowire.Fixed32Type:
		u, n := protowire.ConsumeFixed32(d.buf[off:])
		if n < 0 {
			return nil, off, d.fail(off, "fixed32: %v", protowire.ParseError(n))
		}
		return Float32(math.Float32frombits(u)), off + n, nil
	case protowire.Fixed64Type:
		u, n := protowire.ConsumeFixed64(d.buf[off:])
		if n < 0 {
			return nil, off, d.fail(off, "fixed64: %v", protowire.ParseError(n))
		}
		return Float64(math.Float64frombits(u)), off + n, nil
	}

	payload, n := protowire.ConsumeBytes(d.buf[off:])
	if n < 0 {
		return nil, off, d.fail(off, "length-delimited payload: %v", protowire.ParseError(n))
	}
	payloadStart := off + n - len(payload)
	end := off + n
	v, err := d.composite(num, payload, payloadStart, depth)
	if err != nil {
		return nil, start, err
	}
	return v, end, nil
}

var wireTypes = map[protowire.Number]protowire.Type{
	kindNull:      protowire.VarintType,
	kindReserved:  protowire.VarintType,
	kindBool:      protowire.VarintType,
	kindNat:       protowire.BytesType,
	kindInt:       protowire.BytesType,
	kindNat8:      protowire.VarintType,
	kindNat16:     protowire.VarintType,
	kindNat32:     protowire.VarintType,
	kindNat64:     protowire.VarintType,
	kindInt8:      protowire.VarintType,
	kindInt16:     protowire.VarintType,
	kindInt32:     protowire.VarintType,
	kindInt64:     protowire.VarintType,
	kindFloat32:   protowire.Fixed32Type,
	kindFloat64:   protowire.Fixed64Type,
	kindText:      protowire.BytesType,
	kindBlob:      protowire.BytesType,
	kindPrincipal: protowire.BytesType,
	kindVec:       protowire.BytesType,
	kindOpt:       protowire.BytesType,
	kindRecord:    protowire.BytesType,
	kindVariant:   protowire.BytesType,
	kindTuple:     protowire.BytesType,
	kindFunc:      protowire.BytesType,
}

func scalar(num protowire.Number, u uint64) (Value, error) {
	switch num {
	case kindNull:
		if u != 0 {
			return nil, fmt.Errorf("null payload %d", u)
		}
		return Null{}, nil
	case kindReserved:
		return Reserved{}, nil
	case kindBool:
		if u > 1 {
			return nil, fmt.Errorf("bool payload %d", u)
		}
		return Bool(u == 1), nil
	case kindNat8:
		if u > math.MaxUint8 {
			return nil, fmt.Errorf("nat8 out of range: %d", u)
		}
		return Nat8(u), nil
	case kindNat16:
		if u > math.MaxUint16 {
			return nil, fmt.Errorf("nat16 out of range: %d", u)
		}
		return Nat16(u), nil
	case kindNat32:
		if u > math.MaxUint32 {
			return nil, fmt.Errorf("nat32 out of range: %d", u)
		}
		return Nat32(u), nil
	case kindNat64:
		return Nat64(u), nil
	}

	i := protowire.DecodeZigZag(u)
	switch num {
	case kindInt8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, fmt.Errorf("int8 out of range: %d", i)
		}
		return Int8(i), nil
	case kindInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, fmt.Errorf("int16 out of range: %d", i)
		}
		return Int16(i), nil
	case kindInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("int32 out of range: %d", i)
		}
		return Int32(i), nil
	default:
		return Int64(i), nil
	}
}

func (d *decoder) composite(num protowire.Number, payload []byte, off, depth int) (Value, error) {
	end := off + len(payload)
	switch num {
	case kindNat:
		return Nat{V: new(big.Int).SetBytes(payload)}, nil
	case kindInt:
		if len(payload) == 0 || payload[0] > 1 {
			return nil, d.fail(off, "int payload has no sign byte")
		}
		v := new(big.Int).SetBytes(payload[1:])
		if payload[0] == 1 {
			v.Neg(v)
		}
		return Int{V: v}, nil
	case kindText:
		return Text(payload), nil
	case kindBlob:
		return Blob(append([]byte{}, payload...)), nil
	case kindPrincipal:
		return Principal(append([]byte{}, payload...)), nil
	case kindVec, kindTuple:
		vals, err := d.seq(off, end, depth)
		if err != nil {
			return nil, err
		}
		if num == kindVec {
			return Vec(vals), nil
		}
		return Tuple(vals), nil
	case kindOpt:
		flag, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return nil, d.fail(off, "opt flag: %v", protowire.ParseError(n))
		}
		switch flag {
		case 0:
			if n != len(payload) {
				return nil, d.fail(off+n, "absent opt has a payload")
			}
			return None, nil
		case 1:
			v, next, err := d.value(off+n, depth+1)
			if err != nil {
				return nil, err
			}
			if next != end {
				return nil, d.fail(next, "opt payload has trailing bytes")
			}
			return Some(v), nil
		default:
			return nil, d.fail(off, "opt flag %d", flag)
		}
	case kindRecord:
		count, n := protowire.ConsumeVarint(payload)
		if n < 0 {
			return nil, d.fail(off, "record count: %v", protowire.ParseError(n))
		}
		pos := off + n
		var fields []Field
		for i := uint64(0); i < count; i++ {
			name, n := protowire.ConsumeString(d.buf[pos:end])
			if n < 0 {
				return nil, d.fail(pos, "field name: %v", protowire.ParseError(n))
			}
			pos += n
			v, next, err := d.value(pos, depth+1)
			if err != nil {
				return nil, err
			}
			if next > end {
				return nil, d.fail(pos, "field %s overruns record", name)
			}
			pos = next
			fields = append(fields, Field{Name: name, Value: v})
		}
		if pos != end {
			return nil, d.fail(pos, "record has trailing bytes")
		}
		return Record{Fields: fields}, nil
	case kindVariant:
		tag, n := protowire.ConsumeString(payload)
		if n < 0 {
			return nil, d.fail(off, "variant tag: %v", protowire.ParseError(n))
		}
		v, next, err := d.value(off+n, depth+1)
		if err != nil {
			return nil, err
		}
		if next != end {
			return nil, d.fail(next, "variant has trailing bytes")
		}
		return Variant{Tag: tag, Value: v}, nil
	case kindFunc:
		principal, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, d.fail(off, "func principal: %v", protowire.ParseError(n))
		}
		method, m := protowire.ConsumeString(payload[n:])
		if m < 0 {
			return nil, d.fail(off+n, "func method: %v", protowire.ParseError(m))
		}
		if n+m != len(payload) {
			return nil, d.fail(off+n+m, "func has trailing bytes")
		}
		return Func{Principal: append(Principal{}, principal...), Method: method}, nil
	default:
		return nil, d.fail(off, "unknown value kind %d", num)
	}
}

// seq decodes count-prefixed values occupying buf[off:end].
func (d *decoder) seq(off, end, depth int) ([]Value, error) {
	count, n := protowire.ConsumeVarint(d.buf[off:end])
	if n < 0 {
		return nil, d.fail(off, "count: %v", protowire.ParseError(n))
	}
	pos := off + n
	if count > uint64(end-pos) {
		return nil, d.fail(off, "count %d exceeds payload", count)
	}
	vals := make([]Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, next, err := d.value(pos, depth+1)
		if err != nil {
			return nil, err
		}
		if next > end {
			return nil, d.fail(pos, "element %d overruns sequence", i)
		}
		pos = next
		vals = append(vals, v)
	}
	if pos != end {
		return nil, d.fail(pos, "sequence has trailing bytes")
	}
	return vals, nil
}
