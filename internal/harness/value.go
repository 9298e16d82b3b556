package harness

import (
	"fmt"
	"math/big"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// Custom YAML tags understood by RealmValue.
const (
	TagBigInt    = "!bigint"
	TagBytes     = "!bytes"
	TagUndefined = "!undefined"
	TagPrincipal = "!principal"
)

// ValueError reports a YAML node that does not fit the expected type.
type ValueError struct {
	Line    int
	Column  int
	Message string
}

func (e *ValueError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func valueErrorf(n *yaml.Node, format string, args ...any) error {
	e := &ValueError{Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line, e.Column = n.Line, n.Column
	}
	return e
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		return deref(n.Content[0])
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// WireValue converts a YAML node into a static value of the given type.
//
// Scalars are parsed by kind: integers in decimal, principals in their text
// form, blobs as the raw bytes of a string. An opt is YAML null or its
// payload; a variant is a single-key mapping; a tuple is a sequence; a func
// is a mapping with principal and method keys.
func WireValue(g *ir.Graph, node ir.TypeNode, n *yaml.Node) (wire.Value, error) {
	n = deref(n)
	resolved, err := g.Resolve(node)
	if err != nil {
		return nil, err
	}

	switch t := resolved.(type) {
	case ir.Primitive:
		return primitiveValue(t.Kind, n)

	case ir.Option:
		if isNull(n) {
			return wire.None, nil
		}
		w, err := WireValue(g, t.Elem, n)
		if err != nil {
			return nil, err
		}
		return wire.Some(w), nil

	case ir.Array:
		if n == nil || n.Kind != yaml.SequenceNode {
			return nil, valueErrorf(n, "%s needs a sequence", ir.Ident(t))
		}
		out := make(wire.Vec, len(n.Content))
		for i, e := range n.Content {
			w, err := WireValue(g, t.Elem, e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = w
		}
		return out, nil

	case ir.Record:
		if n == nil || n.Kind != yaml.MappingNode {
			return nil, valueErrorf(n, "record %s needs a mapping", t.Name)
		}
		fields := make([]wire.Field, len(t.Members))
		for i, m := range t.Members {
			fv := mappingValue(n, m.Name)
			if fv == nil {
				return nil, valueErrorf(n, "record %s is missing field %q", t.Name, m.Name)
			}
			w, err := WireValue(g, m.Type, fv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
			fields[i] = wire.Field{Name: m.Name, Value: w}
		}
		return wire.Record{Fields: fields}, nil

	case ir.Variant:
		if n == nil || n.Kind != yaml.MappingNode || len(n.Content) != 2 {
			return nil, valueErrorf(n, "variant %s needs a mapping with exactly one tag", t.Name)
		}
		tag := n.Content[0].Value
		for _, m := range t.Members {
			if m.Name != tag {
				continue
			}
			w, err := WireValue(g, m.Type, n.Content[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tag, err)
			}
			return wire.Variant{Tag: tag, Value: w}, nil
		}
		return nil, valueErrorf(n, "variant %s has no tag %q", t.Name, tag)

	case ir.Tuple:
		if n == nil || n.Kind != yaml.SequenceNode || len(n.Content) != len(t.Elems) {
			return nil, valueErrorf(n, "tuple %s needs a sequence of %d elements", t.Name, len(t.Elems))
		}
		out := make(wire.Tuple, len(t.Elems))
		for i, e := range t.Elems {
			w, err := WireValue(g, e, n.Content[i])
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = w
		}
		return out, nil

	case ir.Func:
		if n == nil || n.Kind != yaml.MappingNode {
			return nil, valueErrorf(n, "func %s needs a mapping", t.Name)
		}
		pn, mn := mappingValue(n, "principal"), mappingValue(n, "method")
		if pn == nil || mn == nil {
			return nil, valueErrorf(n, "func %s needs principal and method", t.Name)
		}
		p, err := wire.ParsePrincipal(pn.Value)
		if err != nil {
			return nil, valueErrorf(pn, "%v", err)
		}
		return wire.Func{Principal: p, Method: mn.Value}, nil
	}
	return nil, valueErrorf(n, "unsupported type %s", ir.Ident(resolved))
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func primitiveValue(kind ir.PrimitiveKind, n *yaml.Node) (wire.Value, error) {
	if kind == ir.Reserved {
		return wire.Reserved{}, nil
	}
	if kind == ir.Null {
		if !isNull(n) {
			return nil, valueErrorf(n, "null needs a YAML null")
		}
		return wire.Null{}, nil
	}
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil, valueErrorf(n, "%s needs a scalar", kind)
	}

	s := n.Value
	switch kind {
	case ir.Empty:
		return nil, valueErrorf(n, "empty has no values")
	case ir.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, valueErrorf(n, "invalid bool %q", s)
		}
		return wire.Bool(b), nil
	case ir.Text:
		return wire.Text(s), nil
	case ir.Blob:
		return wire.Blob(s), nil
	case ir.Principal:
		p, err := wire.ParsePrincipal(s)
		if err != nil {
			return nil, valueErrorf(n, "%v", err)
		}
		return p, nil
	case ir.Nat, ir.Int:
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, valueErrorf(n, "invalid %s %q", kind, s)
		}
		if kind == ir.Int {
			return wire.Int{V: v}, nil
		}
		if v.Sign() < 0 {
			return nil, valueErrorf(n, "nat cannot be negative: %s", s)
		}
		return wire.Nat{V: v}, nil
	case ir.Float32, ir.Float64:
		bits := 64
		if kind == ir.Float32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return nil, valueErrorf(n, "invalid %s %q", kind, s)
		}
		if kind == ir.Float32 {
			return wire.Float32(f), nil
		}
		return wire.Float64(f), nil
	case ir.Nat8, ir.Nat16, ir.Nat32, ir.Nat64:
		u, err := strconv.ParseUint(s, 10, widths[kind])
		if err != nil {
			return nil, valueErrorf(n, "invalid %s %q", kind, s)
		}
		switch kind {
		case ir.Nat8:
			return wire.Nat8(u), nil
		case ir.Nat16:
			return wire.Nat16(u), nil
		case ir.Nat32:
			return wire.Nat32(u), nil
		default:
			return wire.Nat64(u), nil
		}
	case ir.Int8, ir.Int16, ir.Int32, ir.Int64:
		i, err := strconv.ParseInt(s, 10, widths[kind])
		if err != nil {
			return nil, valueErrorf(n, "invalid %s %q", kind, s)
		}
		switch kind {
		case ir.Int8:
			return wire.Int8(i), nil
		case ir.Int16:
			return wire.Int16(i), nil
		case ir.Int32:
			return wire.Int32(i), nil
		default:
			return wire.Int64(i), nil
		}
	}
	return nil, valueErrorf(n, "unknown primitive %s", kind)
}

var widths = map[ir.PrimitiveKind]int{
	ir.Nat8: 8, ir.Nat16: 16, ir.Nat32: 32, ir.Nat64: 64,
	ir.Int8: 8, ir.Int16: 16, ir.Int32: 32, ir.Int64: 64,
}

// RealmValue converts a YAML node into an untyped realm value.
//
// Plain YAML maps onto the obvious realm kinds, with every number becoming
// a Number. The tags !bigint, !bytes, !principal and !undefined select the
// other kinds.
func RealmValue(n *yaml.Node) (vm.Value, error) {
	n = deref(n)
	if n == nil {
		return vm.Undefined{}, nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		out := make(vm.Array, len(n.Content))
		for i, e := range n.Content {
			v, err := RealmValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case yaml.MappingNode:
		obj := vm.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := RealmValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(n.Content[i].Value, v)
		}
		return obj, nil

	case yaml.ScalarNode:
		return scalarRealmValue(n)
	}
	return nil, valueErrorf(n, "unsupported YAML node")
}

func scalarRealmValue(n *yaml.Node) (vm.Value, error) {
	switch n.Tag {
	case TagBigInt:
		v, ok := new(big.Int).SetString(n.Value, 10)
		if !ok {
			return nil, valueErrorf(n, "invalid bigint %q", n.Value)
		}
		return vm.BigInt{V: v}, nil
	case TagBytes:
		return vm.Bytes(n.Value), nil
	case TagUndefined:
		return vm.Undefined{}, nil
	case TagPrincipal:
		p, err := wire.ParsePrincipal(n.Value)
		if err != nil {
			return nil, valueErrorf(n, "%v", err)
		}
		return vm.Principal(p), nil
	}

	switch n.ShortTag() {
	case "!!null":
		return vm.Null{}, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, valueErrorf(n, "invalid bool %q", n.Value)
		}
		return vm.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, valueErrorf(n, "invalid number %q", n.Value)
		}
		return vm.Number(f), nil
	case "!!str":
		return vm.String(n.Value), nil
	}
	return nil, valueErrorf(n, "unsupported tag %s", n.Tag)
}
