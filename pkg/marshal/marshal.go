package marshal

import (
	"fmt"
	"strings"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// Resolver strips references and aliases off a type node.
// *ir.Graph implements it.
type Resolver interface {
	Resolve(node ir.TypeNode) (ir.TypeNode, error)
}

func resolve(g Resolver, node ir.TypeNode) (ir.TypeNode, error) {
	n, err := g.Resolve(node)
	if err != nil {
		return nil, trap.WrapInternal(err)
	}
	return n, nil
}

// isBytesElem reports whether elem resolves to nat8, which lets a vec
// travel as a byte array.
func isBytesElem(g Resolver, elem ir.TypeNode) bool {
	n, err := g.Resolve(elem)
	if err != nil {
		return false
	}
	p, ok := n.(ir.Primitive)
	return ok && p.Kind == ir.Nat8
}

func tagList(members []ir.Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}

// Decode converts a dynamic value to the static value of node.
func Decode(g Resolver, node ir.TypeNode, v vm.Value) (wire.Value, error) {
	resolved, err := resolve(g, node)
	if err != nil {
		return nil, err
	}

	switch n := resolved.(type) {
	case ir.Primitive:
		return decodePrimitive(n.Kind, v)

	case ir.Array:
		if bytes, ok := v.(vm.Bytes); ok && isBytesElem(g, n.Elem) {
			out := make(wire.Vec, len(bytes))
			for i, b := range bytes {
				out[i] = wire.Nat8(b)
			}
			return out, nil
		}
		arr, ok := v.(vm.Array)
		if !ok {
			return nil, trap.Mismatch(ir.Ident(n), vm.Describe(v))
		}
		out := make(wire.Vec, len(arr))
		for i, e := range arr {
			w, err := Decode(g, n.Elem, e)
			if err != nil {
				return nil, at(err, i)
			}
			out[i] = w
		}
		return out, nil

	case ir.Option:
		arr, ok := v.(vm.Array)
		if !ok || len(arr) > 1 {
			return nil, trap.Mismatch(ir.Ident(n)+" as [] or [value]", vm.Describe(v))
		}
		if len(arr) == 0 {
			return wire.None, nil
		}
		w, err := Decode(g, n.Elem, arr[0])
		if err != nil {
			return nil, at(err, 0)
		}
		return wire.Some(w), nil

	case ir.Record:
		obj, ok := v.(*vm.Object)
		if !ok {
			return nil, trap.Mismatch("record "+n.Name, vm.Describe(v))
		}
		fields := make([]wire.Field, len(n.Members))
		for i, m := range n.Members {
			fv, ok := obj.Get(m.Name)
			if !ok {
				return nil, trap.Mismatch("record "+n.Name, fmt.Sprintf("object missing field %q", m.Name))
			}
			w, err := Decode(g, m.Type, fv)
			if err != nil {
				return nil, within(err, m.Name)
			}
			fields[i] = wire.Field{Name: m.Name, Value: w}
		}
		return wire.Record{Fields: fields}, nil

	case ir.Variant:
		obj, ok := v.(*vm.Object)
		if !ok {
			return nil, trap.Mismatch("variant "+n.Name, vm.Describe(v))
		}
		for _, m := range n.Members {
			payload, ok := obj.Get(m.Name)
			if !ok {
				continue
			}
			w, err := Decode(g, m.Type, payload)
			if err != nil {
				return nil, within(err, m.Name)
			}
			return wire.Variant{Tag: m.Name, Value: w}, nil
		}
		return nil, trap.Mismatch(
			fmt.Sprintf("variant %s with one of tags [%s]", n.Name, tagList(n.Members)),
			"object with none of them",
		)

	case ir.Tuple:
		arr, ok := v.(vm.Array)
		if !ok || len(arr) != len(n.Elems) {
			return nil, trap.Mismatch(fmt.Sprintf("tuple %s of %d elements", n.Name, len(n.Elems)), vm.Describe(v))
		}
		out := make(wire.Tuple, len(arr))
		for i, e := range arr {
			w, err := Decode(g, n.Elems[i], e)
			if err != nil {
				return nil, at(err, i)
			}
			out[i] = w
		}
		return out, nil

	case ir.Func:
		return decodeFuncRef(v)

	default:
		return nil, trap.Internal("cannot decode into %T", resolved)
	}
}

func decodeFuncRef(v vm.Value) (wire.Value, error) {
	arr, ok := v.(vm.Array)
	if ok && len(arr) == 2 {
		p, pok := arr[0].(vm.Principal)
		m, mok := arr[1].(vm.String)
		if pok && mok {
			return wire.Func{Principal: wire.Principal(append([]byte{}, p...)), Method: string(m)}, nil
		}
	}
	return nil, trap.Mismatch("func reference as [principal, method]", vm.Describe(v))
}

// Encode converts a static value of node to its dynamic form.
// Every failure is an InternalInconsistency.
func Encode(g Resolver, node ir.TypeNode, w wire.Value) (vm.Value, error) {
	resolved, err := resolve(g, node)
	if err != nil {
		return nil, err
	}

	switch n := resolved.(type) {
	case ir.Primitive:
		return encodePrimitive(n.Kind, w)

	case ir.Array:
		vec, ok := w.(wire.Vec)
		if !ok {
			break
		}
		if isBytesElem(g, n.Elem) {
			out := make(vm.Bytes, len(vec))
			for i, e := range vec {
				b, ok := e.(wire.Nat8)
				if !ok {
					return nil, trap.Internal("vec nat8 element %d is %s", i, wire.KindOf(e))
				}
				out[i] = byte(b)
			}
			return out, nil
		}
		out := make(vm.Array, len(vec))
		for i, e := range vec {
			v, err := Encode(g, n.Elem, e)
			if err != nil {
				return nil, at(err, i)
			}
			out[i] = v
		}
		return out, nil

	case ir.Option:
		opt, ok := w.(wire.Opt)
		if !ok {
			break
		}
		if opt.Value == nil {
			return vm.Array{}, nil
		}
		v, err := Encode(g, n.Elem, opt.Value)
		if err != nil {
			return nil, at(err, 0)
		}
		return vm.Array{v}, nil

	case ir.Record:
		rec, ok := w.(wire.Record)
		if !ok {
			break
		}
		obj := vm.NewObject()
		for _, m := range n.Members {
			fw, ok := rec.Get(m.Name)
			if !ok {
				return nil, trap.Internal("record %s value has no field %q", n.Name, m.Name)
			}
			v, err := Encode(g, m.Type, fw)
			if err != nil {
				return nil, within(err, m.Name)
			}
			obj.Set(m.Name, v)
		}
		return obj, nil

	case ir.Variant:
		vr, ok := w.(wire.Variant)
		if !ok {
			break
		}
		for _, m := range n.Members {
			if m.Name != vr.Tag {
				continue
			}
			v, err := Encode(g, m.Type, vr.Value)
			if err != nil {
				return nil, within(err, m.Name)
			}
			return vm.NewObject(vm.Prop{Key: m.Name, Value: v}), nil
		}
		return nil, trap.Internal("variant %s has no tag %q", n.Name, vr.Tag)

	case ir.Tuple:
		tup, ok := w.(wire.Tuple)
		if !ok || len(tup) != len(n.Elems) {
			break
		}
		out := make(vm.Array, len(tup))
		for i, e := range tup {
			v, err := Encode(g, n.Elems[i], e)
			if err != nil {
				return nil, at(err, i)
			}
			out[i] = v
		}
		return out, nil

	case ir.Func:
		if f, ok := w.(wire.Func); ok {
			return vm.Array{vm.Principal(append([]byte{}, f.Principal...)), vm.String(f.Method)}, nil
		}
	}
	return nil, trap.Internal("cannot encode %s as %s", wire.KindOf(w), ir.Ident(resolved))
}

// Conform checks that a byte-decoded static value matches node.
// Extra record fields are ignored.
func Conform(g Resolver, node ir.TypeNode, w wire.Value) error {
	resolved, err := resolve(g, node)
	if err != nil {
		return err
	}
	found := wire.KindOf(w)

	switch n := resolved.(type) {
	case ir.Primitive:
		return conformPrimitive(n.Kind, w)

	case ir.Array:
		vec, ok := w.(wire.Vec)
		if !ok {
			return trap.Mismatch(ir.Ident(n), found)
		}
		for i, e := range vec {
			if err := Conform(g, n.Elem, e); err != nil {
				return at(err, i)
			}
		}
		return nil

	case ir.Option:
		opt, ok := w.(wire.Opt)
		if !ok {
			return trap.Mismatch(ir.Ident(n), found)
		}
		if opt.Value == nil {
			return nil
		}
		if err := Conform(g, n.Elem, opt.Value); err != nil {
			return at(err, 0)
		}
		return nil

	case ir.Record:
		rec, ok := w.(wire.Record)
		if !ok {
			return trap.Mismatch("record "+n.Name, found)
		}
		for _, m := range n.Members {
			fw, ok := rec.Get(m.Name)
			if !ok {
				return trap.Mismatch("record "+n.Name, fmt.Sprintf("record missing field %q", m.Name))
			}
			if err := Conform(g, m.Type, fw); err != nil {
				return within(err, m.Name)
			}
		}
		return nil

	case ir.Variant:
		vr, ok := w.(wire.Variant)
		if !ok {
			return trap.Mismatch("variant "+n.Name, found)
		}
		for _, m := range n.Members {
			if m.Name == vr.Tag {
				if err := Conform(g, m.Type, vr.Value); err != nil {
					return within(err, m.Name)
				}
				return nil
			}
		}
		return trap.Mismatch(
			fmt.Sprintf("variant %s with one of tags [%s]", n.Name, tagList(n.Members)),
			fmt.Sprintf("tag %q", vr.Tag),
		)

	case ir.Tuple:
		tup, ok := w.(wire.Tuple)
		if !ok || len(tup) != len(n.Elems) {
			return trap.Mismatch(fmt.Sprintf("tuple %s of %d elements", n.Name, len(n.Elems)), found)
		}
		for i, e := range tup {
			if err := Conform(g, n.Elems[i], e); err != nil {
				return at(err, i)
			}
		}
		return nil

	case ir.Func:
		if _, ok := w.(wire.Func); !ok {
			return trap.Mismatch("func", found)
		}
		return nil

	default:
		return trap.Internal("cannot conform %T", resolved)
	}
}

// at prefixes an index to a trap's path.
func at(err error, i int) error {
	if te, ok := trap.As(err); ok {
		return te.AtIndex(i)
	}
	return err
}

// within prefixes a member name to a trap's path.
func within(err error, name string) error {
	if te, ok := trap.As(err); ok {
		return te.At(name)
	}
	return err
}
