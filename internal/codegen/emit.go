package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cangen/internal/ir"
)

var q = strconv.Quote

// converters names the four converter functions of one base.
type converters struct {
	decode, encode, fromWire, toWire string
}

func convertersOf(base string) converters {
	return converters{
		decode:   "decode" + base,
		encode:   "encode" + base,
		fromWire: lowerFirst(base) + "FromWire",
		toWire:   lowerFirst(base) + "ToWire",
	}
}

func (gen *generator) convertersFor(node ir.TypeNode) (converters, error) {
	base, err := gen.base(node)
	if err != nil {
		return converters{}, err
	}
	return convertersOf(base), nil
}

func (gen *generator) declare(def ir.TypeNode) error {
	switch n := def.(type) {
	case ir.Primitive:
		return gen.declareAlias(n.Alias, "wire."+wireTypes[n.Kind], true, ir.Primitive{Kind: n.Kind})
	case ir.TypeRef:
		switch n.Aliased.(type) {
		case ir.TypeRef, ir.Primitive:
			return gen.declareAlias(n.Alias, gen.goType(n.Aliased), true, n.Aliased)
		default:
			return gen.declareAlias(n.Alias, gen.goType(n.Aliased), false, n.Aliased)
		}
	case ir.Record:
		return gen.declareRecord(n)
	case ir.Variant:
		return gen.declareVariant(n)
	case ir.Tuple:
		return gen.declareTuple(n)
	case ir.Func:
		gen.declareFunc(n)
		return nil
	default:
		return fmt.Errorf("cannot declare %T", def)
	}
}

// declareAlias emits a named type whose converters delegate to target's.
// Plain renames become Go aliases; vec and opt aliases become defined types
// so that recursion through them stays legal Go.
func (gen *generator) declareAlias(name, goType string, alias bool, target ir.TypeNode) error {
	c, err := gen.convertersFor(target)
	if err != nil {
		return fmt.Errorf("type %s: %w", name, err)
	}
	t := gen.bases[name]
	self := convertersOf(t)

	w := &gen.decls
	fmt.Fprintf(w, "// %s is the interface type %s.\n", t, name)
	if alias {
		fmt.Fprintf(w, "type %s = %s\n\n", t, goType)
	} else {
		fmt.Fprintf(w, "type %s %s\n\n", t, goType)
	}
	fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return %s(v) }\n\n", self.decode, t, c.decode)
	fmt.Fprintf(w, "func %s(x %s) vm.Value { return %s(x) }\n\n", self.encode, t, c.encode)
	fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) { return %s(w) }\n\n", self.fromWire, t, c.fromWire)
	fmt.Fprintf(w, "func %s(x %s) wire.Value { return %s(x) }\n\n", self.toWire, t, c.toWire)
	return nil
}

func (gen *generator) memberConverters(owner string, members []ir.Member) ([]converters, error) {
	out := make([]converters, len(members))
	for i, m := range members {
		c, err := gen.convertersFor(m.Type)
		if err != nil {
			return nil, fmt.Errorf("type %s member %s: %w", owner, m.Name, err)
		}
		out[i] = c
	}
	return out, nil
}

func (gen *generator) declareRecord(n ir.Record) error {
	cs, err := gen.memberConverters(n.Name, n.Members)
	if err != nil {
		return err
	}
	t := gen.bases[n.Name]
	self := convertersOf(t)
	fields := fieldNames(n.Members)
	name := q(n.Name)

	w := &gen.decls
	fmt.Fprintf(w, "// %s is the record %s.\n", t, n.Name)
	fmt.Fprintf(w, "type %s struct {\n", t)
	for i, m := range n.Members {
		fmt.Fprintf(w, "\t%s %s\n", fields[i], gen.goType(m.Type))
	}
	w.WriteString("}\n\n")

	// realm value -> static
	fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) {\n", self.decode, t)
	if len(n.Members) == 0 {
		fmt.Fprintf(w, "\tif _, err := marshal.Object(v, %s); err != nil {\n\t\treturn %s{}, err\n\t}\n", name, t)
		fmt.Fprintf(w, "\treturn %s{}, nil\n}\n\n", t)
	} else {
		fmt.Fprintf(w, "\tvar out %s\n", t)
		fmt.Fprintf(w, "\tobj, err := marshal.Object(v, %s)\n\tif err != nil {\n\t\treturn out, err\n\t}\n", name)
		w.WriteString("\tvar fv vm.Value\n")
		for i, m := range n.Members {
			fmt.Fprintf(w, "\tif fv, err = marshal.Field(obj, %s, %s); err != nil {\n\t\treturn out, err\n\t}\n", name, q(m.Name))
			fmt.Fprintf(w, "\tif out.%s, err = %s(fv); err != nil {\n\t\treturn out, marshal.At(err, %s)\n\t}\n", fields[i], cs[i].decode, q(m.Name))
		}
		w.WriteString("\treturn out, nil\n}\n\n")
	}

	fmt.Fprintf(w, "func %s(x %s) vm.Value {\n\treturn vm.NewObject(\n", self.encode, t)
	for i, m := range n.Members {
		fmt.Fprintf(w, "\t\tvm.Prop{Key: %s, Value: %s(x.%s)},\n", q(m.Name), cs[i].encode, fields[i])
	}
	w.WriteString("\t)\n}\n\n")

	// wire value -> static
	fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) {\n", self.fromWire, t)
	if len(n.Members) == 0 {
		fmt.Fprintf(w, "\tif _, err := marshal.WireRecord(w, %s); err != nil {\n\t\treturn %s{}, err\n\t}\n", name, t)
		fmt.Fprintf(w, "\treturn %s{}, nil\n}\n\n", t)
	} else {
		fmt.Fprintf(w, "\tvar out %s\n", t)
		fmt.Fprintf(w, "\trec, err := marshal.WireRecord(w, %s)\n\tif err != nil {\n\t\treturn out, err\n\t}\n", name)
		w.WriteString("\tvar fw wire.Value\n")
		for i, m := range n.Members {
			fmt.Fprintf(w, "\tif fw, err = marshal.WireField(rec, %s, %s); err != nil {\n\t\treturn out, err\n\t}\n", name, q(m.Name))
			fmt.Fprintf(w, "\tif out.%s, err = %s(fw); err != nil {\n\t\treturn out, marshal.At(err, %s)\n\t}\n", fields[i], cs[i].fromWire, q(m.Name))
		}
		w.WriteString("\treturn out, nil\n}\n\n")
	}

	fmt.Fprintf(w, "func %s(x %s) wire.Value {\n\treturn wire.Record{Fields: []wire.Field{\n", self.toWire, t)
	for i, m := range n.Members {
		fmt.Fprintf(w, "\t\t{Name: %s, Value: %s(x.%s)},\n", q(m.Name), cs[i].toWire, fields[i])
	}
	w.WriteString("\t}}\n}\n\n")
	return nil
}

func (gen *generator) declareVariant(n ir.Variant) error {
	cs, err := gen.memberConverters(n.Name, n.Members)
	if err != nil {
		return err
	}
	t := gen.bases[n.Name]
	self := convertersOf(t)
	fields := fieldNames(n.Members)
	name := q(n.Name)

	tags := make([]string, len(n.Members))
	for i, m := range n.Members {
		tags[i] = q(m.Name)
	}

	w := &gen.decls
	fmt.Fprintf(w, "// %s is the variant %s. Exactly one field is set.\n", t, n.Name)
	fmt.Fprintf(w, "type %s struct {\n", t)
	for i, m := range n.Members {
		fmt.Fprintf(w, "\t%s *%s\n", fields[i], gen.goType(m.Type))
	}
	w.WriteString("}\n\n")

	fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) {\n\tvar out %s\n", self.decode, t, t)
	fmt.Fprintf(w, "\ttag, payload, err := marshal.Tag(v, %s", name)
	for _, tag := range tags {
		fmt.Fprintf(w, ", %s", tag)
	}
	w.WriteString(")\n\tif err != nil {\n\t\treturn out, err\n\t}\n\tswitch tag {\n")
	for i := range n.Members {
		fmt.Fprintf(w, "\tcase %s:\n", tags[i])
		fmt.Fprintf(w, "\t\tx, err := %s(payload)\n\t\tif err != nil {\n\t\t\treturn out, marshal.At(err, %s)\n\t\t}\n", cs[i].decode, tags[i])
		fmt.Fprintf(w, "\t\tout.%s = &x\n", fields[i])
	}
	w.WriteString("\t}\n\treturn out, nil\n}\n\n")

	fmt.Fprintf(w, "func %s(x %s) vm.Value {\n\tswitch {\n", self.encode, t)
	for i := range n.Members {
		fmt.Fprintf(w, "\tcase x.%s != nil:\n", fields[i])
		fmt.Fprintf(w, "\t\treturn vm.NewObject(vm.Prop{Key: %s, Value: %s(*x.%s)})\n", tags[i], cs[i].encode, fields[i])
	}
	fmt.Fprintf(w, "\t}\n\tpanic(trap.Internal(\"variant %%s has no tag set\", %s))\n}\n\n", name)

	fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) {\n\tvar out %s\n", self.fromWire, t, t)
	fmt.Fprintf(w, "\tvr, err := marshal.WireVariant(w, %s)\n\tif err != nil {\n\t\treturn out, err\n\t}\n\tswitch vr.Tag {\n", name)
	for i := range n.Members {
		fmt.Fprintf(w, "\tcase %s:\n", tags[i])
		fmt.Fprintf(w, "\t\tx, err := %s(vr.Value)\n\t\tif err != nil {\n\t\t\treturn out, marshal.At(err, %s)\n\t\t}\n", cs[i].fromWire, tags[i])
		fmt.Fprintf(w, "\t\tout.%s = &x\n", fields[i])
	}
	fmt.Fprintf(w, "\tdefault:\n\t\treturn out, marshal.UnknownTag(%s, vr.Tag, %s)\n\t}\n\treturn out, nil\n}\n\n", name, strings.Join(tags, ", "))

	fmt.Fprintf(w, "func %s(x %s) wire.Value {\n\tswitch {\n", self.toWire, t)
	for i := range n.Members {
		fmt.Fprintf(w, "\tcase x.%s != nil:\n", fields[i])
		fmt.Fprintf(w, "\t\treturn wire.Variant{Tag: %s, Value: %s(*x.%s)}\n", tags[i], cs[i].toWire, fields[i])
	}
	fmt.Fprintf(w, "\t}\n\tpanic(trap.Internal(\"variant %%s has no tag set\", %s))\n}\n\n", name)
	return nil
}

func (gen *generator) declareTuple(n ir.Tuple) error {
	cs := make([]converters, len(n.Elems))
	for i, e := range n.Elems {
		c, err := gen.convertersFor(e)
		if err != nil {
			return fmt.Errorf("type %s element %d: %w", n.Name, i, err)
		}
		cs[i] = c
	}
	t := gen.bases[n.Name]
	self := convertersOf(t)
	name := q(n.Name)
	arity := len(n.Elems)

	w := &gen.decls
	fmt.Fprintf(w, "// %s is the tuple %s.\n", t, n.Name)
	fmt.Fprintf(w, "type %s struct {\n", t)
	for i, e := range n.Elems {
		fmt.Fprintf(w, "\tF%d %s\n", i, gen.goType(e))
	}
	w.WriteString("}\n\n")

	fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) {\n\tvar out %s\n", self.decode, t, t)
	if arity == 0 {
		fmt.Fprintf(w, "\t_, err := marshal.Elems(v, %s, 0)\n\treturn out, err\n}\n\n", name)
	} else {
		fmt.Fprintf(w, "\tarr, err := marshal.Elems(v, %s, %d)\n\tif err != nil {\n\t\treturn out, err\n\t}\n", name, arity)
		for i := range n.Elems {
			fmt.Fprintf(w, "\tif out.F%d, err = %s(arr[%d]); err != nil {\n\t\treturn out, marshal.AtIndex(err, %d)\n\t}\n", i, cs[i].decode, i, i)
		}
		w.WriteString("\treturn out, nil\n}\n\n")
	}

	fmt.Fprintf(w, "func %s(x %s) vm.Value {\n\treturn vm.Array{", self.encode, t)
	parts := make([]string, arity)
	for i := range n.Elems {
		parts[i] = fmt.Sprintf("%s(x.F%d)", cs[i].encode, i)
	}
	w.WriteString(strings.Join(parts, ", "))
	w.WriteString("}\n}\n\n")

	fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) {\n\tvar out %s\n", self.fromWire, t, t)
	if arity == 0 {
		fmt.Fprintf(w, "\t_, err := marshal.WireTuple(w, %s, 0)\n\treturn out, err\n}\n\n", name)
	} else {
		fmt.Fprintf(w, "\ttup, err := marshal.WireTuple(w, %s, %d)\n\tif err != nil {\n\t\treturn out, err\n\t}\n", name, arity)
		for i := range n.Elems {
			fmt.Fprintf(w, "\tif out.F%d, err = %s(tup[%d]); err != nil {\n\t\treturn out, marshal.AtIndex(err, %d)\n\t}\n", i, cs[i].fromWire, i, i)
		}
		w.WriteString("\treturn out, nil\n}\n\n")
	}

	fmt.Fprintf(w, "func %s(x %s) wire.Value {\n\treturn wire.Tuple{", self.toWire, t)
	for i := range n.Elems {
		parts[i] = fmt.Sprintf("%s(x.F%d)", cs[i].toWire, i)
	}
	w.WriteString(strings.Join(parts, ", "))
	w.WriteString("}\n}\n\n")
	return nil
}

func (gen *generator) declareFunc(n ir.Func) {
	t := gen.bases[n.Name]
	self := convertersOf(t)

	w := &gen.decls
	fmt.Fprintf(w, "// %s is the function reference type %s.\n", t, n.Name)
	fmt.Fprintf(w, "type %s = wire.Func\n\n", t)
	fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return marshal.FuncRef(v) }\n\n", self.decode, t)
	fmt.Fprintf(w, "func %s(x %s) vm.Value { return marshal.FuncToVM(x) }\n\n", self.encode, t)
	fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) { return marshal.FuncFromWire(w) }\n\n", self.fromWire, t)
	fmt.Fprintf(w, "func %s(x %s) wire.Value { return x }\n\n", self.toWire, t)
}

// anonymous emits the helpers of a primitive literal, vec or opt node.
func (gen *generator) anonymous(node ir.TypeNode) {
	self := convertersOf(gen.bases[ir.Ident(node)])
	goType := gen.goType(node)
	w := &gen.helpers

	switch n := node.(type) {
	case ir.Primitive:
		kind := q(string(n.Kind))
		fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return marshal.Prim[%s](v, %s) }\n\n", self.decode, goType, goType, kind)
		fmt.Fprintf(w, "func %s(x %s) vm.Value { return marshal.PrimToVM(x, %s) }\n\n", self.encode, goType, kind)
		fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) { return marshal.PrimFromWire[%s](w, %s) }\n\n", self.fromWire, goType, goType, kind)
		fmt.Fprintf(w, "func %s(x %s) wire.Value { return x }\n\n", self.toWire, goType)

	case ir.Array:
		elem := convertersOf(gen.bases[ir.Ident(n.Elem)])
		name := q(ir.Ident(n))
		if gen.isBytes(n.Elem) {
			fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return marshal.DecodeBytesVec(v) }\n\n", self.decode, goType)
			fmt.Fprintf(w, "func %s(xs %s) vm.Value { return marshal.EncodeBytesVec(xs) }\n\n", self.encode, goType)
		} else {
			fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return marshal.DecodeVec(v, %s, %s) }\n\n", self.decode, goType, name, elem.decode)
			fmt.Fprintf(w, "func %s(xs %s) vm.Value { return marshal.EncodeVec(xs, %s) }\n\n", self.encode, goType, elem.encode)
		}
		fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) { return marshal.VecFromWire(w, %s, %s) }\n\n", self.fromWire, goType, name, elem.fromWire)
		fmt.Fprintf(w, "func %s(xs %s) wire.Value { return marshal.VecToWire(xs, %s) }\n\n", self.toWire, goType, elem.toWire)

	case ir.Option:
		elem := convertersOf(gen.bases[ir.Ident(n.Elem)])
		name := q(ir.Ident(n))
		fmt.Fprintf(w, "func %s(v vm.Value) (%s, error) { return marshal.DecodeOpt(v, %s, %s) }\n\n", self.decode, goType, name, elem.decode)
		fmt.Fprintf(w, "func %s(p %s) vm.Value { return marshal.EncodeOpt(p, %s) }\n\n", self.encode, goType, elem.encode)
		fmt.Fprintf(w, "func %s(w wire.Value) (%s, error) { return marshal.OptFromWire(w, %s, %s) }\n\n", self.fromWire, goType, name, elem.fromWire)
		fmt.Fprintf(w, "func %s(p %s) wire.Value { return marshal.OptToWire(p, %s) }\n\n", self.toWire, goType, elem.toWire)
	}
}

// methods emits Bindings with one entry per method.
func (gen *generator) methods() error {
	w := &gen.bindings
	w.WriteString("// Bindings returns the engine bindings of every method, in declaration order.\n")
	w.WriteString("func Bindings() []engine.Binding {\n\treturn []engine.Binding{\n")
	for _, m := range gen.graph.Methods() {
		if err := gen.binding(w, m); err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
	}
	w.WriteString("\t}\n}\n")
	return nil
}

func (gen *generator) binding(w *bytes.Buffer, m ir.Method) error {
	params := make([]converters, len(m.Params))
	for i, p := range m.Params {
		c, err := gen.convertersFor(p.Type)
		if err != nil {
			return fmt.Errorf("param %s: %w", p.Name, err)
		}
		params[i] = c
	}

	w.WriteString("\t\t{\n")
	fmt.Fprintf(w, "\t\t\tName: %s,\n\t\t\tKind: %s,\n", q(m.Name), q(m.Kind.String()))
	if m.Guard != "" {
		fmt.Fprintf(w, "\t\t\tGuard: %s,\n", q(m.Guard))
	}

	w.WriteString("\t\t\tDecodeArgs: func(raw []byte) ([]vm.Value, error) {\n")
	if len(m.Params) == 0 {
		w.WriteString("\t\t\t\tif _, err := wire.UnmarshalArgs(raw); err != nil {\n\t\t\t\t\treturn nil, marshal.MalformedArgs(err)\n\t\t\t\t}\n")
		w.WriteString("\t\t\t\treturn []vm.Value{}, nil\n")
	} else {
		w.WriteString("\t\t\t\targs, err := wire.UnmarshalArgs(raw)\n\t\t\t\tif err != nil {\n\t\t\t\t\treturn nil, marshal.MalformedArgs(err)\n\t\t\t\t}\n")
		fmt.Fprintf(w, "\t\t\t\tout := make([]vm.Value, %d)\n", len(m.Params))
		for i, p := range m.Params {
			fmt.Fprintf(w, "\t\t\t\tif len(args) < %d {\n\t\t\t\t\treturn nil, marshal.MissingArg(%d, %s, %s)\n\t\t\t\t}\n", i+1, i, q(p.Name), q(ir.Ident(p.Type)))
			fmt.Fprintf(w, "\t\t\t\tx%d, err := %s(args[%d])\n\t\t\t\tif err != nil {\n\t\t\t\t\treturn nil, marshal.ForParam(err, %d, %s)\n\t\t\t\t}\n", i, params[i].fromWire, i, i, q(p.Name))
			fmt.Fprintf(w, "\t\t\t\tout[%d] = %s(x%d)\n", i, params[i].encode, i)
		}
		w.WriteString("\t\t\t\treturn out, nil\n")
	}
	w.WriteString("\t\t\t},\n")

	if m.Return == nil {
		w.WriteString("\t\t\tEncodeResult: func(vm.Value) ([]byte, error) {\n\t\t\t\treturn marshal.Reply()\n\t\t\t},\n")
	} else {
		ret, err := gen.convertersFor(m.Return)
		if err != nil {
			return fmt.Errorf("return: %w", err)
		}
		w.WriteString("\t\t\tEncodeResult: func(result vm.Value) ([]byte, error) {\n")
		fmt.Fprintf(w, "\t\t\t\tx, err := %s(result)\n\t\t\t\tif err != nil {\n\t\t\t\t\treturn nil, err\n\t\t\t\t}\n", ret.decode)
		fmt.Fprintf(w, "\t\t\t\treturn marshal.Reply(%s(x))\n", ret.toWire)
		w.WriteString("\t\t\t},\n")
	}
	w.WriteString("\t\t},\n")
	return nil
}
