package ir

// Shape describes node structurally, omitting the names of inline
// composites. It is the input to InlineName, so two anonymous types share a
// shape exactly when they would share a declaration.
func Shape(node TypeNode) IRValue {
	return Walk[IRValue](node, describer{names: false})
}

// Describe is Shape with every declared and synthetic name included.
// Used for manifests and golden files.
func Describe(node TypeNode) IRValue {
	return Walk[IRValue](node, describer{names: true})
}

type describer struct {
	names bool
}

func (d describer) Primitive(p Primitive) IRValue {
	obj := IRObject{"kind": IRString("primitive"), "type": IRString(p.Kind)}
	if p.Alias != "" {
		obj["alias"] = IRString(p.Alias)
	}
	return obj
}

func (d describer) TypeRef(t TypeRef) IRValue {
	if t.IsAlias() {
		return IRObject{
			"kind":    IRString("alias"),
			"name":    IRString(t.Alias),
			"aliased": Walk[IRValue](t.Aliased, d),
		}
	}
	return IRObject{"kind": IRString("ref"), "name": IRString(t.Name)}
}

func (d describer) Array(a Array) IRValue {
	return IRObject{"kind": IRString("vec"), "elem": Walk[IRValue](a.Elem, d)}
}

func (d describer) Option(o Option) IRValue {
	return IRObject{"kind": IRString("opt"), "elem": Walk[IRValue](o.Elem, d)}
}

func (d describer) Record(r Record) IRValue {
	return d.named(IRObject{"kind": IRString("record"), "members": d.members(r.Members)}, r.Name, r.Inline)
}

func (d describer) Variant(v Variant) IRValue {
	return d.named(IRObject{"kind": IRString("variant"), "members": d.members(v.Members)}, v.Name, v.Inline)
}

func (d describer) Tuple(t Tuple) IRValue {
	return d.named(IRObject{"kind": IRString("tuple"), "elems": d.list(t.Elems)}, t.Name, t.Inline)
}

func (d describer) Func(f Func) IRValue {
	obj := IRObject{
		"kind":   IRString("func"),
		"mode":   IRString(f.Mode),
		"params": d.list(f.Params),
	}
	if f.Return != nil {
		obj["return"] = Walk[IRValue](f.Return, d)
	}
	return d.named(obj, f.Name, f.Inline)
}

func (d describer) named(obj IRObject, name string, inline bool) IRValue {
	if d.names || !inline {
		obj["name"] = IRString(name)
	}
	return obj
}

func (d describer) members(members []Member) IRArray {
	out := make(IRArray, len(members))
	for i, m := range members {
		out[i] = IRObject{"name": IRString(m.Name), "type": Walk[IRValue](m.Type, d)}
	}
	return out
}

func (d describer) list(nodes []TypeNode) IRArray {
	out := make(IRArray, len(nodes))
	for i, n := range nodes {
		out[i] = Walk[IRValue](n, d)
	}
	return out
}

// DescribeMethod describes a method signature.
func DescribeMethod(m Method) IRValue {
	params := make(IRArray, len(m.Params))
	for i, p := range m.Params {
		params[i] = IRObject{"name": IRString(p.Name), "type": Describe(p.Type)}
	}
	obj := IRObject{
		"name":   IRString(m.Name),
		"kind":   IRString(m.Kind.String()),
		"params": params,
		"async":  IRBool(m.Async),
	}
	if m.Return != nil {
		obj["return"] = Describe(m.Return)
	}
	if m.Guard != "" {
		obj["guard"] = IRString(m.Guard)
	}
	return obj
}
