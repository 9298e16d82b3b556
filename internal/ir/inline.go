package ir

// CollectInlineTypes returns every inline node reachable from root,
// depth-first in declaration order, root first when root is itself inline.
//
// Literal TypeRefs are declaration boundaries and are never followed, which
// keeps the walk finite on recursive types. An alias declaration root is
// walked through its aliased body, since that body belongs to the root.
//
// The result may contain duplicates; callers pass it through Deduplicate.
func CollectInlineTypes(root TypeNode) []TypeNode {
	var out []TypeNode
	if t, ok := root.(TypeRef); ok && t.IsAlias() {
		return collectInline(t.Aliased, out)
	}
	return collectInline(root, out)
}

func collectInline(node TypeNode, out []TypeNode) []TypeNode {
	if IsInline(node) && HasDefinition(node) {
		out = append(out, node)
	}
	for _, child := range inlineChildren(node) {
		out = collectInline(child, out)
	}
	return out
}

// inlineChildren lists the direct children of node that are inline.
func inlineChildren(node TypeNode) []TypeNode {
	var children []TypeNode
	switch n := node.(type) {
	case Primitive, TypeRef:
		return nil
	case Array:
		children = []TypeNode{n.Elem}
	case Option:
		children = []TypeNode{n.Elem}
	case Record:
		for _, m := range n.Members {
			children = append(children, m.Type)
		}
	case Variant:
		for _, m := range n.Members {
			children = append(children, m.Type)
		}
	case Tuple:
		children = n.Elems
	case Func:
		children = append(children, n.Params...)
		if n.Return != nil {
			children = append(children, n.Return)
		}
	}

	inline := children[:0:0]
	for _, c := range children {
		if IsInline(c) {
			inline = append(inline, c)
		}
	}
	return inline
}

// CollectFromMethod collects inline types from a method's params and return.
func CollectFromMethod(m Method) []TypeNode {
	var out []TypeNode
	for _, p := range m.Params {
		out = append(out, CollectInlineTypes(p.Type)...)
	}
	if m.Return != nil {
		out = append(out, CollectInlineTypes(m.Return)...)
	}
	return out
}
