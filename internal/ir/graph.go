package ir

import "fmt"

// Graph is the deduplicated type graph of one program plus its methods.
//
// Named and inline definitions live in an arena indexed by identifier; every
// cross-reference is a TypeRef lookup into it rather than structural
// embedding, which is what makes recursive types representable.
//
// A Graph is immutable after BuildGraph returns and safe for concurrent reads.
type Graph struct {
	named      []TypeNode
	inline     []TypeNode
	methods    []Method
	guards     []string
	stableMaps []StableMap
	arena      map[string]TypeNode
}

// UnknownTypeError reports a TypeRef whose target is not declared.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.Name)
}

// BuildGraph deduplicates the program's named types, collects and
// deduplicates every inline type reachable from them, from method signatures
// and from stable map declarations, and indexes the result.
func BuildGraph(prog *Program) (*Graph, error) {
	g := &Graph{
		named:      Deduplicate(prog.Types),
		methods:    append([]Method(nil), prog.Methods...),
		guards:     append([]string(nil), prog.Guards...),
		stableMaps: append([]StableMap(nil), prog.StableMaps...),
	}

	var inline []TypeNode
	for _, n := range g.named {
		inline = append(inline, CollectInlineTypes(n)...)
	}
	for _, m := range g.methods {
		inline = append(inline, CollectFromMethod(m)...)
	}
	for _, sm := range g.stableMaps {
		inline = append(inline, CollectInlineTypes(sm.Key)...)
		inline = append(inline, CollectInlineTypes(sm.Value)...)
	}
	g.inline = Deduplicate(inline)

	g.arena = make(map[string]TypeNode, len(g.named)+len(g.inline))
	for _, n := range g.named {
		g.arena[Ident(n)] = n
	}
	for _, n := range g.inline {
		g.arena[Ident(n)] = n
	}

	if err := g.checkRefs(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkRefs verifies every literal TypeRef resolves.
func (g *Graph) checkRefs() error {
	var check func(TypeNode) error
	check = func(node TypeNode) error {
		switch n := node.(type) {
		case TypeRef:
			if n.IsAlias() {
				return check(n.Aliased)
			}
			if _, ok := g.arena[n.Name]; !ok {
				return &UnknownTypeError{Name: n.Name}
			}
		case Array:
			return check(n.Elem)
		case Option:
			return check(n.Elem)
		case Record:
			for _, m := range n.Members {
				if err := check(m.Type); err != nil {
					return err
				}
			}
		case Variant:
			for _, m := range n.Members {
				if err := check(m.Type); err != nil {
					return err
				}
			}
		case Tuple:
			for _, e := range n.Elems {
				if err := check(e); err != nil {
					return err
				}
			}
		case Func:
			for _, p := range n.Params {
				if err := check(p); err != nil {
					return err
				}
			}
			if n.Return != nil {
				return check(n.Return)
			}
		}
		return nil
	}

	for _, n := range g.named {
		if err := check(n); err != nil {
			return fmt.Errorf("type %s: %w", Ident(n), err)
		}
	}
	for _, m := range g.methods {
		for _, p := range m.Params {
			if err := check(p.Type); err != nil {
				return fmt.Errorf("method %s param %s: %w", m.Name, p.Name, err)
			}
		}
		if m.Return != nil {
			if err := check(m.Return); err != nil {
				return fmt.Errorf("method %s return: %w", m.Name, err)
			}
		}
	}
	for _, sm := range g.stableMaps {
		if err := check(sm.Key); err != nil {
			return fmt.Errorf("stable map %s key: %w", sm.Name, err)
		}
		if err := check(sm.Value); err != nil {
			return fmt.Errorf("stable map %s value: %w", sm.Name, err)
		}
	}
	return nil
}

// Named returns the deduplicated named types in declaration order.
func (g *Graph) Named() []TypeNode { return g.named }

// Inline returns the collected inline types in first-encounter order.
func (g *Graph) Inline() []TypeNode { return g.inline }

// Definitions returns named then inline types: the emission order.
func (g *Graph) Definitions() []TypeNode {
	out := make([]TypeNode, 0, len(g.named)+len(g.inline))
	out = append(out, g.named...)
	for _, n := range g.inline {
		if HasDefinition(n) {
			out = append(out, n)
		}
	}
	return out
}

// Methods returns the methods in declaration order.
func (g *Graph) Methods() []Method { return g.methods }

// Guards returns the declared guard function names.
func (g *Graph) Guards() []string { return g.guards }

// StableMaps returns the declared stable maps.
func (g *Graph) StableMaps() []StableMap { return g.stableMaps }

// Method looks up a method by name.
func (g *Graph) Method(name string) (Method, bool) {
	for _, m := range g.methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// Lookup returns the definition registered under name.
func (g *Graph) Lookup(name string) (TypeNode, bool) {
	n, ok := g.arena[name]
	return n, ok
}

// Resolve strips references and aliases until it reaches a structural node.
// Primitive aliases resolve to their literal kind.
func (g *Graph) Resolve(node TypeNode) (TypeNode, error) {
	for hops := 0; hops <= len(g.arena)+1; hops++ {
		switch n := node.(type) {
		case TypeRef:
			if n.IsAlias() {
				node = n.Aliased
				continue
			}
			target, ok := g.arena[n.Name]
			if !ok {
				return nil, &UnknownTypeError{Name: n.Name}
			}
			node = target
		case Primitive:
			return Primitive{Kind: n.Kind}, nil
		default:
			return node, nil
		}
	}
	return nil, fmt.Errorf("alias cycle through %s", Ident(node))
}

// Manifest describes the whole graph canonically.
func (g *Graph) Manifest() IRValue {
	describeAll := func(nodes []TypeNode) IRArray {
		out := make(IRArray, len(nodes))
		for i, n := range nodes {
			out[i] = Describe(n)
		}
		return out
	}

	methods := make(IRArray, len(g.methods))
	for i, m := range g.methods {
		methods[i] = DescribeMethod(m)
	}

	maps := make(IRArray, len(g.stableMaps))
	for i, sm := range g.stableMaps {
		maps[i] = IRObject{
			"name":  IRString(sm.Name),
			"id":    IRInt(sm.ID),
			"key":   Describe(sm.Key),
			"value": Describe(sm.Value),
		}
	}

	guards := make(IRArray, len(g.guards))
	for i, name := range g.guards {
		guards[i] = IRString(name)
	}

	return IRObject{
		"version":     IRString(IRVersion),
		"types":       describeAll(g.named),
		"inline":      describeAll(g.inline),
		"methods":     methods,
		"guards":      guards,
		"stable_maps": maps,
	}
}
