package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/cangen/internal/ir"
)

// CompileModule parses a CUE module value into a Program.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value holds the top-level fields types, methods, guards and
// stable_maps, all optional:
//
//	types: User: record: {id: "nat64", name: "text"}
//	methods: getUser: {kind: "query", params: [{name: "id", type: "nat64"}], returns: {opt: "User"}}
//	guards: ["onlyOwner"]
//	stable_maps: users: {id: 0, key: "nat64", value: "User"}
//
// Declaration order is preserved everywhere. The first malformed declaration
// is returned as a *CompileError; Validate checks the cross-references.
func CompileModule(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("module", err)
	}

	prog := &ir.Program{}
	var err error

	if prog.Types, err = compileTypes(v); err != nil {
		return nil, err
	}
	if prog.Methods, err = compileMethods(v); err != nil {
		return nil, err
	}
	if prog.Guards, err = compileGuards(v); err != nil {
		return nil, err
	}
	if prog.StableMaps, err = compileStableMaps(v); err != nil {
		return nil, err
	}
	return prog, nil
}

func compileTypes(v cue.Value) ([]ir.TypeNode, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError("types", err)
	}

	var types []ir.TypeNode
	for iter.Next() {
		name := iter.Label()
		if _, isPrim := ir.ParsePrimitiveKind(name); isPrim {
			return nil, compileErrorf("types."+name, iter.Value().Pos(), "type name shadows primitive %q", name)
		}
		node, err := compileDeclaration(name, iter.Value())
		if err != nil {
			return nil, err
		}
		types = append(types, node)
	}
	return types, nil
}

func compileMethods(v cue.Value) ([]ir.Method, error) {
	methodsVal := v.LookupPath(cue.ParsePath("methods"))
	if !methodsVal.Exists() {
		return nil, nil
	}
	iter, err := methodsVal.Fields()
	if err != nil {
		return nil, formatCUEError("methods", err)
	}

	var methods []ir.Method
	for iter.Next() {
		m, err := compileMethod(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func compileMethod(name string, v cue.Value) (ir.Method, error) {
	field := "methods." + name
	m := ir.Method{Name: name}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return m, compileErrorf(field+".kind", v.Pos(), "method kind is required")
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return m, formatCUEError(field+".kind", err)
	}
	if m.Kind, err = ir.ParseMethodKind(kindStr); err != nil {
		return m, compileErrorf(field+".kind", kindVal.Pos(), "%v", err)
	}

	if paramsVal := v.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		iter, err := paramsVal.List()
		if err != nil {
			return m, formatCUEError(field+".params", err)
		}
		for i := 0; iter.Next(); i++ {
			p, err := compileParam(iter.Value(), fmt.Sprintf("%s.params[%d]", field, i))
			if err != nil {
				return m, err
			}
			m.Params = append(m.Params, p)
		}
	}

	if retVal := v.LookupPath(cue.ParsePath("returns")); retVal.Exists() {
		if m.Return, err = compileExpr(retVal, field+".returns", ""); err != nil {
			return m, err
		}
	}

	if asyncVal := v.LookupPath(cue.ParsePath("async")); asyncVal.Exists() {
		if m.Async, err = asyncVal.Bool(); err != nil {
			return m, formatCUEError(field+".async", err)
		}
	}

	if guardVal := v.LookupPath(cue.ParsePath("guard")); guardVal.Exists() {
		if m.Guard, err = guardVal.String(); err != nil {
			return m, formatCUEError(field+".guard", err)
		}
	}
	return m, nil
}

func compileParam(v cue.Value, field string) (ir.Param, error) {
	var p ir.Param
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return p, compileErrorf(field+".name", v.Pos(), "param name is required")
	}
	name, err := nameVal.String()
	if err != nil {
		return p, formatCUEError(field+".name", err)
	}
	p.Name = name

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return p, compileErrorf(field+".type", v.Pos(), "param type is required")
	}
	if p.Type, err = compileExpr(typeVal, field+".type", ""); err != nil {
		return p, err
	}
	return p, nil
}

func compileGuards(v cue.Value) ([]string, error) {
	guardsVal := v.LookupPath(cue.ParsePath("guards"))
	if !guardsVal.Exists() {
		return nil, nil
	}
	iter, err := guardsVal.List()
	if err != nil {
		return nil, formatCUEError("guards", err)
	}
	var guards []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError("guards", err)
		}
		guards = append(guards, s)
	}
	return guards, nil
}

func compileStableMaps(v cue.Value) ([]ir.StableMap, error) {
	mapsVal := v.LookupPath(cue.ParsePath("stable_maps"))
	if !mapsVal.Exists() {
		return nil, nil
	}
	iter, err := mapsVal.Fields()
	if err != nil {
		return nil, formatCUEError("stable_maps", err)
	}

	var maps []ir.StableMap
	for iter.Next() {
		name := iter.Label()
		field := "stable_maps." + name
		body := iter.Value()

		idVal := body.LookupPath(cue.ParsePath("id"))
		if !idVal.Exists() {
			return nil, compileErrorf(field+".id", body.Pos(), "stable map id is required")
		}
		id, err := idVal.Int64()
		if err != nil {
			return nil, formatCUEError(field+".id", err)
		}
		if id < 0 || id > 255 {
			return nil, compileErrorf(field+".id", idVal.Pos(), "stable map id %d out of range 0..255", id)
		}

		sm := ir.StableMap{Name: name, ID: uint8(id)}
		for _, part := range []struct {
			label string
			dst   *ir.TypeNode
		}{{"key", &sm.Key}, {"value", &sm.Value}} {
			partVal := body.LookupPath(cue.ParsePath(part.label))
			if !partVal.Exists() {
				return nil, compileErrorf(field+"."+part.label, body.Pos(), "stable map %s type is required", part.label)
			}
			if *part.dst, err = compileExpr(partVal, field+"."+part.label, ""); err != nil {
				return nil, err
			}
		}
		maps = append(maps, sm)
	}
	return maps, nil
}
