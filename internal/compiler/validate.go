package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cangen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateLifecycle = "E101" // more than one method of a lifecycle kind
	ErrUnknownType        = "E102" // reference to an undeclared type
	ErrUnknownGuard       = "E103" // method guard not listed in guards
	ErrLifecycleSignature = "E104" // lifecycle method with forbidden params or return
	ErrDuplicateParam     = "E105" // two params with the same name
	ErrDuplicateMapID     = "E106" // two stable maps with the same id
	ErrNameCollision      = "E107" // guard shares a name with a method or another guard
	ErrAliasCycle         = "E108" // alias declarations refer to each other
	ErrInfiniteType       = "E109" // record/tuple contains itself without indirection
)

// ValidationError represents a semantic error in a compiled program.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// paramlessKinds may not declare parameters.
var paramlessKinds = map[ir.MethodKind]bool{
	ir.PreUpgrade:     true,
	ir.Heartbeat:      true,
	ir.InspectMessage: true,
}

// Validate checks cross-references and lifecycle rules.
// Returns all errors found (does not fail-fast).
func Validate(prog *ir.Program) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateLifecycle(prog.Methods)...)
	errs = append(errs, validateReferences(prog)...)
	errs = append(errs, validateGuards(prog)...)
	errs = append(errs, validateParams(prog.Methods)...)
	errs = append(errs, validateStableMaps(prog.StableMaps)...)

	for _, w := range AnalyzeCycles(prog) {
		if w.Level != LevelError {
			continue
		}
		errs = append(errs, ValidationError{
			Field:   "types." + w.Path[0],
			Message: w.Message,
			Code:    w.Code,
		})
	}
	return errs
}

func validateLifecycle(methods []ir.Method) []ValidationError {
	var errs []ValidationError

	byKind := make(map[ir.MethodKind][]string)
	for _, m := range methods {
		if m.Kind.IsLifecycle() {
			byKind[m.Kind] = append(byKind[m.Kind], m.Name)
		}
	}
	for _, kind := range ir.LifecycleKinds {
		if names := byKind[kind]; len(names) > 1 {
			errs = append(errs, ValidationError{
				Field:   "methods",
				Message: fmt.Sprintf("duplicate %s method: %s", kind, strings.Join(names, ", ")),
				Code:    ErrDuplicateLifecycle,
			})
		}
	}

	for _, m := range methods {
		if !m.Kind.IsLifecycle() {
			continue
		}
		if paramlessKinds[m.Kind] && len(m.Params) > 0 {
			errs = append(errs, ValidationError{
				Field:   "methods." + m.Name + ".params",
				Message: fmt.Sprintf("%s method %q takes no parameters", m.Kind, m.Name),
				Code:    ErrLifecycleSignature,
			})
		}
		if m.Return != nil {
			errs = append(errs, ValidationError{
				Field:   "methods." + m.Name + ".returns",
				Message: fmt.Sprintf("%s method %q returns nothing", m.Kind, m.Name),
				Code:    ErrLifecycleSignature,
			})
		}
	}
	return errs
}

func validateReferences(prog *ir.Program) []ValidationError {
	declared := make(map[string]bool, len(prog.Types))
	for _, t := range prog.Types {
		declared[ir.Ident(t)] = true
	}

	var errs []ValidationError
	check := func(field string, node ir.TypeNode) {
		for _, name := range referencedNames(node) {
			if !declared[name] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown type %q", name),
					Code:    ErrUnknownType,
				})
			}
		}
	}

	for _, t := range prog.Types {
		check("types."+ir.Ident(t), t)
	}
	for _, m := range prog.Methods {
		for i, p := range m.Params {
			check(fmt.Sprintf("methods.%s.params[%d]", m.Name, i), p.Type)
		}
		if m.Return != nil {
			check("methods."+m.Name+".returns", m.Return)
		}
	}
	for _, sm := range prog.StableMaps {
		check("stable_maps."+sm.Name+".key", sm.Key)
		check("stable_maps."+sm.Name+".value", sm.Value)
	}
	return errs
}

func validateGuards(prog *ir.Program) []ValidationError {
	var errs []ValidationError

	methodNames := make(map[string]bool, len(prog.Methods))
	for _, m := range prog.Methods {
		methodNames[m.Name] = true
	}

	listed := make(map[string]bool, len(prog.Guards))
	for i, g := range prog.Guards {
		field := fmt.Sprintf("guards[%d]", i)
		switch {
		case listed[g]:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("guard %q listed twice", g), Code: ErrNameCollision})
		case methodNames[g]:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("guard %q has the same name as a method", g), Code: ErrNameCollision})
		}
		listed[g] = true
	}

	for _, m := range prog.Methods {
		if m.Guard != "" && !listed[m.Guard] {
			errs = append(errs, ValidationError{
				Field:   "methods." + m.Name + ".guard",
				Message: fmt.Sprintf("guard %q is not listed in guards", m.Guard),
				Code:    ErrUnknownGuard,
			})
		}
	}
	return errs
}

func validateParams(methods []ir.Method) []ValidationError {
	var errs []ValidationError
	for _, m := range methods {
		seen := make(map[string]bool, len(m.Params))
		for i, p := range m.Params {
			if seen[p.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("methods.%s.params[%d].name", m.Name, i),
					Message: fmt.Sprintf("duplicate param name %q", p.Name),
					Code:    ErrDuplicateParam,
				})
			}
			seen[p.Name] = true
		}
	}
	return errs
}

func validateStableMaps(maps []ir.StableMap) []ValidationError {
	var errs []ValidationError
	owner := make(map[uint8]string, len(maps))
	for _, sm := range maps {
		if prev, dup := owner[sm.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   "stable_maps." + sm.Name + ".id",
				Message: fmt.Sprintf("id %d already used by %s", sm.ID, prev),
				Code:    ErrDuplicateMapID,
			})
			continue
		}
		owner[sm.ID] = sm.Name
	}
	return errs
}

// referencedNames returns every literal TypeRef name reachable from node
// without crossing into other declarations, sorted and unique.
func referencedNames(node ir.TypeNode) []string {
	set := make(map[string]bool)
	var walk func(ir.TypeNode)
	walk = func(n ir.TypeNode) {
		switch t := n.(type) {
		case ir.TypeRef:
			if t.IsAlias() {
				walk(t.Aliased)
				return
			}
			set[t.Name] = true
		case ir.Array:
			walk(t.Elem)
		case ir.Option:
			walk(t.Elem)
		case ir.Record:
			for _, m := range t.Members {
				walk(m.Type)
			}
		case ir.Variant:
			for _, m := range t.Members {
				walk(m.Type)
			}
		case ir.Tuple:
			for _, e := range t.Elems {
				walk(e)
			}
		case ir.Func:
			for _, p := range t.Params {
				walk(p)
			}
			if t.Return != nil {
				walk(t.Return)
			}
		}
	}
	walk(node)

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
