package engine

import (
	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/marshal"
	"github.com/roach88/cangen/pkg/vm"
)

// Binding connects one entry point to its marshalling closures.
// Generated code builds bindings from its static converters; NewBindings
// builds them from a type graph at run time.
type Binding struct {
	// Name is both the entry point name and the realm function name.
	Name string

	// Kind is the method kind name, e.g. "query" or "init".
	Kind string

	// Guard names a realm function returning a GuardResult. Empty means no
	// guard.
	Guard string

	// DecodeArgs turns raw argument bytes into realm values.
	DecodeArgs func(raw []byte) ([]vm.Value, error)

	// EncodeResult turns the settled result into reply bytes.
	EncodeResult func(result vm.Value) ([]byte, error)
}

// NewBindings builds bindings for every method of g using the table-driven
// marshaller.
func NewBindings(g *ir.Graph) []Binding {
	methods := g.Methods()
	out := make([]Binding, 0, len(methods))
	for _, m := range methods {
		m := m
		out = append(out, Binding{
			Name:  m.Name,
			Kind:  m.Kind.String(),
			Guard: m.Guard,
			DecodeArgs: func(raw []byte) ([]vm.Value, error) {
				return marshal.ExtractArgs(g, m.Params, raw)
			},
			EncodeResult: func(result vm.Value) ([]byte, error) {
				return marshal.EncodeResult(g, m.Return, result)
			},
		})
	}
	return out
}
