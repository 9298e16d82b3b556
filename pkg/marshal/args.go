package marshal

import (
	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// ExtractArgs decodes raw argument bytes into dynamic values, one per
// parameter in order. It stops at the first failing parameter and names it
// in the error; no later parameter is touched. Extra trailing arguments are
// ignored.
func ExtractArgs(g Resolver, params []ir.Param, raw []byte) ([]vm.Value, error) {
	args, err := wire.UnmarshalArgs(raw)
	if err != nil {
		return nil, MalformedArgs(err)
	}

	out := make([]vm.Value, len(params))
	for i, p := range params {
		if i >= len(args) {
			return nil, MissingArg(i, p.Name, ir.Ident(p.Type))
		}
		if err := Conform(g, p.Type, args[i]); err != nil {
			return nil, ForParam(err, i, p.Name)
		}
		v, err := Encode(g, p.Type, args[i])
		if err != nil {
			return nil, ForParam(err, i, p.Name)
		}
		out[i] = v
	}
	return out, nil
}

// EncodeResult decodes a settled dynamic result through the return type and
// serializes it as a single-element argument tuple. A nil return type
// produces the empty tuple.
func EncodeResult(g Resolver, ret ir.TypeNode, v vm.Value) ([]byte, error) {
	if ret == nil {
		return wire.MarshalArgs()
	}
	w, err := Decode(g, ret, v)
	if err != nil {
		return nil, err
	}
	return Reply(w)
}

// Reply serializes reply values as an argument tuple.
func Reply(ws ...wire.Value) ([]byte, error) {
	data, err := wire.MarshalArgs(ws...)
	if err != nil {
		return nil, trap.WrapInternal(err)
	}
	return data, nil
}

// MalformedArgs reports argument bytes that do not parse at all.
func MalformedArgs(err error) error {
	return &trap.Error{
		Kind:    trap.ShapeMismatch,
		Message: "malformed argument bytes: " + err.Error(),
		Err:     err,
	}
}

// MissingArg reports a parameter with no matching argument.
func MissingArg(i int, name, typeName string) error {
	return trap.Mismatch(typeName, "no argument").ForParam(i, name)
}

// ForParam attributes a failure to the i-th parameter.
func ForParam(err error, i int, name string) error {
	if te, ok := trap.As(err); ok {
		return te.ForParam(i, name)
	}
	return err
}
