package testutil

import (
	"errors"
	"math"
	"math/big"
	"os"
	"path/filepath"

	"github.com/roach88/cangen/pkg/wire"
)

// ShapesModule is the interface directory, relative to the module root,
// that declares every primitive kind and every composite form.
const ShapesModule = "testdata/modules/shapes"

// ModuleRoot walks up from the working directory to the directory holding
// go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// ShapeCase is one call against the shapes module. Every method except
// first and never returns its argument unchanged.
type ShapeCase struct {
	Name   string
	Method string
	Args   []wire.Value

	// Reply is the single reply value. Nil means the call traps with a
	// ShapeMismatch.
	Reply wire.Value
}

// Echo reports whether the case replies with its only argument.
func (c ShapeCase) Echo() bool {
	return c.Reply != nil && len(c.Args) == 1 && wire.Equal(c.Reply, c.Args[0])
}

func echo(name, method string, v wire.Value) ShapeCase {
	return ShapeCase{Name: name, Method: method, Args: []wire.Value{v}, Reply: v}
}

func traps(name, method string, args ...wire.Value) ShapeCase {
	return ShapeCase{Name: name, Method: method, Args: args}
}

func field(name string, v wire.Value) wire.Field {
	return wire.Field{Name: name, Value: v}
}

// SamplePrims is a Prims record with extreme values in every field.
func SamplePrims() wire.Record {
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	return wire.Record{Fields: []wire.Field{
		field("unit", wire.Null{}),
		field("ignored", wire.Reserved{}),
		field("flag", wire.Bool(true)),
		field("label", wire.Text("shapes")),
		field("data", wire.Blob{0, 1, 2, 255}),
		field("owner", wire.Principal{0xab, 0xcd, 0x01}),
		field("big", wire.Nat{V: huge}),
		field("u8", wire.Nat8(math.MaxUint8)),
		field("u16", wire.Nat16(math.MaxUint16)),
		field("u32", wire.Nat32(math.MaxUint32)),
		field("u64", wire.Nat64(math.MaxUint64)),
		field("signed", wire.Int{V: new(big.Int).Neg(huge)}),
		field("i8", wire.Int8(math.MinInt8)),
		field("i16", wire.Int16(math.MinInt16)),
		field("i32", wire.Int32(math.MinInt32)),
		field("i64", wire.Int64(math.MinInt64)),
		field("f32", wire.Float32(1.5)),
		field("f64", wire.Float64(-2.25)),
		field("raw", wire.Vec{wire.Nat8(0), wire.Nat8(255)}),
	}}
}

// withField returns a copy of rec with the named field replaced, or dropped
// when v is nil.
func withField(rec wire.Record, name string, v wire.Value) wire.Record {
	out := wire.Record{}
	for _, f := range rec.Fields {
		switch {
		case f.Name != name:
			out.Fields = append(out.Fields, f)
		case v != nil:
			out.Fields = append(out.Fields, field(name, v))
		}
	}
	return out
}

func node(value int64, next wire.Value, children ...wire.Value) wire.Record {
	return wire.Record{Fields: []wire.Field{
		field("value", wire.Int64(value)),
		field("children", wire.Vec(append([]wire.Value{}, children...))),
		field("next", wire.Opt{Value: next}),
	}}
}

func inline(tags ...string) wire.Record {
	vec := wire.Vec{}
	for _, t := range tags {
		vec = append(vec, wire.Text(t))
	}
	return wire.Record{Fields: []wire.Field{
		field("tags", vec),
		field("pos", wire.Tuple{wire.Nat16(7), wire.Int16(-7)}),
	}}
}

// ShapeCases lists well-formed round trips and ill-shaped arguments for the
// shapes module.
func ShapeCases() []ShapeCase {
	prims := SamplePrims()
	return []ShapeCase{
		echo("prims", "echoPrims", prims),
		echo("prims zero values", "echoPrims", wire.Record{Fields: []wire.Field{
			field("unit", wire.Null{}),
			field("ignored", wire.Reserved{}),
			field("flag", wire.Bool(false)),
			field("label", wire.Text("")),
			field("data", wire.Blob{}),
			field("owner", wire.Principal{}),
			field("big", wire.NewNat(0)),
			field("u8", wire.Nat8(0)),
			field("u16", wire.Nat16(0)),
			field("u32", wire.Nat32(0)),
			field("u64", wire.Nat64(0)),
			field("signed", wire.NewInt(0)),
			field("i8", wire.Int8(math.MaxInt8)),
			field("i16", wire.Int16(math.MaxInt16)),
			field("i32", wire.Int32(math.MaxInt32)),
			field("i64", wire.Int64(math.MaxInt64)),
			field("f32", wire.Float32(0)),
			field("f64", wire.Float64(0)),
			field("raw", wire.Vec{}),
		}}),
		echo("alias", "echoId", wire.Nat64(42)),
		echo("empty record", "echoBlank", wire.Record{}),
		echo("zero-arity tuple", "echoUnit", wire.Tuple{}),
		echo("tuple", "echoPair", wire.Tuple{wire.Int32(-7), wire.Text("seven")}),
		echo("recursive leaf", "echoNode", node(1, nil)),
		echo("recursive tree", "echoNode", node(1,
			node(5, nil),
			node(2, nil),
			node(3, node(4, nil), node(6, nil)),
		)),
		echo("variant float", "echoShape", wire.Variant{Tag: "circle", Value: wire.Float64(2.5)}),
		echo("variant inline record", "echoShape", wire.Variant{Tag: "square", Value: wire.Record{Fields: []wire.Field{
			field("side", wire.Float32(0.5)),
		}}}),
		echo("variant null", "echoShape", wire.Variant{Tag: "point", Value: wire.Null{}}),
		echo("nested vec opt", "echoMatrix", wire.Vec{
			wire.Vec{wire.Some(wire.Int8(-1)), wire.None},
			wire.Vec{},
		}),
		echo("empty matrix", "echoMatrix", wire.Vec{}),
		echo("func reference", "echoCallback", wire.Func{Principal: wire.Principal{1, 2, 3}, Method: "notify"}),
		echo("inline record", "echoInline", inline("a", "b")),
		echo("inline record empty vec", "echoInline", inline()),
		echo("opt none", "echoOptOpt", wire.None),
		echo("opt some none", "echoOptOpt", wire.Some(wire.None)),
		echo("opt some some", "echoOptOpt", wire.Some(wire.Some(wire.Text("x")))),

		{Name: "reserved discards payload", Method: "echoPrims",
			Args:  []wire.Value{withField(prims, "ignored", wire.Text("anything"))},
			Reply: prims},
		{Name: "extra record fields ignored", Method: "echoBlank",
			Args:  []wire.Value{wire.Record{Fields: []wire.Field{field("extra", wire.Bool(true))}}},
			Reply: wire.Record{}},
		{Name: "extra trailing args ignored", Method: "echoId",
			Args:  []wire.Value{wire.Nat64(5), wire.Text("extra")},
			Reply: wire.Nat64(5)},
		{Name: "two params", Method: "first",
			Args:  []wire.Value{wire.Nat64(9), wire.Text("b")},
			Reply: wire.Nat64(9)},

		traps("alias wrong kind", "echoId", wire.Text("nope")),
		traps("missing second arg", "first", wire.Nat64(1)),
		traps("second arg wrong kind", "first", wire.Nat64(1), wire.Nat64(2)),
		traps("no args", "echoPair"),
		traps("record field wrong kind", "echoPrims", withField(prims, "u8", wire.Nat16(1))),
		traps("record field missing", "echoPrims", withField(prims, "f64", nil)),
		traps("bytes element wrong kind", "echoPrims", withField(prims, "raw", wire.Vec{wire.Nat16(1)})),
		traps("unknown variant tag", "echoShape", wire.Variant{Tag: "hexagon", Value: wire.Null{}}),
		traps("variant payload wrong kind", "echoShape", wire.Variant{Tag: "point", Value: wire.Bool(true)}),
		traps("tuple arity", "echoPair", wire.Tuple{wire.Int32(1)}),
		traps("zero-arity tuple arity", "echoUnit", wire.Tuple{wire.Null{}}),
		traps("deep matrix element", "echoMatrix", wire.Vec{wire.Vec{wire.Some(wire.Text("x"))}}),
		traps("deep recursive field", "echoNode", node(1, nil, wire.Record{Fields: []wire.Field{
			field("value", wire.Text("x")),
			field("children", wire.Vec{}),
			field("next", wire.None),
		}})),
		traps("opt wrong kind", "echoOptOpt", wire.Text("x")),
		traps("func wrong kind", "echoCallback", wire.Text("x")),
		traps("record for tuple", "echoUnit", wire.Record{}),
		traps("empty is uninhabited", "never", wire.Null{}),
	}
}
