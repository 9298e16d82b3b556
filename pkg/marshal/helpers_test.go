package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

func decodeText(v vm.Value) (wire.Text, error) {
	return Prim[wire.Text](v, "text")
}

func encodeText(t wire.Text) vm.Value {
	return PrimToVM(t, "text")
}

func TestPrimHelpers(t *testing.T) {
	n, err := Prim[wire.Nat16](vm.Number(65535), "nat16")
	require.NoError(t, err)
	assert.Equal(t, wire.Nat16(65535), n)

	_, err = Prim[wire.Nat16](vm.Number(65536), "nat16")
	assert.True(t, trap.IsShapeMismatch(err))

	assert.Equal(t, vm.Number(7), PrimToVM(wire.Int8(7), "int8"))
	assert.Panics(t, func() { PrimToVM[wire.Value](wire.Text("x"), "bool") })

	r, err := PrimFromWire[wire.Reserved](wire.Text("ignored"), "reserved")
	require.NoError(t, err)
	assert.Equal(t, wire.Reserved{}, r)

	_, err = PrimFromWire[wire.Text](wire.Bool(true), "text")
	assert.True(t, trap.IsShapeMismatch(err))
}

func TestVecAndOptHelpersRoundTrip(t *testing.T) {
	xs := []wire.Text{"a", "b"}
	dyn := EncodeVec(xs, encodeText)
	back, err := DecodeVec(dyn, "vec text", decodeText)
	require.NoError(t, err)
	assert.Equal(t, xs, back)

	_, err = DecodeVec(vm.Array{vm.String("a"), vm.Bool(true)}, "vec text", decodeText)
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, "[1]", te.Path)

	s := wire.Text("x")
	opt, err := DecodeOpt(EncodeOpt(&s, encodeText), "opt text", decodeText)
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, s, *opt)

	none, err := DecodeOpt(EncodeOpt[wire.Text](nil, encodeText), "opt text", decodeText)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestBytesVecHelpers(t *testing.T) {
	fromBytes, err := DecodeBytesVec(vm.Bytes{1, 2})
	require.NoError(t, err)
	fromArray, err := DecodeBytesVec(vm.Array{vm.Number(1), vm.Number(2)})
	require.NoError(t, err)
	assert.Equal(t, fromBytes, fromArray)
	assert.Equal(t, vm.Bytes{1, 2}, EncodeBytesVec(fromBytes))
}

func TestWireHelpers(t *testing.T) {
	toWire := func(t wire.Text) wire.Value { return t }
	fromWire := func(w wire.Value) (wire.Text, error) { return PrimFromWire[wire.Text](w, "text") }

	w := VecToWire([]wire.Text{"a"}, toWire)
	xs, err := VecFromWire(w, "vec text", fromWire)
	require.NoError(t, err)
	assert.Equal(t, []wire.Text{"a"}, xs)

	_, err = VecFromWire(wire.Text("a"), "vec text", fromWire)
	assert.True(t, trap.IsShapeMismatch(err))

	o := OptToWire[wire.Text](nil, toWire)
	p, err := OptFromWire(o, "opt text", fromWire)
	require.NoError(t, err)
	assert.Nil(t, p)

	rec := wire.Record{Fields: []wire.Field{{Name: "a", Value: wire.Bool(true)}}}
	_, err = WireField(rec, "R", "b")
	assert.True(t, trap.IsShapeMismatch(err))

	_, err = WireTuple(wire.Tuple{wire.Null{}}, "T", 2)
	assert.True(t, trap.IsShapeMismatch(err))

	err = UnknownTag("V", "x", "a", "b")
	assert.True(t, trap.IsShapeMismatch(err))
	assert.Equal(t, `expected variant V with one of tags [a, b], found tag "x"`, err.(*trap.Error).Body())
}

func TestObjectHelpers(t *testing.T) {
	obj, err := Object(vm.NewObject(vm.Prop{Key: "a", Value: vm.Null{}}), "R")
	require.NoError(t, err)

	_, err = Field(obj, "R", "a")
	assert.NoError(t, err)
	_, err = Field(obj, "R", "b")
	assert.True(t, trap.IsShapeMismatch(err))

	tag, payload, err := Tag(obj, "V", "z", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", tag)
	assert.Equal(t, vm.Null{}, payload)

	_, _, err = Tag(obj, "V", "z")
	assert.True(t, trap.IsShapeMismatch(err))

	_, err = Elems(vm.Array{vm.Null{}}, "T", 2)
	assert.True(t, trap.IsShapeMismatch(err))

	f, err := FuncRef(FuncToVM(wire.Func{Principal: wire.Principal{1}, Method: "m"}))
	require.NoError(t, err)
	assert.Equal(t, "m", f.Method)

	err = At(AtIndex(trap.Mismatch("x", "y"), 2), "items")
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, "items[2]", te.Path)
}
