package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

var addParams = []ir.Param{
	{Name: "a", Type: ir.Primitive{Kind: ir.Int}},
	{Name: "b", Type: ir.Primitive{Kind: ir.Int}},
}

func TestExtractArgs(t *testing.T) {
	g := userGraph(t)
	raw, err := wire.MarshalArgs(wire.NewInt(2), wire.NewInt(3))
	require.NoError(t, err)

	args, err := ExtractArgs(g, addParams, raw)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, "2", args[0].(vm.BigInt).Big().String())
	assert.Equal(t, "3", args[1].(vm.BigInt).Big().String())
}

func TestExtractArgsShortCircuitsOnFirstFailure(t *testing.T) {
	g := userGraph(t)
	raw, err := wire.MarshalArgs(wire.NewInt(2), wire.Text("three"))
	require.NoError(t, err)

	_, err = ExtractArgs(g, addParams, raw)
	require.Error(t, err)
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, trap.ShapeMismatch, te.Kind)
	assert.Equal(t, `param 1 "b"`, te.Param)
	assert.Equal(t, `Uncaught param 1 "b": expected int, found text`, te.TrapMessage())
}

func TestExtractArgsMissingArgument(t *testing.T) {
	g := userGraph(t)
	raw, err := wire.MarshalArgs(wire.NewInt(2))
	require.NoError(t, err)

	_, err = ExtractArgs(g, addParams, raw)
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, `param 1 "b"`, te.Param)
	assert.Equal(t, "no argument", te.Found)
}

func TestExtractArgsReservedDiscardsAnyValue(t *testing.T) {
	g := userGraph(t)
	params := []ir.Param{{Name: "r", Type: ir.Primitive{Kind: ir.Reserved}}}

	for _, w := range []wire.Value{wire.Text("anything"), wire.Nat8(7), wire.Reserved{}, wire.Null{}} {
		raw, err := wire.MarshalArgs(w)
		require.NoError(t, err)

		args, err := ExtractArgs(g, params, raw)
		require.NoError(t, err, "reserved from %s", wire.KindOf(w))
		assert.Equal(t, []vm.Value{vm.Null{}}, args)
	}
}

func TestExtractArgsMalformedBytes(t *testing.T) {
	g := userGraph(t)

	_, err := ExtractArgs(g, addParams, []byte{0xff, 0xff})
	require.Error(t, err)
	assert.True(t, trap.IsShapeMismatch(err))
	var de *wire.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestEncodeResult(t *testing.T) {
	g := userGraph(t)

	data, err := EncodeResult(g, ir.Primitive{Kind: ir.Int}, vm.NewBigInt(5))
	require.NoError(t, err)
	vals, err := wire.UnmarshalArgs(data)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.True(t, wire.Equal(wire.NewInt(5), vals[0]))

	data, err = EncodeResult(g, nil, vm.Undefined{})
	require.NoError(t, err)
	vals, err = wire.UnmarshalArgs(data)
	require.NoError(t, err)
	assert.Empty(t, vals)

	_, err = EncodeResult(g, ir.Primitive{Kind: ir.Int}, vm.Number(5))
	assert.True(t, trap.IsShapeMismatch(err), "a number is not a bigint")
}
