package marshal

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

func pointType() ir.Tuple {
	pt := ir.Tuple{Elems: []ir.TypeNode{ir.Primitive{Kind: ir.Int32}, ir.Primitive{Kind: ir.Int32}}, Inline: true}
	pt.Name = ir.MustInlineName(pt)
	return pt
}

func userGraph(t *testing.T) *ir.Graph {
	t.Helper()
	g, err := ir.BuildGraph(&ir.Program{Types: []ir.TypeNode{
		ir.Primitive{Kind: ir.Nat64, Alias: "UserId"},
		ir.Variant{Name: "Status", Members: []ir.Member{
			{Name: "active", Type: ir.Primitive{Kind: ir.Null}},
			{Name: "banned", Type: ir.Primitive{Kind: ir.Text}},
		}},
		ir.Func{Name: "Notify", Mode: ir.FuncOneway, Params: []ir.TypeNode{ir.Primitive{Kind: ir.Text}}},
		ir.Record{Name: "User", Members: []ir.Member{
			{Name: "id", Type: ir.Ref("UserId")},
			{Name: "name", Type: ir.Primitive{Kind: ir.Text}},
			{Name: "tags", Type: ir.Array{Elem: ir.Primitive{Kind: ir.Text}}},
			{Name: "avatar", Type: ir.Array{Elem: ir.Primitive{Kind: ir.Nat8}}},
			{Name: "status", Type: ir.Ref("Status")},
			{Name: "parent", Type: ir.Option{Elem: ir.Ref("User")}},
			{Name: "score", Type: ir.Primitive{Kind: ir.Float64}},
			{Name: "pos", Type: pointType()},
			{Name: "notify", Type: ir.Ref("Notify")},
			{Name: "balance", Type: ir.Primitive{Kind: ir.Nat}},
		}},
	}})
	require.NoError(t, err)
	return g
}

func sampleUser(id uint64, parent wire.Value) wire.Record {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	return wire.Record{Fields: []wire.Field{
		{Name: "id", Value: wire.Nat64(id)},
		{Name: "name", Value: wire.Text("ada")},
		{Name: "tags", Value: wire.Vec{wire.Text("a"), wire.Text("b")}},
		{Name: "avatar", Value: wire.Vec{wire.Nat8(0), wire.Nat8(255)}},
		{Name: "status", Value: wire.Variant{Tag: "banned", Value: wire.Text("spam")}},
		{Name: "parent", Value: wire.Opt{Value: parent}},
		{Name: "score", Value: wire.Float64(2.5)},
		{Name: "pos", Value: wire.Tuple{wire.Int32(-3), wire.Int32(4)}},
		{Name: "notify", Value: wire.Func{Principal: wire.Principal{1, 2}, Method: "ping"}},
		{Name: "balance", Value: wire.Nat{V: huge}},
	}}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	g := userGraph(t)
	user := sampleUser(2, sampleUser(1, nil))

	dyn, err := Encode(g, ir.Ref("User"), user)
	require.NoError(t, err)

	back, err := Decode(g, ir.Ref("User"), dyn)
	require.NoError(t, err)
	assert.True(t, wire.Equal(user, back), "got %s", wire.Format(back))

	require.NoError(t, Conform(g, ir.Ref("User"), back))
}

func TestEncodeShapes(t *testing.T) {
	g := userGraph(t)

	dyn, err := Encode(g, ir.Ref("User"), sampleUser(1, nil))
	require.NoError(t, err)
	obj := dyn.(*vm.Object)

	assert.Equal(t, []string{"id", "name", "tags", "avatar", "status", "parent", "score", "pos", "notify", "balance"}, obj.Keys())

	id, _ := obj.Get("id")
	assert.Equal(t, "1", id.(vm.BigInt).Big().String())

	avatar, _ := obj.Get("avatar")
	assert.Equal(t, vm.Bytes{0, 255}, avatar, "vec nat8 travels as a byte array")

	parent, _ := obj.Get("parent")
	assert.Equal(t, vm.Array{}, parent)

	status, _ := obj.Get("status")
	assert.Equal(t, []string{"banned"}, status.(*vm.Object).Keys())
}

func TestDecodeNarrowIntegerOutOfRange(t *testing.T) {
	g := userGraph(t)

	_, err := Decode(g, ir.Primitive{Kind: ir.Nat8}, vm.Number(300))
	require.Error(t, err)
	assert.True(t, trap.IsShapeMismatch(err))
	assert.Contains(t, err.Error(), "out of range")

	_, err = Decode(g, ir.Primitive{Kind: ir.Int8}, vm.Number(1.5))
	assert.True(t, trap.IsShapeMismatch(err), "fractions are not integers")

	_, err = Decode(g, ir.Ref("UserId"), vm.NewBigInt(-1))
	assert.True(t, trap.IsShapeMismatch(err))

	got, err := Decode(g, ir.Primitive{Kind: ir.Nat8}, vm.Number(255))
	require.NoError(t, err)
	assert.Equal(t, wire.Nat8(255), got)
}

func TestDecodeFloat32OutOfRange(t *testing.T) {
	g := userGraph(t)
	f32 := ir.Primitive{Kind: ir.Float32}

	for _, n := range []float64{1e300, -1e39} {
		_, err := Decode(g, f32, vm.Number(n))
		require.Error(t, err, "%g", n)
		assert.True(t, trap.IsShapeMismatch(err))
		assert.Contains(t, err.Error(), "out of range")
	}

	got, err := Decode(g, f32, vm.Number(math.Inf(-1)))
	require.NoError(t, err, "infinities are representable")
	assert.True(t, math.IsInf(float64(got.(wire.Float32)), -1))

	got, err = Decode(g, f32, vm.Number(math.MaxFloat32))
	require.NoError(t, err)
	assert.Equal(t, wire.Float32(math.MaxFloat32), got)
}

func TestEncodeReservedIgnoresPayload(t *testing.T) {
	g := userGraph(t)

	v, err := Encode(g, ir.Primitive{Kind: ir.Reserved}, wire.Text("anything"))
	require.NoError(t, err)
	assert.Equal(t, vm.Null{}, v)

	_, err = Encode(g, ir.Primitive{Kind: ir.Null}, wire.Reserved{})
	assert.True(t, trap.IsInternal(err), "null only encodes null")
}

func TestDecodePrimitiveKindMismatch(t *testing.T) {
	g := userGraph(t)

	tests := []struct {
		kind ir.PrimitiveKind
		v    vm.Value
	}{
		{ir.Text, vm.Number(1)},
		{ir.Bool, vm.String("true")},
		{ir.Null, vm.Undefined{}},
		{ir.Nat64, vm.Number(1)},
		{ir.Int32, vm.NewBigInt(1)},
		{ir.Blob, vm.Array{}},
		{ir.Principal, vm.String("aaaaa-aa")},
		{ir.Empty, vm.Null{}},
	}
	for _, tt := range tests {
		_, err := Decode(g, ir.Primitive{Kind: tt.kind}, tt.v)
		assert.True(t, trap.IsShapeMismatch(err), "%s from %s", tt.kind, vm.Describe(tt.v))
	}

	got, err := Decode(g, ir.Primitive{Kind: ir.Reserved}, vm.String("anything"))
	require.NoError(t, err)
	assert.Equal(t, wire.Reserved{}, got)
}

func TestDecodeVariantWithoutDeclaredTag(t *testing.T) {
	g := userGraph(t)

	_, err := Decode(g, ir.Ref("Status"), vm.NewObject(vm.Prop{Key: "deleted", Value: vm.Null{}}))
	require.Error(t, err)
	assert.True(t, trap.IsShapeMismatch(err))
	assert.Contains(t, err.Error(), "[active, banned]")
}

func TestDecodeVariantFirstDeclaredTagWins(t *testing.T) {
	g := userGraph(t)

	v := vm.NewObject(
		vm.Prop{Key: "extra", Value: vm.Number(1)},
		vm.Prop{Key: "banned", Value: vm.String("x")},
		vm.Prop{Key: "active", Value: vm.Null{}},
	)
	got, err := Decode(g, ir.Ref("Status"), v)
	require.NoError(t, err)
	assert.Equal(t, wire.Variant{Tag: "active", Value: wire.Null{}}, got)
}

func TestDecodeVariantUnitPayloadMustBeNull(t *testing.T) {
	g := userGraph(t)

	_, err := Decode(g, ir.Ref("Status"), vm.NewObject(vm.Prop{Key: "active", Value: vm.Bool(true)}))
	require.Error(t, err)
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, "active", te.Path)
}

func TestDecodeRecordMissingFieldAndPath(t *testing.T) {
	g := userGraph(t)

	dyn, err := Encode(g, ir.Ref("User"), sampleUser(1, nil))
	require.NoError(t, err)
	obj := dyn.(*vm.Object)

	obj.Delete("name")
	_, err = Decode(g, ir.Ref("User"), obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing field "name"`)

	obj.Set("name", vm.String("ok"))
	obj.Set("tags", vm.Array{vm.String("a"), vm.Number(7)})
	_, err = Decode(g, ir.Ref("User"), obj)
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, "tags[1]", te.Path)
	assert.Equal(t, "text", te.Expected)
}

func TestDecodeOptionForms(t *testing.T) {
	g := userGraph(t)
	opt := ir.Option{Elem: ir.Primitive{Kind: ir.Text}}

	got, err := Decode(g, opt, vm.Array{})
	require.NoError(t, err)
	assert.Equal(t, wire.None, got)

	got, err = Decode(g, opt, vm.Array{vm.String("x")})
	require.NoError(t, err)
	assert.True(t, wire.Equal(wire.Some(wire.Text("x")), got))

	_, err = Decode(g, opt, vm.Null{})
	assert.True(t, trap.IsShapeMismatch(err))
	_, err = Decode(g, opt, vm.Array{vm.String("x"), vm.String("y")})
	assert.True(t, trap.IsShapeMismatch(err))
}

func TestDecodeTupleArity(t *testing.T) {
	g := userGraph(t)

	_, err := Decode(g, pointType(), vm.Array{vm.Number(1)})
	assert.True(t, trap.IsShapeMismatch(err))
}

func TestDecodeFuncReferenceIsOpaque(t *testing.T) {
	g := userGraph(t)

	got, err := Decode(g, ir.Ref("Notify"), vm.Array{vm.Principal{9}, vm.String("hook")})
	require.NoError(t, err)
	assert.True(t, wire.Equal(wire.Func{Principal: wire.Principal{9}, Method: "hook"}, got))

	_, err = Decode(g, ir.Ref("Notify"), vm.String("hook"))
	assert.True(t, trap.IsShapeMismatch(err))
}

func TestEncodeFailureIsInternal(t *testing.T) {
	g := userGraph(t)

	_, err := Encode(g, ir.Primitive{Kind: ir.Text}, wire.Nat8(1))
	assert.True(t, trap.IsInternal(err))

	_, err = Encode(g, ir.Ref("Status"), wire.Variant{Tag: "ghost", Value: wire.Null{}})
	assert.True(t, trap.IsInternal(err))

	_, err = Encode(g, ir.Ref("Ghost"), wire.Null{})
	assert.True(t, trap.IsInternal(err), "unresolvable reference")
}

func TestConformRejectsMismatch(t *testing.T) {
	g := userGraph(t)

	err := Conform(g, ir.Ref("Status"), wire.Variant{Tag: "ghost", Value: wire.Null{}})
	assert.True(t, trap.IsShapeMismatch(err))

	err = Conform(g, ir.Array{Elem: ir.Primitive{Kind: ir.Int}}, wire.Vec{wire.NewInt(1), wire.Text("x")})
	te, ok := trap.As(err)
	require.True(t, ok)
	assert.Equal(t, "[1]", te.Path)

	extra := sampleUser(1, nil)
	extra.Fields = append(extra.Fields, wire.Field{Name: "unknown", Value: wire.Bool(true)})
	assert.NoError(t, Conform(g, ir.Ref("User"), extra), "extra fields are ignored")
}
