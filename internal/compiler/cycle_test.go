package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/internal/ir"
)

func TestAnalyzeCyclesAcyclic(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Primitive{Kind: ir.Nat64, Alias: "Id"},
		ir.Record{Name: "User", Members: []ir.Member{{Name: "id", Type: ir.Ref("Id")}}},
		ir.TypeRef{Alias: "Users", Aliased: ir.Array{Elem: ir.Ref("User")}},
	}}

	warnings := AnalyzeCycles(prog)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeCyclesRecursionThroughOption(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Record{Name: "Node", Members: []ir.Member{{Name: "next", Type: ir.Option{Elem: ir.Ref("Node")}}}},
	}}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
	assert.Equal(t, []string{"Node", "Node"}, warnings[0].Path)
	assert.Equal(t, "recursive type: Node → Node", warnings[0].Message)
}

func TestAnalyzeCyclesMutualRecursionThroughVariant(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Variant{Name: "Expr", Members: []ir.Member{
			{Name: "lit", Type: ir.Primitive{Kind: ir.Int}},
			{Name: "call", Type: ir.Ref("Call")},
		}},
		ir.Record{Name: "Call", Members: []ir.Member{
			{Name: "fn", Type: ir.Primitive{Kind: ir.Text}},
			{Name: "args", Type: ir.Ref("Args")},
		}},
		ir.TypeRef{Alias: "Args", Aliased: ir.Array{Elem: ir.Ref("Expr")}},
	}}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, LevelInfo, warnings[0].Level)
	assert.Equal(t, []string{"Expr", "Call", "Args", "Expr"}, warnings[0].Path)
}

func TestAnalyzeCyclesAliasCycle(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.TypeRef{Alias: "A", Aliased: ir.Ref("B")},
		ir.TypeRef{Alias: "B", Aliased: ir.Ref("C")},
		ir.TypeRef{Alias: "C", Aliased: ir.Ref("A")},
	}}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1, "reported once even though every graph contains it")
	assert.Equal(t, LevelError, warnings[0].Level)
	assert.Equal(t, ErrAliasCycle, warnings[0].Code)
	assert.Equal(t, []string{"A", "B", "C", "A"}, warnings[0].Path)
}

func TestAnalyzeCyclesDirectContainment(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Record{Name: "Outer", Members: []ir.Member{
			{Name: "pair", Type: ir.Tuple{Elems: []ir.TypeNode{ir.Ref("Alias")}, Inline: true}},
		}},
		ir.TypeRef{Alias: "Alias", Aliased: ir.Ref("Outer")},
	}}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, ErrInfiniteType, warnings[0].Code)
	assert.Equal(t, "infinitely sized type: Outer → Alias → Outer", warnings[0].Message)
}

func TestAnalyzeCyclesIgnoresUnknownRefs(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Record{Name: "R", Members: []ir.Member{{Name: "x", Type: ir.Ref("Unknown")}}},
	}}
	assert.Empty(t, AnalyzeCycles(prog))
}

func TestAnalyzeCyclesDeterministic(t *testing.T) {
	prog := &ir.Program{Types: []ir.TypeNode{
		ir.Record{Name: "B", Members: []ir.Member{{Name: "a", Type: ir.Option{Elem: ir.Ref("A")}}}},
		ir.Record{Name: "A", Members: []ir.Member{{Name: "b", Type: ir.Array{Elem: ir.Ref("B")}}}},
		ir.Record{Name: "Self", Members: []ir.Member{{Name: "s", Type: ir.Option{Elem: ir.Ref("Self")}}}},
	}}

	first := AnalyzeCycles(prog)
	require.Len(t, first, 2)
	assert.Equal(t, []string{"B", "A", "B"}, first[0].Path)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeCycles(prog))
	}
}
