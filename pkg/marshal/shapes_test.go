package marshal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/internal/compiler"
	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/internal/testutil"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/wire"
)

func shapesGraph(t *testing.T) *ir.Graph {
	t.Helper()
	root, err := testutil.ModuleRoot()
	require.NoError(t, err)
	prog, err := compiler.CompileDir(filepath.Join(root, testutil.ShapesModule))
	require.NoError(t, err)
	require.Empty(t, compiler.Validate(prog))
	g, err := ir.BuildGraph(prog)
	require.NoError(t, err)
	return g
}

// echoCall runs a method whose body returns its first argument.
func echoCall(g *ir.Graph, m ir.Method, args []wire.Value) ([]byte, error) {
	raw, err := wire.MarshalArgs(args...)
	if err != nil {
		return nil, err
	}
	vals, err := ExtractArgs(g, m.Params, raw)
	if err != nil {
		return nil, err
	}
	return EncodeResult(g, m.Return, vals[0])
}

func TestShapesThroughArgsAndResult(t *testing.T) {
	g := shapesGraph(t)

	for _, tc := range testutil.ShapeCases() {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			m, ok := g.Method(tc.Method)
			require.True(t, ok, "method %s", tc.Method)

			reply, err := echoCall(g, m, tc.Args)
			if tc.Reply == nil {
				require.Error(t, err)
				assert.True(t, trap.IsShapeMismatch(err), "got %v", err)
				return
			}
			require.NoError(t, err)

			got, err := wire.UnmarshalArgs(reply)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, wire.Equal(tc.Reply, got[0]), "reply %s, want %s", wire.Format(got[0]), wire.Format(tc.Reply))
		})
	}
}

func TestShapesDecodeInvertsEncode(t *testing.T) {
	g := shapesGraph(t)

	for _, tc := range testutil.ShapeCases() {
		tc := tc
		if !tc.Echo() {
			continue
		}
		t.Run(tc.Name, func(t *testing.T) {
			m, ok := g.Method(tc.Method)
			require.True(t, ok)
			typ := m.Params[0].Type

			v, err := Encode(g, typ, tc.Args[0])
			require.NoError(t, err)
			back, err := Decode(g, typ, v)
			require.NoError(t, err)
			assert.True(t, wire.Equal(tc.Args[0], back), "decoded %s", wire.Format(back))
		})
	}
}

func TestShapesDeepPathNamesField(t *testing.T) {
	g := shapesGraph(t)
	m, _ := g.Method("echoNode")

	for _, tc := range testutil.ShapeCases() {
		if tc.Name != "deep recursive field" {
			continue
		}
		_, err := echoCall(g, m, tc.Args)
		te, ok := trap.As(err)
		require.True(t, ok)
		assert.Equal(t, "children[0].value", te.Path)
		assert.Equal(t, `param 0 "v"`, te.Param)
	}
}
