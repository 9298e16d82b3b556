package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/internal/testutil"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

var intType = ir.Primitive{Kind: ir.Int}

func testGraph(t *testing.T) *ir.Graph {
	t.Helper()
	two := []ir.Param{{Name: "a", Type: intType}, {Name: "b", Type: intType}}
	g, err := ir.BuildGraph(&ir.Program{
		Methods: []ir.Method{
			{Name: "add", Kind: ir.Query, Params: two, Return: intType},
			{Name: "boom", Kind: ir.Update, Return: intType},
			{Name: "later", Kind: ir.Update, Return: intType, Async: true},
			{Name: "never", Kind: ir.Update, Return: intType, Async: true},
			{Name: "rejects", Kind: ir.Update, Return: intType, Async: true},
			{Name: "wrongShape", Kind: ir.Query, Return: intType},
			{Name: "reset", Kind: ir.Update},
			{Name: "secret", Kind: ir.Query, Return: intType, Guard: "onlyOwner"},
			{Name: "reenter", Kind: ir.Update, Return: intType},
			{Name: "jobThrows", Kind: ir.Update, Return: intType, Async: true},
		},
		Guards: []string{"onlyOwner"},
	})
	require.NoError(t, err)
	return g
}

type fixture struct {
	realm  *vm.Realm
	engine *Engine
	owner  bool
	inner  *Outcome
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{realm: vm.NewRealm(), owner: true}
	r := f.realm

	r.Define("add", func(_ *vm.Realm, args []vm.Value) (vm.Value, error) {
		a, b := args[0].(vm.BigInt), args[1].(vm.BigInt)
		return vm.BigInt{V: new(big.Int).Add(a.Big(), b.Big())}, nil
	})
	r.Define("boom", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		return nil, vm.Throw(vm.String("boom"))
	})
	r.Define("later", func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		p, resolve, _ := r.NewPromise()
		r.Enqueue(func() error {
			resolve(vm.NewBigInt(42))
			return nil
		})
		return p, nil
	})
	r.Define("never", func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		p, _, _ := r.NewPromise()
		r.Enqueue(func() error { return nil })
		return p, nil
	})
	r.Define("rejects", func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		return r.Then(r.Resolved(vm.Null{}), func(vm.Value) (vm.Value, error) {
			return nil, vm.ThrowError("Error", "async failure")
		}, nil), nil
	})
	r.Define("wrongShape", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		return vm.String("five"), nil
	})
	r.Define("reset", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		return vm.Undefined{}, nil
	})
	r.Define("secret", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		return vm.NewBigInt(7), nil
	})
	r.Define("onlyOwner", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		if f.owner {
			return vm.NewObject(vm.Prop{Key: "ok", Value: vm.Null{}}), nil
		}
		return vm.NewObject(vm.Prop{Key: "err", Value: vm.String("caller is not the owner")}), nil
	})
	r.Define("reenter", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		raw, err := wire.MarshalArgs(wire.NewInt(1), wire.NewInt(1))
		if err != nil {
			return nil, err
		}
		f.inner = f.engine.Call(context.Background(), testutil.NewRecordingHost(raw), "add")
		return vm.NewBigInt(0), nil
	})
	r.Define("jobThrows", func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		p, _, _ := r.NewPromise()
		r.Enqueue(func() error { return vm.ThrowError("RangeError", "from job") })
		return p, nil
	})

	base := []Option{WithCallIDs(testutil.NewSequentialIDs("call")), WithClock(testutil.NewDeterministicClock())}
	eng, err := New(r, NewBindings(testGraph(t)), append(base, opts...)...)
	require.NoError(t, err)
	f.engine = eng
	return f
}

func noArgs(t *testing.T) *testutil.RecordingHost {
	t.Helper()
	raw, err := wire.MarshalArgs()
	require.NoError(t, err)
	return testutil.NewRecordingHost(raw)
}

func decodeReply(t *testing.T, data []byte) wire.Value {
	t.Helper()
	vals, err := wire.UnmarshalArgs(data)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	return vals[0]
}

func TestCallSuccessPath(t *testing.T) {
	f := newFixture(t)
	raw, err := wire.MarshalArgs(wire.NewInt(2), wire.NewInt(3))
	require.NoError(t, err)
	host := testutil.NewRecordingHost(raw)

	out := f.engine.Call(context.Background(), host, "add")

	assert.Equal(t, StateDone, out.Final())
	assert.Equal(t, []State{StateDecoding, StateInvoking, StateEncoding, StateDone}, out.States)
	assert.Nil(t, out.Err)
	assert.Equal(t, "call-1", out.CallID)
	assert.Equal(t, int64(1), out.Seq)

	require.Len(t, host.Replies(), 1)
	assert.Empty(t, host.Traps())
	assert.True(t, wire.Equal(wire.NewInt(5), decodeReply(t, host.Replies()[0])))
	assert.False(t, f.realm.Busy(), "realm released after the call")
}

func TestCallExceptionPath(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "boom")

	assert.Equal(t, StateTrapped, out.Final())
	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InterpreterException, out.Err.Kind)
	require.Len(t, host.Traps(), 1)
	assert.Contains(t, host.Traps()[0], "Uncaught boom")
	assert.Empty(t, host.Replies())
}

func TestCallAsyncSettles(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "later")

	assert.Equal(t, []State{StateDecoding, StateInvoking, StateDraining, StateEncoding, StateDone}, out.States)
	require.Len(t, host.Replies(), 1)
	assert.True(t, wire.Equal(wire.NewInt(42), decodeReply(t, host.Replies()[0])))
}

func TestCallNeverSettlingTrapsInsteadOfHanging(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	f := newFixture(t, WithLogger(logger))
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "never")

	assert.Equal(t, StateTrapped, out.Final())
	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InternalInconsistency, out.Err.Kind)
	assert.Equal(t, []string{"Uncaught internal inconsistency: pending result never settled"}, host.Traps())
	assert.Contains(t, logs.String(), `"defect":true`)
	assert.Contains(t, logs.String(), `"state":"draining"`)
}

func TestCallRejectedPromise(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "rejects")

	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InterpreterException, out.Err.Kind)
	assert.Equal(t, []string{"Uncaught Error: async failure"}, host.Traps())
}

func TestCallJobErrorIsException(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "jobThrows")

	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InterpreterException, out.Err.Kind)
	assert.Equal(t, []string{"Uncaught RangeError: from job"}, host.Traps())
}

func TestCallDecodeFailure(t *testing.T) {
	f := newFixture(t)
	raw, err := wire.MarshalArgs(wire.NewInt(2), wire.Text("3"))
	require.NoError(t, err)
	host := testutil.NewRecordingHost(raw)

	out := f.engine.Call(context.Background(), host, "add")

	assert.Equal(t, []State{StateDecoding, StateTrapped}, out.States)
	require.NotNil(t, out.Err)
	assert.Equal(t, trap.ShapeMismatch, out.Err.Kind)
	assert.Contains(t, host.Traps()[0], `param 1 "b"`)
}

func TestCallResultShapeMismatch(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "wrongShape")

	assert.Equal(t, StateTrapped, out.Final())
	require.NotNil(t, out.Err)
	assert.Equal(t, trap.ShapeMismatch, out.Err.Kind)
	assert.Equal(t, []string{`Uncaught expected int, found string "five"`}, host.Traps())
}

func TestCallWithoutReturnRepliesEmptyTuple(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "reset")

	assert.Equal(t, StateDone, out.Final())
	vals, err := wire.UnmarshalArgs(host.Replies()[0])
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestCallGuard(t *testing.T) {
	f := newFixture(t)

	allowed := noArgs(t)
	out := f.engine.Call(context.Background(), allowed, "secret")
	assert.Equal(t, StateDone, out.Final())

	f.owner = false
	denied := noArgs(t)
	out = f.engine.Call(context.Background(), denied, "secret")
	assert.Equal(t, []State{StateDecoding, StateTrapped}, out.States)
	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InterpreterException, out.Err.Kind)
	assert.Equal(t, []string{"Uncaught caller is not the owner"}, denied.Traps())
}

func TestCallMalformedGuardResult(t *testing.T) {
	f := newFixture(t)
	f.realm.Define("onlyOwner", func(*vm.Realm, []vm.Value) (vm.Value, error) {
		return vm.NewObject(vm.Prop{Key: "ok", Value: vm.Bool(true)}), nil
	})
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "secret")

	require.NotNil(t, out.Err)
	assert.Equal(t, trap.ShapeMismatch, out.Err.Kind)
	assert.Equal(t, []string{"Uncaught value is not null"}, host.Traps())
}

func TestCallReentrancyRejected(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "reenter")

	assert.Equal(t, StateDone, out.Final(), "outer call is unaffected")
	require.NotNil(t, f.inner)
	assert.Equal(t, StateTrapped, f.inner.Final())
	require.NotNil(t, f.inner.Err)
	assert.Equal(t, trap.InternalInconsistency, f.inner.Err.Kind)
	assert.Contains(t, f.inner.Err.Detail, "reentrant call rejected")
}

func TestCallUnknownMethod(t *testing.T) {
	f := newFixture(t)
	host := noArgs(t)

	out := f.engine.Call(context.Background(), host, "missing")

	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InternalInconsistency, out.Err.Kind)
	assert.Equal(t, 1, host.Outcomes())
	assert.False(t, f.realm.Busy())
}

func TestCallReleasesQueuedJobs(t *testing.T) {
	f := newFixture(t)
	f.realm.Define("add", func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		r.Enqueue(func() error { return nil })
		return vm.NewBigInt(0), nil
	})
	raw, err := wire.MarshalArgs(wire.NewInt(0), wire.NewInt(0))
	require.NoError(t, err)

	out := f.engine.Call(context.Background(), testutil.NewRecordingHost(raw), "add")

	assert.Equal(t, StateDone, out.Final())
	assert.Equal(t, 1, out.DroppedJobs)
	assert.Equal(t, 0, f.realm.Pending())
}

func TestEveryCallHasExactlyOneOutcome(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"boom", "later", "never", "rejects", "wrongShape", "reset", "missing"} {
		host := noArgs(t)
		f.engine.Call(context.Background(), host, name)
		assert.Equal(t, 1, host.Outcomes(), name)
		assert.False(t, f.realm.Busy(), name)
	}
}

func TestEncoderPanicBecomesInternalTrap(t *testing.T) {
	realm := vm.NewRealm()
	realm.Define("f", func(*vm.Realm, []vm.Value) (vm.Value, error) { return vm.Null{}, nil })
	eng, err := New(realm, []Binding{{
		Name:         "f",
		Kind:         "query",
		DecodeArgs:   func([]byte) ([]vm.Value, error) { return nil, nil },
		EncodeResult: func(vm.Value) ([]byte, error) { panic("generator bug") },
	}}, WithCallIDs(NewFixedGenerator("only")))
	require.NoError(t, err)

	host := testutil.NewRecordingHost(nil)
	out := eng.Call(context.Background(), host, "f")

	require.NotNil(t, out.Err)
	assert.Equal(t, trap.InternalInconsistency, out.Err.Kind)
	assert.Equal(t, "only", out.CallID)
	assert.Contains(t, host.Traps()[0], "generator bug")
}

func TestNewRejectsDuplicateBindings(t *testing.T) {
	b := Binding{
		Name:         "x",
		DecodeArgs:   func([]byte) ([]vm.Value, error) { return nil, nil },
		EncodeResult: func(vm.Value) ([]byte, error) { return nil, nil },
	}
	_, err := New(vm.NewRealm(), []Binding{b, b})
	assert.Error(t, err)

	_, err = New(vm.NewRealm(), []Binding{{Name: "y"}})
	assert.Error(t, err)
}

func TestMethodsAndBindingLookup(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "add", f.engine.Methods()[0])

	b, ok := f.engine.Binding("secret")
	require.True(t, ok)
	assert.Equal(t, "onlyOwner", b.Guard)
	assert.Equal(t, "query", b.Kind)
}
