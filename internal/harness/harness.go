package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cangen/internal/compiler"
	"github.com/roach88/cangen/internal/ir"
	"github.com/roach88/cangen/internal/testutil"
	"github.com/roach88/cangen/pkg/engine"
	"github.com/roach88/cangen/pkg/marshal"
	"github.com/roach88/cangen/pkg/stable"
	"github.com/roach88/cangen/pkg/vm"
	"github.com/roach88/cangen/pkg/wire"
)

// Harness runs one scenario against a fresh realm, engine and in-memory
// stable store.
type Harness struct {
	graph  *ir.Graph
	store  *stable.Store
	realm  *vm.Realm
	engine *engine.Engine
	logger *slog.Logger

	// step is the call step currently executing.
	step *CallStep

	// scriptErr holds a scripting defect raised inside a realm function.
	scriptErr error
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Load compiles and validates the interface in dir.
func Load(dir string) (*ir.Graph, error) {
	prog, err := compiler.CompileDir(dir)
	if err != nil {
		return nil, fmt.Errorf("compile interface %s: %w", dir, err)
	}
	if errs := compiler.Validate(prog); len(errs) > 0 {
		return nil, fmt.Errorf("interface %s: %w", dir, errs[0])
	}
	return ir.BuildGraph(prog)
}

// Run executes a scenario and returns the result.
//
// Each run uses its own in-memory database, a deterministic clock and
// sequential call ids, so identical scenarios give identical results.
// The returned error reports scenario defects; failed expectations are
// recorded in the Result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	g, err := Load(s.Interface)
	if err != nil {
		return nil, err
	}

	st, err := stable.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		graph:  g,
		store:  st,
		realm:  vm.NewRealm(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := stable.Bind(ctx, h.realm, st, g.StableMaps(), g); err != nil {
		return nil, fmt.Errorf("bind stable maps: %w", err)
	}
	for _, guard := range g.Guards() {
		h.realm.Define(guard, h.guard)
	}
	for _, m := range g.Methods() {
		h.realm.Define(m.Name, h.body(m))
	}

	h.engine, err = engine.New(h.realm, engine.NewBindings(g),
		engine.WithCallIDs(testutil.NewSequentialIDs("call")),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i := range s.Calls {
		rec, err := h.call(ctx, &s.Calls[i])
		if err != nil {
			return nil, fmt.Errorf("calls[%d] %s: %w", i, s.Calls[i].Method, err)
		}
		result.Calls = append(result.Calls, rec)
		checkExpect(result, i, s.Calls[i].Expect, rec)
	}

	for i, a := range s.Assertions {
		if err := h.assert(ctx, result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return result, nil
}

func (h *Harness) call(ctx context.Context, step *CallStep) (CallRecord, error) {
	m, ok := h.graph.Method(step.Method)
	if !ok {
		return CallRecord{}, fmt.Errorf("unknown method")
	}
	if len(step.Args) > len(m.Params) {
		return CallRecord{}, fmt.Errorf("%d args for %d params", len(step.Args), len(m.Params))
	}

	// Missing trailing args are legal and exercise argument extraction.
	args := make([]wire.Value, len(step.Args))
	for i := range step.Args {
		w, err := WireValue(h.graph, m.Params[i].Type, &step.Args[i])
		if err != nil {
			return CallRecord{}, fmt.Errorf("arg %d: %w", i, err)
		}
		args[i] = w
	}
	raw, err := wire.MarshalArgs(args...)
	if err != nil {
		return CallRecord{}, err
	}

	h.step, h.scriptErr = step, nil
	host := testutil.NewRecordingHost(raw)
	out := h.engine.Call(ctx, host, step.Method)
	if h.scriptErr != nil {
		return CallRecord{}, h.scriptErr
	}

	rec := CallRecord{
		Method:      out.Method,
		CallID:      out.CallID,
		Seq:         out.Seq,
		States:      make([]string, len(out.States)),
		DroppedJobs: out.DroppedJobs,
	}
	for i, st := range out.States {
		rec.States[i] = string(st)
	}

	if out.Err != nil {
		rec.Trap = &TrapRecord{Kind: string(out.Err.Kind), Message: out.Err.TrapMessage()}
		return rec, nil
	}
	vals, err := wire.UnmarshalArgs(out.Reply)
	if err != nil {
		return CallRecord{}, fmt.Errorf("reply does not parse: %w", err)
	}
	rec.Reply = wire.Format(wire.Tuple(vals))
	return rec, nil
}

// guard implements every declared guard: it admits the call unless the
// current step denies it.
func (h *Harness) guard(_ *vm.Realm, _ []vm.Value) (vm.Value, error) {
	if h.step != nil && h.step.Deny != "" {
		return vm.NewObject(vm.Prop{Key: "err", Value: vm.String(h.step.Deny)}), nil
	}
	return vm.NewObject(vm.Prop{Key: "ok", Value: vm.Null{}}), nil
}

// body builds the scripted realm function of a method.
func (h *Harness) body(m ir.Method) vm.Func {
	return func(r *vm.Realm, _ []vm.Value) (vm.Value, error) {
		step := h.step
		for _, op := range step.Store {
			if err := h.insert(r, op); err != nil {
				return nil, err
			}
		}
		if step.Throws != "" {
			return nil, vm.ThrowError("Error", step.Throws)
		}

		v, err := h.result(m, step)
		if err != nil {
			h.scriptErr = err
			return vm.Undefined{}, nil
		}
		if !m.Async {
			return v, nil
		}
		p, resolve, _ := r.NewPromise()
		r.Enqueue(func() error {
			resolve(v)
			return nil
		})
		return p, nil
	}
}

func (h *Harness) result(m ir.Method, step *CallStep) (vm.Value, error) {
	switch {
	case present(step.ReturnsRaw):
		return RealmValue(&step.ReturnsRaw)
	case present(step.Returns):
		if m.Return == nil {
			return nil, fmt.Errorf("method %s returns nothing", m.Name)
		}
		w, err := WireValue(h.graph, m.Return, &step.Returns)
		if err != nil {
			return nil, fmt.Errorf("returns: %w", err)
		}
		return marshal.Encode(h.graph, m.Return, w)
	case m.Return == nil:
		return vm.Undefined{}, nil
	default:
		return nil, fmt.Errorf("method %s needs returns or returns_raw", m.Name)
	}
}

// insert performs a stable map write through the realm's own binding, so
// the script exercises the same path as canister code.
func (h *Harness) insert(r *vm.Realm, op StoreOp) error {
	sm, err := h.stableMap(op.Map)
	if err != nil {
		h.scriptErr = err
		return err
	}
	key, err := h.realmValue(sm.Key, op.Key)
	if err != nil {
		h.scriptErr = fmt.Errorf("store %s key: %w", op.Map, err)
		return h.scriptErr
	}
	value, err := h.realmValue(sm.Value, op.Value)
	if err != nil {
		h.scriptErr = fmt.Errorf("store %s value: %w", op.Map, err)
		return h.scriptErr
	}

	fn, ok := r.Lookup(stable.FuncInsert)
	if !ok {
		h.scriptErr = fmt.Errorf("realm has no %s", stable.FuncInsert)
		return h.scriptErr
	}
	_, err = fn(r, []vm.Value{vm.Number(sm.ID), key, value})
	return err
}

func (h *Harness) realmValue(node ir.TypeNode, n *yaml.Node) (vm.Value, error) {
	w, err := WireValue(h.graph, node, n)
	if err != nil {
		return nil, err
	}
	return marshal.Encode(h.graph, node, w)
}

func (h *Harness) stableMap(name string) (ir.StableMap, error) {
	for _, sm := range h.graph.StableMaps() {
		if sm.Name == name {
			return sm, nil
		}
	}
	return ir.StableMap{}, fmt.Errorf("unknown stable map %q", name)
}

func checkExpect(result *Result, i int, e *Expect, rec CallRecord) {
	if e == nil {
		return
	}
	prefix := fmt.Sprintf("calls[%d] %s", i, rec.Method)

	if e.Reply != "" {
		switch {
		case rec.Trap != nil:
			result.AddError(fmt.Sprintf("%s: expected reply %s, trapped: %s", prefix, e.Reply, rec.Trap.Message))
		case rec.Reply != e.Reply:
			result.AddError(fmt.Sprintf("%s: expected reply %s, got %s", prefix, e.Reply, rec.Reply))
		}
		return
	}

	if rec.Trap == nil {
		result.AddError(fmt.Sprintf("%s: expected trap %q, got reply %s", prefix, e.Trap, rec.Reply))
		return
	}
	if rec.Trap.Message != e.Trap {
		result.AddError(fmt.Sprintf("%s: expected trap %q, got %q", prefix, e.Trap, rec.Trap.Message))
	}
	if e.Kind != "" && rec.Trap.Kind != e.Kind {
		result.AddError(fmt.Sprintf("%s: expected trap kind %s, got %s", prefix, e.Kind, rec.Trap.Kind))
	}
}
