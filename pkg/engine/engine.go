package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cangen/pkg/marshal"
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
)

// State is one step of the per-call state machine.
type State string

const (
	StateDecoding State = "decoding"
	StateInvoking State = "invoking"
	StateDraining State = "draining"
	StateEncoding State = "encoding"
	StateDone     State = "done"
	StateTrapped  State = "trapped"
)

// Outcome records how one call went.
type Outcome struct {
	CallID string
	Seq    int64
	Method string

	// States lists every state entered, in order.
	States []State

	// Reply holds the response bytes of a Done call.
	Reply []byte

	// Err classifies a Trapped call.
	Err *trap.Error

	// DroppedJobs counts jobs still queued when the realm was released.
	DroppedJobs int
}

// Final returns the terminal state.
func (o *Outcome) Final() State {
	if len(o.States) == 0 {
		return ""
	}
	return o.States[len(o.States)-1]
}

// Engine dispatches host calls to realm functions.
type Engine struct {
	realm    *vm.Realm
	bindings map[string]Binding
	names    []string
	clock    Sequencer
	ids      CallIDGenerator
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCallIDs sets the call id generator. Default: UUIDv7Generator.
func WithCallIDs(gen CallIDGenerator) Option {
	return func(e *Engine) {
		e.ids = gen
	}
}

// WithClock sets the sequencer. Default: a Clock starting at 0.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over realm serving bindings.
// Binding names must be unique.
func New(realm *vm.Realm, bindings []Binding, opts ...Option) (*Engine, error) {
	e := &Engine{
		realm:    realm,
		bindings: make(map[string]Binding, len(bindings)),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, b := range bindings {
		if _, dup := e.bindings[b.Name]; dup {
			return nil, fmt.Errorf("engine: duplicate binding %q", b.Name)
		}
		if b.DecodeArgs == nil || b.EncodeResult == nil {
			return nil, fmt.Errorf("engine: binding %q has no marshalling closures", b.Name)
		}
		e.bindings[b.Name] = b
		e.names = append(e.names, b.Name)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Methods returns the binding names in registration order.
func (e *Engine) Methods() []string {
	return append([]string(nil), e.names...)
}

// Binding returns the binding registered under name.
func (e *Engine) Binding(name string) (Binding, bool) {
	b, ok := e.bindings[name]
	return b, ok
}

// Call runs method against host and returns the outcome. The host receives
// exactly one Reply or Trap. There is no cancellation: ctx only carries
// logging context.
func (e *Engine) Call(ctx context.Context, host Host, method string) *Outcome {
	c := &call{
		ctx:  ctx,
		host: &onceHost{Host: host},
		out: &Outcome{
			CallID: e.ids.Generate(),
			Seq:    e.clock.Next(),
			Method: method,
		},
	}
	c.log = e.logger.With("call_id", c.out.CallID, "method", method, "seq", c.out.Seq)

	binding, ok := e.bindings[method]
	if !ok {
		c.trap(trap.Internal("unknown method %q", method))
		return c.out
	}

	sess, err := e.realm.Acquire()
	if err != nil {
		if errors.Is(err, vm.ErrBusy) {
			c.trap(trap.Internal("reentrant call rejected"))
		} else {
			c.trap(trap.WrapInternal(err))
		}
		return c.out
	}
	defer func() {
		c.out.DroppedJobs = sess.Release()
		if c.out.DroppedJobs > 0 {
			c.log.DebugContext(ctx, "dropped queued jobs", "count", c.out.DroppedJobs)
		}
	}()

	c.run(sess, binding)
	return c.out
}

// call is the state of one in-flight invocation.
type call struct {
	ctx  context.Context
	host Host
	out  *Outcome
	log  *slog.Logger
}

func (c *call) enter(s State) {
	c.out.States = append(c.out.States, s)
	c.log.DebugContext(c.ctx, "call state", "state", string(s))
}

func (c *call) run(sess *vm.Session, b Binding) {
	// Decoding
	c.enter(StateDecoding)
	if b.Guard != "" {
		if te := c.checkGuard(sess, b.Guard); te != nil {
			c.trap(te)
			return
		}
	}
	args, err := b.DecodeArgs(c.host.ArgData())
	if err != nil {
		c.trap(trap.Classify(err))
		return
	}

	// Invoking
	c.enter(StateInvoking)
	result, err := sess.Call(b.Name, args)
	if err != nil {
		c.trap(thrown(err))
		return
	}

	// Draining
	if p, ok := result.(*vm.Promise); ok {
		c.enter(StateDraining)
		settled, te := drain(sess, p)
		if te != nil {
			c.trap(te)
			return
		}
		result = settled
	}

	// Encoding
	c.enter(StateEncoding)
	reply, te := encode(b, result)
	if te != nil {
		c.trap(te)
		return
	}
	c.out.Reply = reply
	c.host.Reply(reply)
	c.enter(StateDone)
	c.log.InfoContext(c.ctx, "call completed", "reply_bytes", len(reply))
}

// checkGuard runs the guard function and interprets its GuardResult.
func (c *call) checkGuard(sess *vm.Session, guard string) *trap.Error {
	v, err := sess.Call(guard, nil)
	if err != nil {
		return thrown(err)
	}
	rejection, ok, err := marshal.DecodeGuardResult(v)
	if err != nil {
		return trap.Classify(err)
	}
	if !ok {
		return trap.Exception(rejection)
	}
	return nil
}

// drain pumps the job queue until p settles.
func drain(sess *vm.Session, p *vm.Promise) (vm.Value, *trap.Error) {
	for p.State() == vm.Pending {
		ran, err := sess.RunJob()
		if err != nil {
			return nil, thrown(err)
		}
		if !ran {
			return nil, trap.Internal("pending result never settled")
		}
	}
	if p.State() == vm.Rejected {
		return nil, trap.Exception(vm.DisplayString(p.Result()))
	}
	return p.Result(), nil
}

// encode runs the binding's result encoder, converting a panic in generated
// code into a trap.
func encode(b Binding, result vm.Value) (reply []byte, te *trap.Error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				te = trap.Classify(err)
				return
			}
			te = trap.Internal("encoder panicked: %v", r)
		}
	}()
	reply, err := b.EncodeResult(result)
	if err != nil {
		return nil, trap.Classify(err)
	}
	return reply, nil
}

// thrown classifies an error raised by realm code.
func thrown(err error) *trap.Error {
	if exc, ok := vm.AsException(err); ok {
		return trap.Exception(vm.DisplayString(exc.Value))
	}
	return trap.Classify(err)
}

func (c *call) trap(te *trap.Error) {
	state := c.out.Final()
	c.out.Err = te
	c.host.Trap(te.TrapMessage())
	c.enter(StateTrapped)

	attrs := []any{"state", string(state), "kind", string(te.Kind), "message", te.Body()}
	if te.Kind == trap.InternalInconsistency {
		c.log.ErrorContext(c.ctx, "call trapped", append(attrs, "defect", true)...)
		return
	}
	c.log.WarnContext(c.ctx, "call trapped", attrs...)
}
