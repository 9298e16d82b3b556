package vm

import "fmt"

// PromiseState is the settlement state of a Promise.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("PromiseState(%d)", int(s))
	}
}

// Promise is an explicit Pending | Fulfilled(v) | Rejected(reason) cell.
// Reactions registered with Realm.Then run as jobs on the owning realm.
type Promise struct {
	realm     *Realm
	state     PromiseState
	result    Value
	reactions []Job
}

// State returns the current settlement state.
func (p *Promise) State() PromiseState {
	return p.state
}

// Result returns the fulfilled value or rejection reason.
// It is nil while pending.
func (p *Promise) Result() Value {
	return p.result
}

// Handler maps a settled value to the derived promise's value.
// Returning an *Exception rejects the derived promise.
type Handler func(Value) (Value, error)

// NewPromise returns a pending promise and its resolving functions.
// Only the first call to either function has an effect.
func (r *Realm) NewPromise() (p *Promise, resolve func(Value), reject func(Value)) {
	p = &Promise{realm: r}
	done := false
	resolve = func(v Value) {
		if done {
			return
		}
		done = true
		p.resolve(v)
	}
	reject = func(reason Value) {
		if done {
			return
		}
		done = true
		p.settle(Rejected, reason)
	}
	return p, resolve, reject
}

// Resolved returns a promise fulfilled with v.
func (r *Realm) Resolved(v Value) *Promise {
	p, resolve, _ := r.NewPromise()
	resolve(v)
	return p
}

// Rejected returns a promise rejected with reason.
func (r *Realm) Rejected(reason Value) *Promise {
	p, _, reject := r.NewPromise()
	reject(reason)
	return p
}

// Then registers reactions on p and returns the derived promise. A nil
// handler passes the settlement through unchanged.
func (r *Realm) Then(p *Promise, onFulfilled, onRejected Handler) *Promise {
	derived, resolve, reject := r.NewPromise()
	reaction := func() error {
		h := onFulfilled
		if p.state == Rejected {
			h = onRejected
		}
		if h == nil {
			if p.state == Rejected {
				reject(p.result)
			} else {
				resolve(p.result)
			}
			return nil
		}
		v, err := h(p.result)
		if err != nil {
			exc, ok := AsException(err)
			if !ok {
				return err
			}
			reject(exc.Value)
			return nil
		}
		resolve(v)
		return nil
	}
	p.subscribe(reaction)
	return derived
}

// resolve fulfills p, adopting the state of a promise value.
func (p *Promise) resolve(v Value) {
	if inner, ok := v.(*Promise); ok {
		if inner == p {
			p.settle(Rejected, NewError("TypeError", "chaining cycle detected for promise"))
			return
		}
		inner.subscribe(func() error {
			p.settle(inner.state, inner.result)
			return nil
		})
		return
	}
	p.settle(Fulfilled, v)
}

func (p *Promise) settle(state PromiseState, v Value) {
	if p.state != Pending {
		return
	}
	p.state = state
	p.result = v
	for _, job := range p.reactions {
		p.realm.jobs.Enqueue(job)
	}
	p.reactions = nil
}

// subscribe queues job once p settles, or immediately if it already has.
func (p *Promise) subscribe(job Job) {
	if p.state != Pending {
		p.realm.jobs.Enqueue(job)
		return
	}
	p.reactions = append(p.reactions, job)
}
