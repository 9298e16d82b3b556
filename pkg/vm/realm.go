package vm

import (
	"errors"
	"sort"
	"sync"
)

// ErrBusy is returned by Acquire while another session holds the realm.
var ErrBusy = errors.New("vm: realm is held by another call")

// ErrReleased is returned by a Session used after Release.
var ErrReleased = errors.New("vm: session already released")

// Func is a function body. It receives the realm it runs in.
type Func func(r *Realm, args []Value) (Value, error)

// Realm is one interpreter execution context.
type Realm struct {
	mu    sync.Mutex
	busy  bool
	funcs map[string]Func
	jobs  *jobQueue
}

// NewRealm returns an empty realm.
func NewRealm() *Realm {
	return &Realm{
		funcs: make(map[string]Func),
		jobs:  newJobQueue(),
	}
}

// Define registers a function body under name, replacing any previous one.
func (r *Realm) Define(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Realm) Lookup(name string) (Func, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the defined function names, sorted.
func (r *Realm) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enqueue schedules a continuation on the realm's job queue.
func (r *Realm) Enqueue(job Job) {
	r.jobs.Enqueue(job)
}

// Pending returns the number of queued jobs.
func (r *Realm) Pending() int {
	return r.jobs.Len()
}

// Acquire takes exclusive ownership of the realm for one call.
// It returns ErrBusy if the realm is already held.
func (r *Realm) Acquire() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return nil, ErrBusy
	}
	r.busy = true
	return &Session{realm: r}, nil
}

// Busy reports whether a session currently holds the realm.
func (r *Realm) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}
