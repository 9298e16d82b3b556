package vm

import "fmt"

// Session is scoped ownership of a Realm for one call.
// Release must be called exactly once; it is safe to defer.
type Session struct {
	realm    *Realm
	released bool
}

// Realm returns the held realm.
func (s *Session) Realm() *Realm {
	return s.realm
}

// Call invokes the function registered under name.
// A body that panics is reported as an error rather than unwinding the host.
func (s *Session) Call(name string, args []Value) (result Value, err error) {
	if s.released {
		return nil, ErrReleased
	}
	fn, ok := s.realm.Lookup(name)
	if !ok {
		return nil, ThrowError("ReferenceError", name+" is not defined")
	}
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("vm: %s panicked: %v", name, p)
		}
	}()
	return fn(s.realm, args)
}

// RunJob pops and runs the front job. It reports false when the queue was
// empty.
func (s *Session) RunJob() (ran bool, err error) {
	if s.released {
		return false, ErrReleased
	}
	job, ok := s.realm.jobs.TryDequeue()
	if !ok {
		return false, nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("vm: job panicked: %v", p)
		}
	}()
	return true, job()
}

// Release drops any jobs left on the queue and frees the realm.
// It returns the number of dropped jobs.
func (s *Session) Release() int {
	if s.released {
		return 0
	}
	s.released = true
	dropped := s.realm.jobs.Clear()

	s.realm.mu.Lock()
	s.realm.busy = false
	s.realm.mu.Unlock()
	return dropped
}
