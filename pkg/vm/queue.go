package vm

import "sync"

// Job is one queued continuation. A non-nil error aborts draining.
type Job func() error

// jobQueue is the realm's FIFO of pending continuations.
//
// The queue is unbounded so a continuation may enqueue further continuations
// without blocking. Jobs run strictly one at a time in enqueue order.
type jobQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func newJobQueue() *jobQueue {
	return &jobQueue{jobs: make([]Job, 0, 16)}
}

// Enqueue adds a job to the back of the queue.
func (q *jobQueue) Enqueue(j Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, j)
}

// TryDequeue removes and returns the front job.
// Returns (nil, false) if the queue is empty.
func (q *jobQueue) TryDequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}

	j := q.jobs[0]
	q.jobs[0] = nil // Release the closure for GC
	q.jobs = q.jobs[1:]
	return j, true
}

// Len returns the number of queued jobs.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Clear drops every queued job and returns how many were dropped.
func (q *jobQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	clear(q.jobs)
	q.jobs = q.jobs[:0]
	return n
}
