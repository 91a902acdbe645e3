package runtime

import (
	gort "runtime"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("runtime")

// --------------------------------------------------------------------------
// Core Runtime Structure
// --------------------------------------------------------------------------

// unit is one schedulable piece of work together with its declared access
// sets. The run closure is executed while all declared locks are held.
type unit struct {
	reads  []Access
	writes []Access
	run    func()
}

// Runtime is a fixed-size worker pool with a per-resource lock table.
type Runtime struct {
	queue   *unitQueue
	locks   *xsync.MapOf[Access, *sync.RWMutex]
	workers sync.WaitGroup
}

// Options configures the Runtime during initialization.
type Options struct {
	Workers int // Number of worker goroutines (0 = runtime.NumCPU)
}

// DefaultOptions returns the default Runtime options.
func DefaultOptions() *Options {
	return &Options{
		Workers: gort.NumCPU(),
	}
}

// New creates a runtime and starts its workers.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func New(opts *Options) *Runtime {
	if opts == nil {
		opts = DefaultOptions()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = gort.NumCPU()
	}

	rt := &Runtime{
		queue: newUnitQueue(),
		locks: xsync.NewMapOf[Access, *sync.RWMutex](),
	}

	rt.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go rt.worker()
	}

	Logger.Infof("started runtime with %d workers", workers)
	return rt
}

// Close stops accepting new units, lets queued units finish, and waits for
// all workers to exit.
//
// Thread-safety: This method is thread-safe but should only be called once.
func (rt *Runtime) Close() {
	rt.queue.Close()
	rt.workers.Wait()
}

// --------------------------------------------------------------------------
// Submission
// --------------------------------------------------------------------------

// Submit schedules fn as one unit of work. Two submitted units whose write
// sets intersect, or whose read and write sets intersect, are serialized
// relative to each other; disjoint units may run concurrently and out of
// order. The returned future is pollable with Ready and retrievable with
// Wait.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func Submit[T any](rt *Runtime, reads, writes []Access, fn func() T) *Future[T] {
	f := newFuture[T]()
	u := &unit{
		reads:  reads,
		writes: writes,
		run:    func() { f.complete(fn()) },
	}
	if !rt.queue.Push(u) {
		// Runtime already closed: run inline under the same lock protocol
		// so the future still completes.
		rt.execute(u)
	}
	return f
}

// --------------------------------------------------------------------------
// Workers
// --------------------------------------------------------------------------

// worker drains the submission queue until the runtime closes.
func (rt *Runtime) worker() {
	defer rt.workers.Done()
	for u := range rt.queue.Recv() {
		rt.execute(u)
	}
}

// execute takes the unit's locks in plan order, runs it, and unlocks in
// reverse order.
func (rt *Runtime) execute(u *unit) {
	plan := buildPlan(u.reads, u.writes)

	for _, step := range plan {
		m := rt.lockFor(step.key)
		if step.write {
			m.Lock()
		} else {
			m.RLock()
		}
	}

	u.run()

	for i := len(plan) - 1; i >= 0; i-- {
		step := plan[i]
		m := rt.lockFor(step.key)
		if step.write {
			m.Unlock()
		} else {
			m.RUnlock()
		}
	}
}

// lockFor returns the lock cell for a resource, creating it on first use.
// Cells are never removed: the resource space of a run is finite and small.
func (rt *Runtime) lockFor(key Access) *sync.RWMutex {
	m, _ := rt.locks.LoadOrCompute(key, func() *sync.RWMutex {
		return &sync.RWMutex{}
	})
	return m
}
