// This file implements the unbounded submission queue feeding the worker
// pool. Producers (the dispatcher, or tests) push units with atomic
// operations only; a single consumer goroutine hands them to workers via a
// channel.
//
//   - Lock-free writes: any number of goroutines may Push concurrently
//   - Unbounded: submission never blocks, limited only by memory
//   - Single consumer: one goroutine drains the linked list into the out
//     channel; the worker pool receives from that channel
//   - Ordering: items are handed out in the order their Push completed
package runtime

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// qnode is a single element of the submission queue.
type qnode struct {
	unit *unit
	next atomic.Pointer[qnode]
}

// unitQueue is a lock-free multi-producer single-consumer queue of units.
type unitQueue struct {
	head     atomic.Pointer[qnode]
	tail     atomic.Pointer[qnode]
	out      chan *unit
	consumer sync.WaitGroup
	closed   atomic.Bool

	// Condition variable for efficient waiting
	mu   sync.Mutex
	cond *sync.Cond
}

// newUnitQueue creates the queue and starts its consumer goroutine.
func newUnitQueue() *unitQueue {
	// Sentinel node so producers never race on an empty list
	sentinel := &qnode{}

	q := &unitQueue{
		out: make(chan *unit),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends a unit to the queue.
// Returns false if the queue is already closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *unitQueue) Push(u *unit) bool {
	if u == nil || q.closed.Load() {
		return false
	}

	newNode := &qnode{unit: u}

	var backoff uint8 = 0
	for {
		tailNode := q.tail.Load()

		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// Appended; updating tail may fail if another producer
				// already helped, which is fine.
				q.tail.CompareAndSwap(tailNode, newNode)

				q.cond.Signal()
				return true
			}
		} else {
			// Help a producer that appended but has not moved tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// Exponential backoff under contention: spin first, then yield so
		// retrying producers do not stampede.
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume drains the linked list into the out channel and frees nodes.
func (q *unitQueue) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	for {
		hasItems := false

		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			u := next.unit
			q.head.Store(next)
			q.out <- u
			next.unit = nil // help the gc
		}

		if !hasItems && q.closed.Load() {
			return
		}

		if !hasItems {
			q.mu.Lock()
			// Double-check after acquiring the lock
			head := q.head.Load()
			if head.next.Load() == nil && !q.closed.Load() {
				q.cond.Wait()
			}
			q.mu.Unlock()
		}
	}
}

// Recv returns the receive side of the queue for the worker pool.
func (q *unitQueue) Recv() <-chan *unit {
	return q.out
}

// Close stops accepting new units. Units already queued are still delivered;
// the out channel closes once the queue is drained.
func (q *unitQueue) Close() {
	q.closed.Store(true)
	q.cond.Signal()
}
