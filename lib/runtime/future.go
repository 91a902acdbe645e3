package runtime

// --------------------------------------------------------------------------
// Future Type
// --------------------------------------------------------------------------

// Future is the handle for the eventual result of a submitted unit.
type Future[T any] struct {
	done  chan struct{}
	value T
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete stores the result and releases all waiters. Called exactly once,
// by the worker that ran the unit.
func (f *Future[T]) complete(value T) {
	f.value = value
	close(f.done)
}

// Ready reports whether the result is available, without blocking.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available and returns it.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (f *Future[T]) Wait() T {
	<-f.done
	return f.value
}
