package session

import "context"

// flight is a single-flight slot: the completion signal of one pending
// start or stop operation. Callers arriving while a flight is pending await
// its outcome instead of re-invoking the underlying transition. The slot is
// cleared once the operation settles, success or failure.
type flight struct {
	done chan struct{}
	err  error
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

// settle records the outcome and releases all waiters. Called exactly once.
func (f *flight) settle(err error) {
	f.err = err
	close(f.done)
}

// wait blocks until the flight settles or ctx is cancelled.
func (f *flight) wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
