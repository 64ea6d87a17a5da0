package llm

import (
	"context"
)

// Call is the handle of an asynchronous completion. The work runs on its own
// goroutine; Wait blocks until it has finished.
type Call struct {
	done chan struct{}
	resp *ModelResponse
	err  error
}

// Go starts fn on a new goroutine and returns its handle.
func Go(ctx context.Context, fn func(ctx context.Context) (*ModelResponse, error)) *Call {
	c := &Call{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		c.resp, c.err = fn(ctx)
	}()
	return c
}

// Failed returns an already-finished call carrying err.
func Failed(err error) *Call {
	c := &Call{done: make(chan struct{}), err: err}
	close(c.done)
	return c
}

// Done is closed once the call has finished.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call has finished and returns its outcome.
func (c *Call) Wait() (*ModelResponse, error) {
	<-c.done
	return c.resp, c.err
}

// Await is like Wait but gives up when ctx is done. The underlying call keeps
// running until the backend returns.
func (c *Call) Await(ctx context.Context) (*ModelResponse, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
