// Package loop lets a Dispatcher integrate with an external event loop.
// A Dispatcher normally drives its own readiness multiplexer synchronously
// (WaitOne/WaitAll/WaitPid), but a host running its own single-threaded
// cooperative event loop can instead hand each child's frame read to an
// Adapter and receive completions as loop-native events.
package loop

import "context"

// Completion is a one-shot future, resolved exactly once by whoever owns
// it. A Dispatcher uses one (with pid 0) as its idle signal, resolved when
// no children remain registered; see Dispatcher.Idle. The Adapter
// implementations in this package do not create Completions.
type Completion struct {
	done chan struct{}
	pid  int
	err  error
}

// NewCompletion creates an unresolved Completion for the given child pid.
func NewCompletion(pid int) *Completion {
	return &Completion{done: make(chan struct{}), pid: pid}
}

// Pid reports which child this completion is for.
func (c *Completion) Pid() int { return c.pid }

// Resolve marks the completion as ready. Safe to call at most once; a
// second call panics, since it indicates the same child was observed
// ready twice.
func (c *Completion) Resolve(err error) {
	c.err = err
	close(c.done)
}

// Wait blocks until Resolve has been called or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Adapter is the capability a Dispatcher uses to integrate with an external
// event loop instead of blocking its caller inside its own multiplexer
// goroutines. A Dispatcher configured with WithEventLoop calls Watch once
// per spawned child, handing it the dispatcher's own frame-reading
// closure (the same one the synchronous multiplexer would call); the
// Adapter decides *when and on what goroutine* to invoke it, and is
// responsible for surfacing its result as a native event on the host's
// loop (e.g. a Bubble Tea Msg or a host-registered callback).
type Adapter interface {
	// Watch arranges for readFrame to be called exactly once for pid, then
	// for the (error) it returns to be delivered into the host's own event
	// loop. readFrame itself performs the actual blocking pipe read, so
	// Watch need not understand pipe framing at all.
	Watch(pid int, readFrame func() error)

	// Detach cancels a pending watch for a child that was closed or reaped
	// outside the normal ready path (e.g. during Dispatcher.Close).
	Detach(pid int)
}
