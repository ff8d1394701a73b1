package dispatch

import "context"

// WaitOne blocks until one child delivers its frame, or returns (false,
// nil) immediately if no children are currently registered. A deferred
// error latched by a prior Adapter-driven completion is raised here
// first, per the "take and raise" prologue every synchronous entry point
// shares.
func (d *Dispatcher) WaitOne(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if err := d.takeDeferredErrLocked(); err != nil {
		d.mu.Unlock()
		return true, err
	}
	if len(d.subprocs) == 0 {
		d.mu.Unlock()
		return false, nil
	}
	ch := d.changed
	d.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.takeDeferredErrLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// WaitAll repeatedly calls WaitOne until no children remain, then returns
// and clears the ordered-result sequence. Only callback-less submissions
// occupy slots in the returned sequence; a slot
// is nil only when its child failed (the failure itself was returned by an
// earlier call). A latched child failure is raised here
// even when every child has already completed, so a failure never goes
// unreported just because its frame arrived before WaitAll was called.
func (d *Dispatcher) WaitAll(ctx context.Context) ([]any, error) {
	for {
		d.mu.Lock()
		err := d.takeDeferredErrLocked()
		empty := len(d.subprocs) == 0
		d.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if empty {
			break
		}
		if _, err := d.WaitOne(ctx); err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]any, len(d.orderedResults))
	for i, slot := range d.orderedResults {
		if slot.filled {
			out[i] = slot.value
		}
	}
	d.orderedResults = nil
	d.orderedCount = 0
	return out, nil
}

// pidResult is what deliver() hands a WaitPid caller directly, bypassing
// the deferred-error latch: the caller is already synchronously blocked on
// exactly this pid, so there is no need to stash the failure for a later
// entry point to pick up.
type pidResult struct {
	value any
	err   error
}

// WaitPid reads and processes pid's frame specifically, reaping it, and
// returns (value, true, nil) on success. If pid is not currently
// registered, it returns (nil, false, nil) silently; a race with an
// already-consumed completion is legal. Any
// non-matching completion the underlying multiplexer delivers while this
// call is parked is still fully processed by deliver() (decoded, callback
// invoked, reaped) rather than buffered or dropped; WaitPid simply doesn't
// return until its own pid's turn comes.
func (d *Dispatcher) WaitPid(ctx context.Context, pid int) (any, bool, error) {
	d.mu.Lock()
	if err := d.takeDeferredErrLocked(); err != nil {
		d.mu.Unlock()
		return nil, false, err
	}
	if _, ok := d.subprocs[pid]; !ok {
		d.mu.Unlock()
		return nil, false, nil
	}
	ch := make(chan pidResult, 1)
	if d.pidWaiters == nil {
		d.pidWaiters = make(map[int]chan pidResult)
	}
	d.pidWaiters[pid] = ch
	d.mu.Unlock()

	select {
	case r := <-ch:
		return r.value, true, r.err
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pidWaiters, pid)
		d.mu.Unlock()
		return nil, false, ctx.Err()
	}
}
