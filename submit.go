package dispatch

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"os/exec"

	"github.com/kalind/dispatch/codec"
	"github.com/kalind/dispatch/transport"
)

// SubmitAsync spawns work in its own child process. With no callback,
// the result is collected into the ordered-result sequence WaitAll
// returns; with one, the callback is
// invoked once the child's frame arrives. The origin recorded for error
// messages is the caller's own call site.
func (d *Dispatcher) SubmitAsync(work Work, callback func(any)) (int, error) {
	return d.submitAsync(work, callback, callerOrigin(1))
}

// SubmitWithOrigin is SubmitAsync with an explicit origin, for callers that
// want to attribute a failure to something other than their own call site
// (e.g. a batch helper attributing every child to the loop that queued it).
func (d *Dispatcher) SubmitWithOrigin(work Work, callback func(any), origin Origin) (int, error) {
	return d.submitAsync(work, callback, origin)
}

func (d *Dispatcher) submitAsync(work Work, callback func(any), origin Origin) (int, error) {
	if work == nil {
		return 0, errInvalidArgument("work", "SubmitAsync requires non-nil work")
	}

	d.mu.Lock()
	if err := d.takeDeferredErrLocked(); err != nil {
		d.mu.Unlock()
		return 0, err
	}

	if callback == nil {
		callback = d.reserveOrderedSlotLocked()
	}

	rec, err := d.spawnLocked(work, origin, callback)
	if err != nil {
		d.mu.Unlock()
		return 0, err
	}
	d.subprocs[rec.pid] = rec
	d.childrenSpawned.Add(1)
	d.childrenInFlt.Add(1)
	d.broadcastLocked()
	d.mu.Unlock()

	d.watch(rec)

	return rec.pid, nil
}

// reserveOrderedSlotLocked reserves the next ordered-results slot and
// returns a callback that fills it. The index is bound here, before the
// fork, so completion ordering never affects placement. Caller must hold
// d.mu.
func (d *Dispatcher) reserveOrderedSlotLocked() func(any) {
	index := d.orderedCount
	d.orderedCount++
	for len(d.orderedResults) <= index {
		d.orderedResults = append(d.orderedResults, orderedSlot{})
	}
	return func(v any) {
		d.mu.Lock()
		d.orderedResults[index] = orderedSlot{filled: true, value: v}
		d.mu.Unlock()
	}
}

// takeDeferredErrLocked implements every synchronous entry point's
// prologue: "take and raise" the deferred error latch (Design Note
// "Deferred error"). Caller must hold d.mu.
func (d *Dispatcher) takeDeferredErrLocked() error {
	if d.deferredErr == nil {
		return nil
	}
	err := d.deferredErr
	d.deferredErr = nil
	return err
}

// spawnLocked re-execs the host binary as a child, wiring stdin to a
// pipe carrying the gob-encoded work value and ExtraFiles[0] to the
// result pipe's write end. Caller must hold d.mu.
func (d *Dispatcher) spawnLocked(work Work, origin Origin, callback func(any)) (*childRecord, error) {
	workR, workW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("dispatch: creating work pipe: %w", err)
	}
	resultR, resultW, err := os.Pipe()
	if err != nil {
		workR.Close()
		workW.Close()
		return nil, fmt.Errorf("dispatch: creating result pipe: %w", err)
	}

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(),
		childMarkerEnv+"="+childMarkerValue,
		childCodecEnv+"="+codecName(d.config.Codec),
	)
	cmd.Stdin = workR
	cmd.ExtraFiles = []*os.File{resultW}
	bridge := newStderrBridge(d.logger)
	cmd.Stderr = bridge

	if err := cmd.Start(); err != nil {
		workR.Close()
		workW.Close()
		resultR.Close()
		resultW.Close()
		return nil, fmt.Errorf("dispatch: starting child: %w", err)
	}

	// The child has its own duplicated descriptors now; close the parent's
	// copies of the ends it doesn't own.
	_ = workR.Close()
	_ = resultW.Close()

	go func() {
		defer workW.Close()
		if err := gob.NewEncoder(workW).Encode(&work); err != nil {
			d.logger.Warningf("dispatch: encoding work for pid %d: %v", cmd.Process.Pid, err)
		}
	}()

	return &childRecord{
		pid:      cmd.Process.Pid,
		cmd:      cmd,
		readEnd:  resultR,
		stderr:   bridge,
		origin:   origin,
		callback: callback,
	}, nil
}

// watch arranges for rec's single frame to be read, either by the
// configured event-loop Adapter or, in synchronous mode, by a dedicated
// goroutine: a blocking read on a pipe is itself the readiness wait, so
// no raw select(2)/epoll call is needed.
func (d *Dispatcher) watch(rec *childRecord) {
	readFrame := func() error {
		buf := d.pool.Get().([]byte)
		frameType, payload, err := transport.ReadFrame(bufio.NewReader(rec.readEnd), d.config.MaxFrameSize, buf)
		if err != nil {
			// deliver reclaims the payload buffer on success; on a failed
			// read the borrowed buffer comes back here instead.
			d.pool.Put(buf[:0])
		}
		d.deliver(rec.pid, frameType, payload, err)
		return err
	}

	d.mu.Lock()
	adapter := d.config.EventLoop
	d.mu.Unlock()

	if adapter != nil {
		adapter.Watch(rec.pid, readFrame)
		return
	}
	go func() { _ = readFrame() }()
}

// deliver processes pid's completed frame: reaping the child, decoding
// the value, invoking its callback, then deleting the record, draining
// the queue, and broadcasting the state change. It is the single place
// every delivery path (goroutine or Adapter) funnels through. The record
// is deleted only after the callback has run, so Count includes a child
// until its frame is fully processed, and WaitAll never observes an
// empty dispatcher with a callback still outstanding.
func (d *Dispatcher) deliver(pid int, frameType string, payload []byte, readErr error) {
	d.mu.Lock()
	rec, ok := d.subprocs[pid]
	if !ok || rec.delivered {
		// A child has one reader and one frame, so a second delivery for
		// the same pid is a no-op rather than a double-apply.
		d.mu.Unlock()
		return
	}
	rec.delivered = true
	c := d.config.Codec
	d.mu.Unlock()

	_ = rec.readEnd.Close()
	_, _ = rec.cmd.Process.Wait() // reaping failures are tolerated silently
	_ = rec.stderr.Close()

	var (
		value   any
		failure error
	)
	switch {
	case readErr != nil:
		failure = newTransportFailureError(rec.origin, readErr)
	case frameType == transport.TypeError:
		failure = newChildFailureError(rec.origin, string(payload))
	default:
		v, decErr := codec.Decode(c, payload)
		if decErr != nil {
			failure = newChildFailureError(rec.origin, fmt.Sprintf("could not decode result: %v", decErr))
		} else {
			value = v
		}
	}

	// Callbacks run without d.mu held so they may re-enter the Dispatcher
	// (submit more work, queue, read Count).
	if failure == nil && rec.callback != nil {
		rec.callback(value)
	}

	d.mu.Lock()
	delete(d.subprocs, pid)
	d.childrenInFlt.Add(-1)

	waiter, hasWaiter := d.pidWaiters[pid]
	if hasWaiter {
		delete(d.pidWaiters, pid)
	}

	if failure != nil {
		d.childErrors.Add(1)
		if !hasWaiter && d.deferredErr == nil {
			d.deferredErr = failure
		}
	}

	if hasWaiter {
		waiter <- pidResult{value: value, err: failure}
	}

	if payload != nil {
		d.pool.Put(payload[:0])
	}
	promoted := d.drainLocked()
	d.broadcastLocked()
	d.mu.Unlock()

	for _, rec := range promoted {
		d.watch(rec)
	}
}

// StartDetached spawns a child to run work and discards its result
// entirely: no result pipe (only the stdin pipe carrying the work value),
// no childRecord, no accounting against Count. The
// only observable record of its existence is whatever side effect work
// itself performs.
func (d *Dispatcher) StartDetached(work Work) error {
	if work == nil {
		return errInvalidArgument("work", "StartDetached requires non-nil work")
	}

	workR, workW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("dispatch: creating work pipe: %w", err)
	}

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), childMarkerEnv+"="+childMarkerValue)
	cmd.Stdin = workR
	bridge := newStderrBridge(d.logger)
	cmd.Stderr = bridge

	if err := cmd.Start(); err != nil {
		workR.Close()
		workW.Close()
		return fmt.Errorf("dispatch: starting detached child: %w", err)
	}
	_ = workR.Close()

	go func() {
		defer workW.Close()
		if err := gob.NewEncoder(workW).Encode(&work); err != nil {
			d.logger.Warningf("dispatch: encoding detached work: %v", err)
		}
	}()

	// Reap in the background; the parent owns no other record of this
	// child and never waits on it synchronously.
	go func() {
		_, _ = cmd.Process.Wait()
		_ = bridge.Close()
	}()

	return nil
}
