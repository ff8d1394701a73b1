package dispatch

import (
	"os"
	"strconv"

	"github.com/ygrebnov/errorc"
)

// Close is the explicit teardown entry point. It is idempotent and safe
// for concurrent use; only the first call does anything.
//
// Any children still registered are reaped best-effort (their read end is
// closed, unblocking whatever goroutine or Adapter is waiting on it, which
// then runs the normal failure path). If the Dispatcher was never reset by
// a post-fork child (owner_pid still matches the constructing process) and
// children remained live, Close returns an ErrDispatcherState warning —
// never from a dispatcher reset by a post-fork child.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		remaining := make([]*childRecord, 0, len(d.subprocs))
		for _, rec := range d.subprocs {
			remaining = append(remaining, rec)
		}
		adapter := d.config.EventLoop
		ownerMatches := d.ownerPid != 0 && d.ownerPid == os.Getpid()
		d.closed = true
		d.mu.Unlock()

		if adapter != nil {
			for _, rec := range remaining {
				adapter.Detach(rec.pid)
			}
		}

		if len(remaining) > 0 && ownerMatches {
			d.closeErr = errorc.With(ErrDispatcherState, errorc.String("remaining", strconv.Itoa(len(remaining))))
			d.logger.Warningf("dispatcher %s closed with %d live children", d.id, len(remaining))
		}

		for _, rec := range remaining {
			_ = rec.readEnd.Close()
		}
	})
	return d.closeErr
}
