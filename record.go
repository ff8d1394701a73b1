package dispatch

import "os/exec"

// childRecord tracks one live or zombie-awaiting-reap child. Mutated only
// under Dispatcher.mu.
type childRecord struct {
	pid     int
	cmd     *exec.Cmd
	readEnd readCloser // parent's read end of the result pipe
	stderr  *stderrBridge
	origin  Origin
	// callback is nil only transiently: ordered-mode submissions get a
	// synthetic one that writes into orderedResults before the fork.
	callback func(any)
	// delivered guards against a second delivery for the same pid; set
	// under Dispatcher.mu by the first deliver call.
	delivered bool
}

// readCloser is the narrow slice of *os.File that deliver/spawn need;
// named so tests can substitute an in-memory pipe.
type readCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

// pendingEntry is one (work, callback?) pair waiting for a promotion
// slot.
type pendingEntry struct {
	work     Work
	callback func(any)
	origin   Origin
}

// orderedSlot is one reserved position in ordered_results. filled stays
// false until the corresponding child's frame has been processed.
type orderedSlot struct {
	filled bool
	value  any
}
