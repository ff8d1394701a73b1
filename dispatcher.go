package dispatch

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/kalind/dispatch/loop"
	"github.com/kalind/dispatch/metrics"
	"github.com/kalind/dispatch/pool"
)

// Dispatcher owns the subprocess registry, the pending queue, the
// ordered result buffer, and the deferred-error latch. The zero value is
// not usable; construct with New.
type Dispatcher struct {
	nc noCopy

	id     uuid.UUID
	logger commonlog.Logger

	config config
	pool   pool.Pool

	ownerPid int

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every state change

	subprocs map[int]*childRecord
	pending  []pendingEntry

	orderedCount   int
	orderedResults []orderedSlot

	deferredErr error

	// pidWaiters lets a WaitPid call receive its target pid's outcome
	// directly from deliver(), instead of through the deferred-error latch.
	pidWaiters map[int]chan pidResult

	// idle resolves whenever subprocs becomes empty; it exists mainly so an
	// event-loop-driven host can park on Dispatcher.Idle() instead of the
	// blocking Wait* surface.
	// busy tracks the empty/non-empty transition so idle is signaled once
	// per busy period, never twice.
	idle *loop.Completion
	busy bool

	closeOnce sync.Once
	closed    bool
	closeErr  error

	childrenSpawned metrics.Counter
	childrenInFlt   metrics.UpDownCounter
	childErrors     metrics.Counter
}

// noCopy discourages copying a Dispatcher; go vet's -copylocks flags types
// embedding it once Lock/Unlock methods are present.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New constructs a Dispatcher from functional options. The returned
// Dispatcher is ready for submission immediately; there is no separate
// Start phase.
func New(opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		id:       uuid.New(),
		logger:   commonlog.GetLogger("dispatch"),
		config:   cfg,
		pool:     cfg.bufferPool(),
		ownerPid: os.Getpid(),
		changed:  make(chan struct{}),
		subprocs: make(map[int]*childRecord),
		idle:     loop.NewCompletion(0),
	}
	// A Dispatcher starts idle; the completion is pre-resolved so an early
	// Idle().Wait does not block. broadcastLocked swaps in a fresh
	// unresolved one the moment the first child spawns.
	d.idle.Resolve(nil)

	d.childrenSpawned = cfg.Metrics.Counter("dispatch_children_spawned", metrics.WithDescription("children spawned by a Dispatcher"))
	d.childrenInFlt = cfg.Metrics.UpDownCounter("dispatch_children_inflight", metrics.WithDescription("children currently registered in a Dispatcher"))
	d.childErrors = cfg.Metrics.Counter("dispatch_child_errors", metrics.WithDescription("children whose frame carried or implied a failure"))

	registerDispatcher(d)

	d.logger.Debugf("dispatcher %s constructed, owner pid %d", d.id, d.ownerPid)
	return d, nil
}

// Count reports the number of children currently registered: from the
// moment a child is spawned until its frame is fully processed.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subprocs)
}

// Pending reports the number of entries currently waiting for a promotion
// slot, so callers can observe queue depth without reaching into
// internals.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// SetMaxChildren changes the queue bound. Raising it immediately drains
// queued work.
func (d *Dispatcher) SetMaxChildren(n int) error {
	if n <= 0 {
		return errInvalidArgument("n", "SetMaxChildren requires n > 0")
	}
	d.mu.Lock()
	d.config.MaxChildren = n
	d.config.Unbounded = false
	promoted := d.drainLocked()
	d.broadcastLocked()
	d.mu.Unlock()
	for _, rec := range promoted {
		d.watch(rec)
	}
	return nil
}

// SetUnbounded removes the queue bound entirely and drains immediately.
func (d *Dispatcher) SetUnbounded() {
	d.mu.Lock()
	d.config.Unbounded = true
	promoted := d.drainLocked()
	d.broadcastLocked()
	d.mu.Unlock()
	for _, rec := range promoted {
		d.watch(rec)
	}
}

// SetEventLoop attaches or detaches an event-loop Adapter. Passing nil
// detaches the current adapter, returning the Dispatcher to synchronous
// multiplexer mode.
func (d *Dispatcher) SetEventLoop(a loop.Adapter) {
	d.mu.Lock()
	d.config.EventLoop = a
	d.mu.Unlock()
}

// Idle returns a Completion that resolves when no children remain
// registered, refreshed on every busy/idle cycle. When the Dispatcher
// is already idle the returned Completion is resolved, so Wait returns
// immediately. It is a convenience for event-loop-driven hosts; WaitAll
// works without ever calling this.
func (d *Dispatcher) Idle() *loop.Completion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// broadcastLocked wakes every Wait* call parked on the generation channel
// and maintains the idle completion across the empty/non-empty transition:
// going busy hands out a fresh unresolved completion, and going empty
// replaces it and signals the old one. Caller must hold d.mu.
func (d *Dispatcher) broadcastLocked() {
	close(d.changed)
	d.changed = make(chan struct{})

	switch empty := len(d.subprocs) == 0; {
	case !empty && !d.busy:
		d.busy = true
		d.idle = loop.NewCompletion(0)
	case empty && d.busy:
		d.busy = false
		old := d.idle
		d.idle = loop.NewCompletion(0)
		d.idle.Resolve(nil)
		old.Resolve(nil)
	}
}
