package dispatch

// Queue appends work to the pending sequence and attempts a drain. It
// returns true if at least one entry
// (not necessarily this one) was promoted during this call, false if
// max_children was already saturated.
func (d *Dispatcher) Queue(work Work, callback func(any)) (bool, error) {
	if work == nil {
		return false, errInvalidArgument("work", "Queue requires non-nil work")
	}

	origin := callerOrigin(1)

	d.mu.Lock()
	if err := d.takeDeferredErrLocked(); err != nil {
		d.mu.Unlock()
		return false, err
	}

	d.pending = append(d.pending, pendingEntry{work: work, callback: callback, origin: origin})
	promoted := d.drainLocked()
	d.broadcastLocked()
	d.mu.Unlock()

	for _, rec := range promoted {
		d.watch(rec)
	}

	return len(promoted) > 0, nil
}

// drainLocked is the sole promoter of pending. Caller must
// hold d.mu and, once unlocked, must call watch() on every record
// returned — drainLocked only spawns; it never starts a frame read itself,
// since that requires reading d.config.EventLoop under its own lock and
// would deadlock re-entering d.mu while the caller still holds it.
func (d *Dispatcher) drainLocked() []*childRecord {
	if len(d.pending) == 0 || d.deferredErr != nil {
		return nil
	}

	var promoted []*childRecord
	for len(d.pending) > 0 {
		if !d.config.Unbounded && len(d.subprocs) >= d.config.MaxChildren {
			break
		}

		entry := d.pending[0]
		d.pending = d.pending[1:]

		callback := entry.callback
		if callback == nil {
			// Ordered-slot assignment happens at promotion, not at queue
			// time, so indices reflect promotion order.
			callback = d.reserveOrderedSlotLocked()
		}

		rec, err := d.spawnLocked(entry.work, entry.origin, callback)
		if err != nil {
			if d.deferredErr == nil {
				d.deferredErr = err
			}
			return promoted
		}
		d.subprocs[rec.pid] = rec
		d.childrenSpawned.Add(1)
		d.childrenInFlt.Add(1)
		promoted = append(promoted, rec)
	}
	return promoted
}
