package dispatch

// IndexedWork builds the work for one position of a batch submission.
// Implementations typically close over shared inputs and return a Work
// bound to index i.
type IndexedWork func(index int) Work

// SubmitBatch submits n children, each built from make(i) for i in
// [0, n); n must be positive. Each sub-submission honors the
// callback-less/ordered-mode rule independently, exactly as n separate
// SubmitAsync calls would.
func (d *Dispatcher) SubmitBatch(n int, make IndexedWork, callback func(any)) (int, error) {
	if n <= 0 {
		return 0, errInvalidArgument("n", "SubmitBatch requires n > 0")
	}
	if make == nil {
		return 0, errInvalidArgument("make", "SubmitBatch requires a non-nil work factory")
	}

	origin := callerOrigin(1)
	for i := 0; i < n; i++ {
		if _, err := d.submitAsync(make(i), callback, origin); err != nil {
			return i, err
		}
	}
	return n, nil
}
