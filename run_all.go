package dispatch

import (
	"context"
	"errors"
)

// RunBatch submits n children built from make via SubmitBatch and waits
// for every one of them to complete: it owns the whole submit/wait
// lifecycle for one batch and
// returns every result together with every failure, joined with
// errors.Join, rather than surfacing only the first one the way a raw
// WaitAll call does. Individual child failures do not stop the batch from
// draining to completion; RunBatch keeps calling WaitAll until the
// dispatcher is idle.
func RunBatch(ctx context.Context, d *Dispatcher, n int, make IndexedWork) ([]any, error) {
	if _, err := d.SubmitBatch(n, make, nil); err != nil {
		return nil, err
	}

	var errs []error
	for {
		results, err := d.WaitAll(ctx)
		switch {
		case err == nil:
			return results, errors.Join(errs...)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, errors.Join(append(errs, err)...)
		default:
			errs = append(errs, err)
		}
	}
}
