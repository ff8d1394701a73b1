// Package dispatch implements a parallel work-unit dispatcher: submit units
// of work to be executed in isolated OS subprocesses, collect their return
// values (or failures) back in the parent, and bound the degree of
// concurrency.
//
// Constructors
//   - New(opts ...Option) (*Dispatcher, error): builds a Dispatcher from
//     functional options.
//
// Execution model
// Go cannot safely fork() a running multi-threaded runtime, so work runs in
// subprocesses created by re-executing the host binary (see Init). Each
// Work value is gob-encoded to the child and its result framed back over a
// pipe (see the codec and transport subpackages). The host program must
// call Init() as the first statement of main(), before any flag parsing or
// goroutines start.
//
// Defaults
// Unless overridden, the following defaults apply to a newly constructed
// Dispatcher:
//   - MaxChildren: 5
//   - MaxFrameSize: transport.DefaultMaxFrameSize
//   - Codec: codec.Gob{}
//   - Metrics: metrics.NoopProvider{}
//
// Delivery modes
//   - Callback mode: SubmitAsync(work, fn) invokes fn once the child's
//     frame arrives.
//   - Ordered mode: SubmitAsync(work, nil) reserves a slot in an ordered
//     result sequence, filled whenever the child completes, independent of
//     completion order.
//
// Channel lifecycle
// Dispatcher owns no outward channels; results are delivered synchronously
// through WaitOne/WaitAll/WaitPid, or asynchronously through callbacks and,
// when an event-loop Adapter is attached, through that adapter.
package dispatch
