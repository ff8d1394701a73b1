package dispatch

import (
	"errors"

	"github.com/ygrebnov/errorc"
)

// Namespace prefixes every sentinel error this package defines.
const Namespace = "dispatch"

// Sentinel errors forming this package's failure taxonomy. Wrap these with
// errorc.With(...) to attach structured context; callers should match on
// these sentinels with errors.Is, not on formatted message text.
var (
	// ErrInvalidArgument is returned synchronously from a submission entry
	// point when its arguments fail validation (non-callable work,
	// non-positive n, non-positive max children, ...).
	ErrInvalidArgument = errors.New(Namespace + ": invalid argument")

	// ErrChildFailure wraps a failure that happened inside a child's work
	// function, a panic recovered there, or an encoding rejection of its
	// return value. Composed with the submission's Origin before being
	// raised or latched into deferred_error.
	ErrChildFailure = errors.New(Namespace + ": child failed")

	// ErrUnserializableResult's text leads the detail of a ChildFailure
	// whose cause is the codec rejecting the work function's return value.
	// The child sends it as ERROR-frame text, so the error the parent
	// raises wraps ErrChildFailure and errors.Is does not match this
	// sentinel; only the message carries it.
	ErrUnserializableResult = errors.New(Namespace + ": result is not representable by the configured codec")

	// ErrTransport marks a framing failure: EOF before a frame's payload
	// was fully read, or an inconsistent TYPE/SIZE line.
	ErrTransport = errors.New(Namespace + ": could not read child data")

	// ErrDispatcherState is used for DispatcherStateWarning: live children
	// remained registered when the owning Dispatcher was closed.
	ErrDispatcherState = errors.New(Namespace + ": dispatcher closed with live children")
)

// errInvalidArgument builds an ErrInvalidArgument with a named field, the
// shape every validation path in this package uses.
func errInvalidArgument(field, msg string) error {
	return errorc.With(ErrInvalidArgument, errorc.String(field, msg))
}
