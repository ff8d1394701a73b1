package dispatch

import (
	"errors"
	"fmt"
)

// ChildError exposes the submission Origin a child failure or transport
// failure is tagged with.
type ChildError interface {
	error
	Unwrap() error
	ChildOrigin() Origin
}

type childFailureError struct {
	sentinel error
	origin   Origin
	detail   string
}

func (e *childFailureError) Error() string {
	return fmt.Sprintf("%s: child (created at %s) died with error: %s", e.sentinel.Error(), e.origin.String(), e.detail)
}

func (e *childFailureError) Unwrap() error { return e.sentinel }

func (e *childFailureError) ChildOrigin() Origin { return e.origin }

func newChildFailureError(origin Origin, detail string) error {
	return &childFailureError{sentinel: ErrChildFailure, origin: origin, detail: detail}
}

func newTransportFailureError(origin Origin, cause error) error {
	return &childFailureError{sentinel: ErrTransport, origin: origin, detail: cause.Error()}
}

// ExtractOrigin returns the submission Origin recorded on a ChildFailure or
// TransportError, when err (or something it wraps) is one.
func ExtractOrigin(err error) (Origin, bool) {
	var ce ChildError
	if errors.As(err, &ce) {
		return ce.ChildOrigin(), true
	}
	return Origin{}, false
}
