package dispatch

import "context"

// Work is one unit of work a child subprocess executes. Concrete
// implementations must be registered with encoding/gob (gob.Register) by
// host code before Init() is called, exactly as a value sent across any
// gob-encoded channel must be. Because a child is a re-exec of the same
// binary, the registrations performed by the host's own init() functions
// are already present when the child decodes its Work value from stdin.
type Work interface {
	Run(ctx context.Context) (any, error)
}

// There is deliberately no WorkFunc function-adapter here. The source
// model's fork() shares the parent's address space with the child, so an
// arbitrary closure runs fine there; this rewrite's children are separate
// exec'd processes reached only through gob, and gob can never encode a
// func value. Every Work implementation must be a named, gob-registered
// type.
