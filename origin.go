package dispatch

import (
	"fmt"
	"runtime"
)

// Origin identifies the source location a child was submitted from,
// carried so a child-failure message can say where the work was created.
type Origin struct {
	File string
	Line int
}

func (o Origin) String() string {
	if o.File == "" {
		return "unknown location"
	}
	return fmt.Sprintf("%s line %d", o.File, o.Line)
}

// callerOrigin captures the call site skip frames above it. skip=0 names
// the function calling callerOrigin itself.
func callerOrigin(skip int) Origin {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Origin{}
	}
	return Origin{File: file, Line: line}
}
