package dispatch

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/kalind/dispatch/codec"
	"github.com/kalind/dispatch/transport"
)

// childResultFD is the file descriptor of the result pipe's write end
// inside the child: fd 0-2 are stdin/stdout/stderr, and cmd.ExtraFiles[0]
// lands at fd 3 (exec.Cmd's documented convention).
const childResultFD = 3

// runChild is the child-side half of a submission. It never returns
// normal errors to its caller: every failure becomes an ERROR frame, and the
// process always exits 0 (the child must never propagate failure by exit
// code; the parent's only visibility into a failure is the frame itself).
func runChild() {
	result := os.NewFile(childResultFD, "dispatch-child-result")
	defer result.Close()

	resetAllDispatchers()

	c := codecForName(os.Getenv(childCodecEnv))

	var work Work
	if err := gob.NewDecoder(os.Stdin).Decode(&work); err != nil {
		writeErrorFrame(result, fmt.Sprintf("could not decode work: %v", err))
		return
	}

	value, err := runWork(work)
	if err != nil {
		writeErrorFrame(result, err.Error())
		return
	}

	payload, err := codec.Encode(c, value)
	if err != nil {
		writeErrorFrame(result, fmt.Sprintf("%s: %v", ErrUnserializableResult.Error(), err))
		return
	}
	if err := transport.WriteFrame(result, transport.TypeResult, payload); err != nil {
		// Nothing left to tell the parent; it will see a transport error
		// when the pipe closes short of a complete frame.
		return
	}
}

// runWork executes work, converting a panic into an ordinary error so the
// Child Runner's caller always gets a (value, error) pair to turn into a
// frame.
func runWork(work Work) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return work.Run(context.Background())
}

func writeErrorFrame(w *os.File, msg string) {
	_ = transport.WriteFrame(w, transport.TypeError, []byte(msg))
}

func codecForName(name string) codec.Codec {
	switch name {
	case "cbor":
		return codec.CBOR{}
	default:
		return codec.Gob{}
	}
}

// codecName is the inverse of codecForName, used by the parent when
// spawning a child to tell it which codec to encode its result with.
func codecName(c codec.Codec) string {
	switch c.(type) {
	case codec.CBOR:
		return "cbor"
	default:
		return "gob"
	}
}
