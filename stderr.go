package dispatch

import (
	"bufio"
	"io"

	"github.com/tliron/commonlog"
)

// stderrBridge forwards a child's stderr into the host's logger line by
// line. A child's stderr carries only
// incidental diagnostics; its actual failure always travels as an ERROR
// frame, never through this path.
type stderrBridge struct {
	w      *io.PipeWriter
	logger commonlog.Logger
}

func newStderrBridge(logger commonlog.Logger) *stderrBridge {
	r, w := io.Pipe()
	b := &stderrBridge{w: w, logger: logger}
	go b.pump(r)
	return b
}

func (b *stderrBridge) pump(r *io.PipeReader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		b.logger.Warningf("child stderr: %s", scanner.Text())
	}
}

func (b *stderrBridge) Write(p []byte) (int, error) { return b.w.Write(p) }

func (b *stderrBridge) Close() error { return b.w.Close() }
