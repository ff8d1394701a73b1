package dispatch

import "os"

// childMarkerEnv is a library-private environment variable, never a
// user-facing configuration key, that tells a re-exec'd process it is a
// dispatch child rather than the host's own main(). Mirrors the
// reexec.Init() marker pattern (containerd/reexec, Docker's early daemon
// bootstrap).
const childMarkerEnv = "__DISPATCH_CHILD__"
const childMarkerValue = "1"

// childCodecEnv names which codec the child should use to encode its
// RESULT/ERROR payload, so it matches the Codec the spawning Dispatcher was
// configured with even though the child is a fresh process with no access
// to that Dispatcher value.
const childCodecEnv = "__DISPATCH_CHILD_CODEC__"

// Init must be the first statement of the host program's main(), before
// flag parsing or any goroutine starts. If the current process was
// re-exec'd as a dispatch child, Init runs the child runner and
// terminates the process; it never returns in that case. Otherwise it
// returns immediately and the host's main() proceeds normally.
func Init() {
	if os.Getenv(childMarkerEnv) != childMarkerValue {
		return
	}
	runChild()
	os.Exit(0)
}
