package loop

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ReadyMsg is sent to a Bubble Tea program's Update function when a child
// completes. A program embedding BubbleteaAdapter should handle this
// message by invoking Dispatcher.WaitPid(msg.Pid, ...) (or WaitOne), which
// returns immediately since the frame has already been read and decoded.
type ReadyMsg struct {
	Pid int
	Err error
}

// BubbleteaAdapter integrates the Dispatcher's readiness notifications with
// a github.com/charmbracelet/bubbletea program: each watched child's frame
// is read on a dedicated goroutine (the same blocking read the
// dispatcher's own synchronous multiplexer would perform), and the result
// is delivered into the program's own Update cycle via tea.Program.Send.
type BubbleteaAdapter struct {
	program *tea.Program

	mu     sync.Mutex
	active map[int]bool
}

// NewBubbleteaAdapter wires completions into program via program.Send.
func NewBubbleteaAdapter(program *tea.Program) *BubbleteaAdapter {
	return &BubbleteaAdapter{
		program: program,
		active:  make(map[int]bool),
	}
}

func (a *BubbleteaAdapter) Watch(pid int, readFrame func() error) {
	a.mu.Lock()
	a.active[pid] = true
	a.mu.Unlock()

	go func() {
		err := readFrame()

		a.mu.Lock()
		live := a.active[pid]
		delete(a.active, pid)
		a.mu.Unlock()

		if live {
			a.program.Send(ReadyMsg{Pid: pid, Err: err})
		}
	}()
}

func (a *BubbleteaAdapter) Detach(pid int) {
	a.mu.Lock()
	delete(a.active, pid)
	a.mu.Unlock()
}
