package loop

import "sync"

// CallbackAdapter is the general form of Adapter: it runs readFrame on its
// own goroutine per child and reports the result through a host-supplied
// callback, letting any external reactor (an epoll/kqueue wrapper, a custom
// scheduler) receive completions without the dispatcher knowing its shape.
type CallbackAdapter struct {
	onComplete func(pid int, err error)

	mu     sync.Mutex
	active map[int]chan struct{}
}

// NewCallbackAdapter wraps onComplete, invoked once per watched child from
// the goroutine that ran its readFrame.
func NewCallbackAdapter(onComplete func(pid int, err error)) *CallbackAdapter {
	return &CallbackAdapter{
		onComplete: onComplete,
		active:     make(map[int]chan struct{}),
	}
}

func (a *CallbackAdapter) Watch(pid int, readFrame func() error) {
	stop := make(chan struct{})

	a.mu.Lock()
	a.active[pid] = stop
	a.mu.Unlock()

	go func() {
		err := readFrame()

		a.mu.Lock()
		_, live := a.active[pid]
		delete(a.active, pid)
		a.mu.Unlock()

		if live {
			a.onComplete(pid, err)
		}
	}()
}

func (a *CallbackAdapter) Detach(pid int) {
	a.mu.Lock()
	delete(a.active, pid)
	a.mu.Unlock()
}
