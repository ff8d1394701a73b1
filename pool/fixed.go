package pool

type fixed struct {
	available chan interface{}
	// all holds one token per element ever created; its buffer is the
	// creation budget, so newFn runs at most capacity times.
	all   chan interface{}
	newFn func() interface{}
}

// NewFixed returns a Pool that creates at most capacity elements. Once the
// budget is spent, Get blocks until a Put returns an element. A capacity of
// zero yields a pool whose Get never returns; callers must pass at least 1.
func NewFixed(capacity uint, newFn func() interface{}) Pool {
	return &fixed{
		available: make(chan interface{}, capacity),
		all:       make(chan interface{}, capacity),
		newFn:     newFn,
	}
}

func (p *fixed) Get() interface{} {
	select {
	case el := <-p.available:
		return el

	default:
	}

	select {
	case p.all <- struct{}{}:
		// Creation slot reserved before newFn runs, so concurrent Gets
		// can never overshoot the budget.
		return p.newFn()

	default:
		return <-p.available
	}
}

func (p *fixed) Put(el interface{}) {
	p.available <- el
}
