package dispatch

import (
	"github.com/ygrebnov/errorc"

	"github.com/kalind/dispatch/codec"
	"github.com/kalind/dispatch/loop"
	"github.com/kalind/dispatch/metrics"
	"github.com/kalind/dispatch/pool"
	"github.com/kalind/dispatch/transport"
)

// config holds Dispatcher configuration.
type config struct {
	// MaxChildren bounds the queue only; direct SubmitAsync calls bypass
	// it. Ignored when Unbounded is true.
	// Default: 5.
	MaxChildren int

	// Unbounded, when true, means the queue drains without limit.
	// Default: false.
	Unbounded bool

	// MaxFrameSize caps the decimal SIZE line a child may declare before
	// the reader treats it as a transport error.
	// Default: transport.DefaultMaxFrameSize.
	MaxFrameSize int64

	// Codec encodes/decodes the child's return value.
	// Default: codec.Gob{}.
	Codec codec.Codec

	// Metrics receives instrumentation; absent by default.
	// Default: metrics.NoopProvider{}.
	Metrics metrics.Provider

	// EventLoop, when set, switches the Dispatcher into adapter-driven
	// mode. Absent by default (synchronous multiplexer mode).
	EventLoop loop.Adapter

	// BufferPoolCapacity bounds the read-buffer pool's total buffered
	// memory. Zero (default) uses an unbounded sync.Pool-backed pool.
	BufferPoolCapacity uint
}

// defaultConfig centralizes default values for config, applied by New before
// options run.
func defaultConfig() config {
	return config{
		MaxChildren:        5,
		Unbounded:          false,
		MaxFrameSize:       transport.DefaultMaxFrameSize,
		Codec:              codec.Gob{},
		Metrics:            metrics.NoopProvider{},
		EventLoop:          nil,
		BufferPoolCapacity: 0,
	}
}

// validateConfig performs the invariant checks an Option cannot express
// locally (e.g. cross-field conflicts). Per-option validation lives next to
// each With* function.
func validateConfig(cfg *config) error {
	if !cfg.Unbounded && cfg.MaxChildren <= 0 {
		return errorc.With(ErrInvalidArgument, errorc.String("MaxChildren", "must be positive or Unbounded"))
	}
	if cfg.MaxFrameSize <= 0 {
		return errorc.With(ErrInvalidArgument, errorc.String("MaxFrameSize", "must be positive"))
	}
	if cfg.Codec == nil {
		return errorc.With(ErrInvalidArgument, errorc.String("Codec", "must not be nil"))
	}
	return nil
}

// bufferPool builds the read-buffer pool for the given configuration.
func (cfg *config) bufferPool() pool.Pool {
	newFn := func() interface{} { return make([]byte, 0, 4096) }
	if cfg.BufferPoolCapacity > 0 {
		return pool.NewFixed(cfg.BufferPoolCapacity, newFn)
	}
	return pool.NewDynamic(newFn)
}
