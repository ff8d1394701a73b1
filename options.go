package dispatch

import (
	"github.com/ygrebnov/errorc"

	"github.com/kalind/dispatch/codec"
	"github.com/kalind/dispatch/loop"
	"github.com/kalind/dispatch/metrics"
)

// Option configures a Dispatcher. Use New(opts...) to construct one.
// Options return an error on invalid input rather than panicking, so a
// bad value surfaces synchronously from the caller's own entry point.
type Option func(*config) error

// WithMaxChildren bounds how many queued entries may be promoted
// concurrently (must be > 0). Direct SubmitAsync calls are never bounded by
// this. Default: 5.
func WithMaxChildren(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidArgument, errorc.String("n", "WithMaxChildren requires n > 0"))
		}
		cfg.MaxChildren = n
		cfg.Unbounded = false
		return nil
	}
}

// WithUnboundedChildren removes the queue bound entirely.
func WithUnboundedChildren() Option {
	return func(cfg *config) error {
		cfg.Unbounded = true
		return nil
	}
}

// WithMaxFrameSize caps the SIZE a child's frame may declare.
func WithMaxFrameSize(n int64) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidArgument, errorc.String("n", "WithMaxFrameSize requires n > 0"))
		}
		cfg.MaxFrameSize = n
		return nil
	}
}

// WithCodec selects the codec used to encode/decode a child's return value.
func WithCodec(c codec.Codec) Option {
	return func(cfg *config) error {
		if c == nil {
			return errorc.With(ErrInvalidArgument, errorc.String("c", "WithCodec requires a non-nil Codec"))
		}
		cfg.Codec = c
		return nil
	}
}

// WithMetrics attaches a metrics.Provider for dispatcher instrumentation.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidArgument, errorc.String("p", "WithMetrics requires a non-nil Provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithEventLoop attaches an event-loop Adapter, switching the Dispatcher
// into adapter-driven mode. Only one adapter may be active;
// calling this again replaces it (and SetEventLoop(nil) detaches it).
func WithEventLoop(a loop.Adapter) Option {
	return func(cfg *config) error {
		cfg.EventLoop = a
		return nil
	}
}

// WithBufferPoolCapacity bounds the total number of reusable read-buffers
// the transport layer keeps around. Zero (default) is unbounded.
func WithBufferPoolCapacity(n uint) Option {
	return func(cfg *config) error {
		cfg.BufferPoolCapacity = n
		return nil
	}
}
