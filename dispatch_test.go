package dispatch

import (
	"context"
	"encoding/gob"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kalind/dispatch/codec"
)

// TestMain wires Init() the same way a host's main() must: before anything
// else runs. When this test binary is re-exec'd as a dispatch child (the
// mechanism every test below exercises for real, via actual subprocesses),
// Init() runs the Child Runner and exits before m.Run() is ever reached.
func TestMain(m *testing.M) {
	Init()
	os.Exit(m.Run())
}

type sleepWork struct {
	Value int
	Sleep time.Duration
}

func (w sleepWork) Run(ctx context.Context) (any, error) {
	time.Sleep(w.Sleep)
	return w.Value, nil
}

type squareWork struct{ N int }

func (w squareWork) Run(ctx context.Context) (any, error) {
	return w.N * w.N, nil
}

type failingWork struct{ Message string }

func (w failingWork) Run(ctx context.Context) (any, error) {
	return nil, errFailing{w.Message}
}

// errFailing's Error() text is what the child sends in its ERROR frame.
type errFailing struct{ msg string }

func (e errFailing) Error() string { return e.msg }

type writeFileWork struct{ Path string }

func (w writeFileWork) Run(ctx context.Context) (any, error) {
	return nil, os.WriteFile(w.Path, []byte("done"), 0o600)
}

func init() {
	gob.Register(sleepWork{})
	gob.Register(squareWork{})
	gob.Register(failingWork{})
	gob.Register(writeFileWork{})
}

func TestSubmitAsync_OrderedModeIgnoresCompletionOrder(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	// Sleep durations are chosen so completion order is 2, 3, 1.
	_, err = d.SubmitAsync(sleepWork{Value: 1, Sleep: 150 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = d.SubmitAsync(sleepWork{Value: 2, Sleep: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = d.SubmitAsync(sleepWork{Value: 3, Sleep: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{1, 2, 3}, results)
}

func TestQueue_BoundedConcurrency(t *testing.T) {
	d, err := New(WithMaxChildren(2))
	require.NoError(t, err)
	defer d.Close()

	for i := 0; i < 5; i++ {
		_, err := d.Queue(sleepWork{Value: i, Sleep: 50 * time.Millisecond}, nil)
		require.NoError(t, err)
	}

	require.Equal(t, 2, d.Count())
	require.Equal(t, 3, d.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, d.Count())
	require.Len(t, results, 5)
}

func TestChildFailure_SurfacesWithOrigin(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SubmitAsync(failingWork{Message: "boom"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, waitErr := d.WaitAll(ctx)
	require.Error(t, waitErr)
	require.Contains(t, waitErr.Error(), "boom")

	origin, ok := ExtractOrigin(waitErr)
	require.True(t, ok)
	require.True(t, strings.HasSuffix(origin.File, "dispatch_test.go"))
}

func TestSubmitBatch_PassesIndex(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	n, err := d.SubmitBatch(4, func(i int) Work { return squareWork{N: i} }, nil)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{0, 1, 4, 9}, results)
}

func TestWaitPid_UnknownPidReturnsNilWithoutError(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	value, ok, err := d.WaitPid(context.Background(), 999999)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, value)
}

func TestWaitAll_IdleReturnsEmptyWithoutBlocking(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestStartDetached_DoesNotCountAndWritesFile(t *testing.T) {
	d, err := New()
	require.NoError(t, err)

	path := t.TempDir() + "/detached.txt"
	require.NoError(t, d.StartDetached(writeFileWork{Path: path}))
	require.Equal(t, 0, d.Count())

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, d.Close())
}

func TestSubmitAsync_InvalidArgument(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SubmitAsync(nil, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSubmitAsync_Callback(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	received := make(chan any, 1)
	_, err = d.SubmitAsync(squareWork{N: 6}, func(v any) { received <- v })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = d.WaitAll(ctx)
	require.NoError(t, err)

	select {
	case v := <-received:
		require.Equal(t, 36, v)
	default:
		t.Fatal("callback was never invoked")
	}
}

type chanWork struct{}

func (chanWork) Run(ctx context.Context) (any, error) {
	return make(chan int), nil
}

type frozenResult struct{ Tag string }

func (f frozenResult) Freeze() (string, []byte, error) {
	return "frozen-result", []byte(f.Tag), nil
}

type frozenWork struct{ Tag string }

func (w frozenWork) Run(ctx context.Context) (any, error) {
	return frozenResult{Tag: w.Tag}, nil
}

func init() {
	gob.Register(chanWork{})
	gob.Register(frozenWork{})
	codec.RegisterThawer("frozen-result", func(body []byte) (any, error) {
		return frozenResult{Tag: string(body)}, nil
	})
}

func TestUnserializableResult_SurfacesAsChildFailure(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SubmitAsync(chanWork{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, waitErr := d.WaitAll(ctx)
	require.Error(t, waitErr)
	require.Contains(t, waitErr.Error(), "not representable")
}

func TestFreezeThawHook_DeliversThroughChild(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SubmitAsync(frozenWork{Tag: "payload"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{frozenResult{Tag: "payload"}}, results)
}

func TestSetMaxChildren_RaisingBoundPromotesQueuedWork(t *testing.T) {
	d, err := New(WithMaxChildren(1))
	require.NoError(t, err)
	defer d.Close()

	for i := 0; i < 4; i++ {
		_, err := d.Queue(sleepWork{Value: i, Sleep: 200 * time.Millisecond}, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 1, d.Count())
	require.Equal(t, 3, d.Pending())

	require.NoError(t, d.SetMaxChildren(3))
	require.Equal(t, 3, d.Count())
	require.Equal(t, 1, d.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{0, 1, 2, 3}, results)
}

func TestWaitPid_DeliversThatChildsValue(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	pid, err := d.SubmitAsync(sleepWork{Value: 49, Sleep: 200 * time.Millisecond}, func(any) {})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	value, ok, err := d.WaitPid(ctx, pid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 49, value)
	require.Equal(t, 0, d.Count())
}

func TestQueue_ReportsPromotionVsSaturation(t *testing.T) {
	d, err := New(WithMaxChildren(1))
	require.NoError(t, err)
	defer d.Close()

	promoted, err := d.Queue(sleepWork{Value: 1, Sleep: 100 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.True(t, promoted)

	promoted, err = d.Queue(sleepWork{Value: 2, Sleep: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.False(t, promoted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, results)
}

func TestChildFailure_ClearsAfterBeingRaised(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SubmitAsync(failingWork{Message: "once"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, waitErr := d.WaitAll(ctx)
	require.Error(t, waitErr)

	// The latch is consumed by the raise; the dispatcher is clean again.
	results, err := d.WaitAll(ctx)
	require.NoError(t, err)
	require.Empty(t, results)
}
