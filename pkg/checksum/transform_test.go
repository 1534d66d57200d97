package checksum

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/crcstream/pkg/stream"
)

// collect 在后台读取 Transform 直到结束
func collect(t *testing.T, tr *Transform) <-chan []byte {
	t.Helper()
	out := make(chan []byte, 1)
	go func() {
		var buf []byte
		for {
			chunk, err := tr.Next(context.Background())
			if err != nil {
				out <- buf
				return
			}
			buf = append(buf, chunk...)
		}
	}()
	return out
}

// feed 按给定分段写入并遵守背压
func feed(t *testing.T, tr *Transform, data []byte, sizes []int) {
	t.Helper()
	ctx := context.Background()
	off := 0
	for _, n := range sizes {
		ready, err := tr.Write(ctx, data[off:off+n])
		require.NoError(t, err)
		off += n
		if !ready {
			require.NoError(t, tr.Wait(ctx))
		}
	}
	require.Equal(t, len(data), off)
}

func recoverErr(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func TestTransform_RegressionPattern(t *testing.T) {
	data := pattern(20000)
	tr := NewTransform()
	out := collect(t, tr)

	// 不规则分段
	feed(t, tr, data, []int{1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 377, 610, 987, 1597, 2584, 4181, 6765, 2291})
	tr.End()

	d, err := tr.Digest()
	require.NoError(t, err)
	assert.Equal(t, uint32(4024292205), d.CRC32)
	assert.Equal(t, int64(20000), d.Size)
	assert.Equal(t, data, <-out)
	assert.Equal(t, StateCompleted, tr.State())
}

func TestTransform_ChunkingInvariance(t *testing.T) {
	data := pattern(20000)
	want := Sum(data)

	for _, hwm := range []int{1, 4, 64} {
		tr := NewTransform(WithHighWaterMark(hwm))
		out := collect(t, tr)

		sizes := make([]int, 0, 20000/7+1)
		for rest := len(data); rest > 0; rest -= 7 {
			sizes = append(sizes, min(7, rest))
		}
		feed(t, tr, data, sizes)
		tr.End()

		d, err := tr.Digest()
		require.NoError(t, err)
		assert.Equal(t, want, d.CRC32, "hwm %d", hwm)
		assert.Equal(t, data, <-out)
	}
}

func TestTransform_EmptyStream(t *testing.T) {
	tr := NewTransform()
	assert.Equal(t, StateIdle, tr.State())

	tr.End()

	d, err := tr.Digest()
	require.NoError(t, err)
	assert.Equal(t, Digest{CRC32: 0, Size: 0}, d)

	_, err = tr.Next(context.Background())
	assert.Equal(t, io.EOF, err)

	select {
	case <-tr.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestTransform_EmptyChunk(t *testing.T) {
	tr := NewTransform()

	ready, err := tr.Write(context.Background(), stream.Chunk{})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, StateAccumulating, tr.State())
	assert.Equal(t, int64(0), tr.RawSize())

	tr.End()
	d, err := tr.Digest()
	require.NoError(t, err)
	assert.Equal(t, Digest{}, d)
}

func TestTransform_PassThroughOrder(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(8))
	ctx := context.Background()

	inputs := []stream.Chunk{[]byte("a"), []byte("bc"), []byte("def"), []byte("ghij")}
	for _, c := range inputs {
		_, err := tr.Write(ctx, c)
		require.NoError(t, err)
	}
	tr.End()

	for _, want := range inputs {
		got, err := tr.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := tr.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestTransform_Backpressure(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(1))
	ctx := context.Background()

	ready, err := tr.Write(ctx, []byte("first"))
	require.NoError(t, err)
	assert.False(t, ready)

	// 下游未读取，Wait 超时
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Wait(waitCtx), context.DeadlineExceeded)

	// 下游读取后恢复
	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = tr.Next(ctx)
	}()
	require.NoError(t, tr.Wait(ctx))

	ready, err = tr.Write(ctx, []byte("second"))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, int64(11), tr.RawSize())
}

func TestTransform_WriteBlockedCancelled(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(1))
	ctx := context.Background()

	_, err := tr.Write(ctx, []byte("first"))
	require.NoError(t, err)

	writeCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = tr.Write(writeCtx, []byte("second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrAborted))

	// "second" 已计入累加器却没有交给下游，不能再产出摘要
	assert.Equal(t, StateErrored, tr.State())
	tr.End()
	assert.Equal(t, StateErrored, tr.State())

	_, err = tr.Digest()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = tr.Next(ctx)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(tr.Wait(ctx), ErrAborted))
}

func TestTransform_WaitAfterFailure(t *testing.T) {
	ctx := context.Background()

	// 队列有空位时 Wait 同样返回失败原因
	tr := NewTransform(WithHighWaterMark(4))
	tr.Error(errors.New("upstream gone"))
	err := tr.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))

	// 失败清空了队列，之后的 Write 也不会报告 ready
	tr = NewTransform(WithHighWaterMark(1))
	_, err = tr.Write(ctx, []byte("first"))
	require.NoError(t, err)
	tr.Abort(nil)
	ready, err := tr.Write(ctx, []byte("second"))
	assert.False(t, ready)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(tr.Wait(ctx), ErrAborted))
}

func TestTransform_AbortRacesBlockedWrite(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 200; i++ {
		tr := NewTransform(WithHighWaterMark(1))
		_, err := tr.Write(ctx, []byte("first"))
		require.NoError(t, err)

		type result struct {
			ready bool
			err   error
		}
		resCh := make(chan result, 1)
		go func() {
			ready, err := tr.Write(ctx, []byte("second"))
			resCh <- result{ready, err}
		}()
		tr.Abort(context.Canceled)

		res := <-resCh
		assert.False(t, res.ready)
		require.Error(t, res.err, "iteration %d", i)
		assert.True(t, errors.Is(res.err, ErrAborted))
	}
}

func TestTransform_RawSizeMonotonic(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(100))
	ctx := context.Background()

	var last int64
	for i := 1; i <= 50; i++ {
		_, err := tr.Write(ctx, make([]byte, i))
		require.NoError(t, err)
		size := tr.RawSize()
		assert.GreaterOrEqual(t, size, last)
		last = size
	}
	assert.Equal(t, int64(50*51/2), last)
}

func TestTransform_DigestBeforeEnd(t *testing.T) {
	tr := NewTransform()

	_, err := tr.Digest()
	assert.ErrorIs(t, err, ErrNotFinalized)

	_, err = tr.Write(context.Background(), []byte("partial"))
	require.NoError(t, err)

	_, err = tr.Digest()
	assert.ErrorIs(t, err, ErrNotFinalized)
}

func TestTransform_UpstreamError(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(4))
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := tr.Write(ctx, []byte("data"))
	require.NoError(t, err)

	tr.Error(boom)
	assert.Equal(t, StateErrored, tr.State())

	_, err = tr.Digest()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Equal(t, "boom", err.Error())

	// 失败后排队的块被丢弃，下游直接拿到错误
	_, err = tr.Next(ctx)
	assert.ErrorIs(t, err, boom)

	// 终态不再变化
	_, err = tr.Write(ctx, []byte("more"))
	assert.ErrorIs(t, err, boom)
	tr.End()
	tr.Error(errors.New("second"))
	assert.Equal(t, StateErrored, tr.State())

	_, err = tr.Digest()
	assert.ErrorIs(t, err, boom)
}

func TestTransform_ErrorUnblocksWriter(t *testing.T) {
	tr := NewTransform(WithHighWaterMark(1))
	ctx := context.Background()

	_, err := tr.Write(ctx, []byte("first"))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.Write(ctx, []byte("second"))
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tr.Abort(context.Canceled)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, errors.Is(err, ErrAborted))
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after abort")
	}

	assert.True(t, errors.Is(tr.Wait(ctx), ErrAborted))
}

func TestTransform_ProtocolViolation(t *testing.T) {
	t.Run("end twice", func(t *testing.T) {
		tr := NewTransform()
		tr.End()
		err := recoverErr(tr.End)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrProtocolViolation))
	})

	t.Run("write after end", func(t *testing.T) {
		tr := NewTransform()
		tr.End()
		err := recoverErr(func() {
			_, _ = tr.Write(context.Background(), []byte("late"))
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrProtocolViolation))
	})

	t.Run("concurrent write", func(t *testing.T) {
		tr := NewTransform()
		tr.writing.Store(true)
		assert.Panics(t, func() {
			_, _ = tr.Write(context.Background(), []byte("x"))
		})
		assert.Panics(t, tr.End)
	})
}

type recordingObserver struct {
	mu       sync.Mutex
	bytes    int
	chunks   int
	complete []Digest
	errs     []error
}

func (o *recordingObserver) OnChunk(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunks++
	o.bytes += n
}

func (o *recordingObserver) OnComplete(d Digest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.complete = append(o.complete, d)
}

func (o *recordingObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func TestTransform_Observer(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	tr := NewTransform(WithObserver(MultiObserver{a, b}), WithHighWaterMark(4), WithID("obs"))
	assert.Equal(t, "obs", tr.ID())

	ctx := context.Background()
	_, _ = tr.Write(ctx, []byte("hello "))
	_, _ = tr.Write(ctx, []byte("world"))
	tr.End()

	for _, o := range []*recordingObserver{a, b} {
		assert.Equal(t, 2, o.chunks)
		assert.Equal(t, 11, o.bytes)
		assert.Equal(t, []Digest{{CRC32: 222957957, Size: 11}}, o.complete)
		assert.Empty(t, o.errs)
	}

	failing := &recordingObserver{}
	tr = NewTransform(WithObserver(failing))
	tr.Error(errors.New("x"))
	assert.Len(t, failing.errs, 1)
	assert.Empty(t, failing.complete)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "accumulating", StateAccumulating.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateErrored.Terminal())
	assert.False(t, StateAccumulating.Terminal())
}

func BenchmarkTransform(b *testing.B) {
	chunk := make([]byte, 64*1024)
	ctx := context.Background()

	b.SetBytes(int64(len(chunk)))
	tr := NewTransform(WithHighWaterMark(16))
	go func() {
		for {
			if _, err := tr.Next(ctx); err != nil {
				return
			}
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ready, err := tr.Write(ctx, chunk)
		if err != nil {
			b.Fatal(err)
		}
		if !ready {
			_ = tr.Wait(ctx)
		}
	}
	tr.End()
}
