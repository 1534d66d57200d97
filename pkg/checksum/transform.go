package checksum

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

// State Transform 生命周期状态
type State int32

const (
	StateIdle State = iota
	StateAccumulating
	StateCompleted
	StateErrored
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateAccumulating: "accumulating",
	StateCompleted:    "completed",
	StateErrored:      "errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal 是否为终态
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// Transform 直通的 CRC-32 计算流
//
// 写入方通过 Write 推入数据块，每个块先折叠进 CRC 累加器，然后原样交给下游；
// 下游通过 Next 按写入顺序取回同一批块。Transform 自身实现 stream.Source。
//
// 背压：下游队列最多容纳 HighWaterMark 个块，Write 返回 ready=false 时
// 写入方应调用 Wait 直到下游取走数据。
//
// 终态：End 之后 Digest 可用且不再变化；Error 或 Abort 之后 Digest 返回该错误，
// 未被下游取走的块全部丢弃。两个终态都不接受后续写入。
//
// 线程安全：Write、End 只能由单一写入方调用；Next 只能由单一读取方调用；
// State、RawSize、Digest、Error、Abort 可在任意 goroutine 调用。
type Transform struct {
	id            string
	highWaterMark int
	logger        logger.Logger
	observer      Observer

	acc     Accumulator // 只由写入方修改
	size    atomic.Int64
	state   atomic.Int32
	writing atomic.Bool

	queue   chan stream.Chunk
	drained chan struct{}
	failed  chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	digest Digest
	err    error
}

var _ stream.Source = (*Transform)(nil)

// NewTransform 创建 Transform
func NewTransform(opts ...Option) *Transform {
	t := &Transform{
		highWaterMark: 1,
		logger:        logger.NewNoop(),
		observer:      noopObserver{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	t.logger = t.logger.Named("checksum").WithFields("stream_id", t.id)

	t.queue = make(chan stream.Chunk, t.highWaterMark)
	t.drained = make(chan struct{}, 1)
	t.failed = make(chan struct{})
	t.done = make(chan struct{})
	return t
}

// ID 返回 Transform ID
func (t *Transform) ID() string {
	return t.id
}

// State 返回当前状态
func (t *Transform) State() State {
	return State(t.state.Load())
}

// RawSize 返回已写入的字节数，单调不减，任意时刻可读
func (t *Transform) RawSize() int64 {
	return t.size.Load()
}

// Done 在进入终态时关闭
func (t *Transform) Done() <-chan struct{} {
	return t.done
}

// Write 写入一个数据块
// 返回 ready=false 表示下游队列已满，写入方应先 Wait 再继续写入。
// 数据块在交给下游后归下游所有，写入方不得再修改。
// End 之后调用或并发调用 Write 会 panic。
func (t *Transform) Write(ctx context.Context, chunk stream.Chunk) (bool, error) {
	if !t.writing.CAS(false, true) {
		panic(protocolViolation("concurrent Write on checksum stream %s", t.id))
	}
	defer t.writing.Store(false)

	switch t.State() {
	case StateCompleted:
		panic(protocolViolation("Write after End on checksum stream %s", t.id))
	case StateErrored:
		return false, t.Err()
	}
	t.state.CAS(int32(StateIdle), int32(StateAccumulating))

	if len(chunk) == 0 {
		return t.ready(), nil
	}

	t.acc.Update(chunk)
	t.size.Add(int64(len(chunk)))
	t.observer.OnChunk(len(chunk))

	select {
	case t.queue <- chunk:
	case <-t.failed:
		return false, t.Err()
	case <-ctx.Done():
		// 块已计入摘要却未交给下游，流不能再正常结束
		t.Abort(ctx.Err())
		return false, t.Err()
	}
	// fail 清空队列后发送与 failed 可能同时就绪
	select {
	case <-t.failed:
		return false, t.Err()
	default:
	}
	return t.ready(), nil
}

func (t *Transform) ready() bool {
	return len(t.queue) < cap(t.queue)
}

// Wait 阻塞直到下游队列有空位、流失败或 ctx 结束
func (t *Transform) Wait(ctx context.Context) error {
	select {
	case <-t.failed:
		return t.Err()
	default:
	}
	for !t.ready() {
		select {
		case <-t.drained:
		case <-t.failed:
			return t.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// End 结束写入并生成最终摘要
// 重复调用或与 Write 并发调用会 panic；已失败的流上调用为空操作。
func (t *Transform) End() {
	if t.writing.Load() {
		panic(protocolViolation("End during Write on checksum stream %s", t.id))
	}

	t.mu.Lock()
	switch t.State() {
	case StateCompleted:
		t.mu.Unlock()
		panic(protocolViolation("End called twice on checksum stream %s", t.id))
	case StateErrored:
		t.mu.Unlock()
		return
	}

	t.digest = Digest{CRC32: t.acc.Sum32(), Size: t.size.Load()}
	t.state.Store(int32(StateCompleted))
	close(t.queue)
	close(t.done)
	d := t.digest
	t.mu.Unlock()

	t.observer.OnComplete(d)
	t.logger.Debug("checksum stream completed", "crc32", d.CRC32, "size", d.Size)
}

// Error 上游报告失败，流转入错误终态
// 返回的错误保持原始消息并可通过 errors.Is 匹配 ErrUpstream 与原始错误。
func (t *Transform) Error(err error) {
	if err == nil {
		err = errors.New("unknown upstream error")
	}
	t.fail(errors.Mark(err, ErrUpstream))
}

// Abort 外部中止，流转入错误终态
func (t *Transform) Abort(err error) {
	if err == nil {
		err = errors.New("aborted")
	}
	t.fail(errors.Mark(err, ErrAborted))
}

func (t *Transform) fail(err error) {
	t.mu.Lock()
	if t.State().Terminal() {
		t.mu.Unlock()
		return
	}
	t.err = err
	t.state.Store(int32(StateErrored))
	close(t.failed)
	close(t.done)
	t.mu.Unlock()

	// 丢弃下游尚未取走的块
	for {
		select {
		case <-t.queue:
			continue
		default:
		}
		break
	}

	t.observer.OnError(err)
	t.logger.Warn("checksum stream failed", "error", err, "size", t.size.Load())
}

// Err 返回失败原因，未失败时为 nil
func (t *Transform) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Digest 返回最终摘要
// 未结束时返回 ErrNotFinalized，失败时返回失败原因。
func (t *Transform) Digest() (Digest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.State() {
	case StateCompleted:
		return t.digest, nil
	case StateErrored:
		return Digest{}, t.err
	default:
		return Digest{}, errors.Wrapf(ErrNotFinalized, "stream %s is %s", t.id, t.State())
	}
}

// Next 实现 stream.Source，按写入顺序返回数据块
// 正常结束返回 io.EOF，失败时返回失败原因。
func (t *Transform) Next(ctx context.Context) (stream.Chunk, error) {
	select {
	case <-t.failed:
		return nil, t.Err()
	default:
	}

	select {
	case chunk, ok := <-t.queue:
		if !ok {
			return nil, io.EOF
		}
		select {
		case <-t.failed:
			return nil, t.Err()
		default:
		}
		select {
		case t.drained <- struct{}{}:
		default:
		}
		return chunk, nil
	case <-t.failed:
		return nil, t.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
