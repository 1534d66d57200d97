// pkg/stream/legacy.go
package stream

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/pool/bytebuff"
	"github.com/valyala/bytebufferpool"
)

var _ Source = (*LegacyAdapter)(nil)

// LegacyAdapter 将不支持背压的推送源适配为拉取式 Source
//
// 推送的每个块先复制进池化缓冲区再入队，队列受 MaxBufferedBytes 与
// MaxBufferedChunks 约束。队列为空时总能接收一块，避免单块超限时死锁。
// 超限时按 OverflowPolicy 阻塞推送方或以 ErrBufferOverflow 终止。
// 结束、错误与溢出都排在已入队的数据之后转交。
type LegacyAdapter struct {
	emitter Emitter
	config  *Config
	logger  logger.Logger
	pool    *bytebuff.ChunkPool

	subscribeOnce sync.Once

	mu       sync.Mutex
	queue    []*bytebufferpool.ByteBuffer
	buffered int
	ended    bool
	err      error // 推送方报告的错误或溢出，排在队列之后
	closed   bool

	avail   chan struct{} // 有新事件
	space   chan struct{} // 队列腾出空间
	closeCh chan struct{}
}

// NewLegacyAdapter 创建旧式数据源适配器
func NewLegacyAdapter(e Emitter, opts ...Option) *LegacyAdapter {
	return newLegacyAdapter(e, newOptions(opts...))
}

func newLegacyAdapter(e Emitter, o *options) *LegacyAdapter {
	return &LegacyAdapter{
		emitter: e,
		config:  o.config,
		logger:  o.logger.Named("legacy"),
		pool:    o.pool,
		avail:   make(chan struct{}, 1),
		space:   make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Next 返回下一个块
// 第一次调用时才订阅推送源，之前不会预读任何数据
func (a *LegacyAdapter) Next(ctx context.Context) (Chunk, error) {
	a.subscribeOnce.Do(func() {
		go a.emitter.Subscribe(legacyHandler{a})
	})

	for {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return nil, ErrClosed
		}
		if len(a.queue) > 0 {
			buf := a.queue[0]
			a.queue[0] = nil
			a.queue = a.queue[1:]
			a.buffered -= buf.Len()
			chunk := make(Chunk, buf.Len())
			copy(chunk, buf.B)
			a.pool.Put(buf)
			a.mu.Unlock()
			notify(a.space)
			return chunk, nil
		}
		if a.err != nil {
			err := a.err
			a.mu.Unlock()
			return nil, err
		}
		if a.ended {
			a.mu.Unlock()
			return nil, io.EOF
		}
		a.mu.Unlock()

		select {
		case <-a.avail:
		case <-a.closeCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Buffered 返回当前缓冲的块数与字节数
func (a *LegacyAdapter) Buffered() (chunks, bytes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue), a.buffered
}

// Close 停止推送源并释放全部缓冲区
func (a *LegacyAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.releaseLocked()
	close(a.closeCh)
	a.mu.Unlock()

	a.stopEmitter()
	return nil
}

func (a *LegacyAdapter) stopEmitter() {
	if s, ok := a.emitter.(Stopper); ok {
		s.Stop()
	}
}

// releaseLocked 归还队列中的缓冲区，调用方持有 mu
func (a *LegacyAdapter) releaseLocked() {
	for i, buf := range a.queue {
		a.pool.Put(buf)
		a.queue[i] = nil
	}
	a.queue = nil
	a.buffered = 0
}

// terminatedLocked 是否已不再接收事件，调用方持有 mu
func (a *LegacyAdapter) terminatedLocked() bool {
	return a.closed || a.ended || a.err != nil
}

// fitsLocked 队列能否再放入 n 字节，调用方持有 mu
func (a *LegacyAdapter) fitsLocked(n int) bool {
	if len(a.queue) == 0 {
		return true
	}
	return len(a.queue) < a.config.MaxBufferedChunks &&
		a.buffered+n <= a.config.MaxBufferedBytes
}

func (a *LegacyAdapter) onChunk(p []byte) {
	if len(p) == 0 {
		return
	}

	var deadline <-chan time.Time
	if a.config.OverflowPolicy == OverflowBlock && a.config.BlockTimeout > 0 {
		timer := time.NewTimer(a.config.BlockTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	a.mu.Lock()
	for {
		if a.terminatedLocked() {
			a.mu.Unlock()
			a.logger.Debug("chunk emitted after termination ignored", "size", len(p))
			return
		}
		if a.fitsLocked(len(p)) {
			break
		}
		if a.config.OverflowPolicy == OverflowFail {
			a.overflowLocked(len(p))
			a.mu.Unlock()
			a.stopEmitter()
			return
		}

		a.mu.Unlock()
		select {
		case <-a.space:
		case <-a.closeCh:
		case <-deadline:
			a.mu.Lock()
			if !a.terminatedLocked() {
				a.overflowLocked(len(p))
			}
			a.mu.Unlock()
			a.stopEmitter()
			return
		}
		a.mu.Lock()
	}

	buf := a.pool.Get()
	_, _ = buf.Write(p)
	a.queue = append(a.queue, buf)
	a.buffered += len(p)
	a.mu.Unlock()

	notify(a.avail)
}

// overflowLocked 以溢出错误终止，已入队的块仍会先交给消费方，调用方持有 mu
func (a *LegacyAdapter) overflowLocked(n int) {
	a.err = errors.Wrapf(ErrBufferOverflow,
		"buffered %d chunks / %d bytes, incoming %d bytes", len(a.queue), a.buffered, n)
	a.logger.Warn("legacy source overflow",
		"policy", string(a.config.OverflowPolicy),
		"buffered_chunks", len(a.queue),
		"buffered_bytes", a.buffered,
		"incoming", n,
	)
	notify(a.avail)
}

func (a *LegacyAdapter) onEnd() {
	a.mu.Lock()
	if !a.terminatedLocked() {
		a.ended = true
	}
	a.mu.Unlock()
	notify(a.avail)
}

func (a *LegacyAdapter) onError(err error) {
	if err == nil {
		err = errors.New("legacy source reported nil error")
	}
	a.mu.Lock()
	if !a.terminatedLocked() {
		a.err = err
	}
	a.mu.Unlock()
	notify(a.avail)
}

// legacyHandler 隐藏 Handler 方法，避免 LegacyAdapter 自身被当作 Handler 传递
type legacyHandler struct {
	a *LegacyAdapter
}

func (h legacyHandler) OnChunk(p []byte)  { h.a.onChunk(p) }
func (h legacyHandler) OnEnd()            { h.a.onEnd() }
func (h legacyHandler) OnError(err error) { h.a.onError(err) }

// notify 非阻塞地发送信号
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
