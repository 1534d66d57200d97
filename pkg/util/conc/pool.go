package conc

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
)

// ErrPanic 任务 panic 时返回的错误
var ErrPanic = errors.New("conc: task panicked")

// Option 协程池选项
type Option func(*ants.Options)

// WithPreAlloc 预分配 worker 队列
func WithPreAlloc(prealloc bool) Option {
	return func(o *ants.Options) { o.PreAlloc = prealloc }
}

// WithNonblocking 池满时 Submit 立即失败而不是等待
func WithNonblocking(nonblocking bool) Option {
	return func(o *ants.Options) { o.Nonblocking = nonblocking }
}

// WithExpiry 空闲 worker 的回收间隔
func WithExpiry(d time.Duration) Option {
	return func(o *ants.Options) { o.ExpiryDuration = d }
}

// Pool 基于 ants 的有界协程池，每个任务返回一个 Future
type Pool[T any] struct {
	inner *ants.Pool
}

// NewPool 创建容量为 size 的协程池，size <= 0 表示不限
func NewPool[T any](size int, opts ...Option) *Pool[T] {
	o := ants.Options{PreAlloc: false}
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 {
		size = -1
		o.PreAlloc = false
	}

	p, err := ants.NewPool(size, ants.WithOptions(o))
	if err != nil {
		panic(errors.Wrap(err, "conc: failed to create pool"))
	}
	return &Pool[T]{inner: p}
}

// Submit 提交任务；池已关闭或非阻塞模式下池满时 Future 直接携带错误
func (p *Pool[T]) Submit(fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	if err := p.inner.Submit(func() { run(f, fn) }); err != nil {
		var zero T
		f.complete(zero, errors.Wrap(err, "conc: submit failed"))
	}
	return f
}

// Running 正在运行的 worker 数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Cap 池容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Release 关闭协程池，已提交的任务继续执行
func (p *Pool[T]) Release() {
	p.inner.Release()
}

// Go 在新的 goroutine 中执行 fn
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go run(f, fn)
	return f
}

func run[T any](f *Future[T], fn func() (T, error)) {
	var (
		v   T
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			f.complete(zero, errors.Wrapf(ErrPanic, "%v", r))
			return
		}
		f.complete(v, err)
	}()
	v, err = fn()
}
