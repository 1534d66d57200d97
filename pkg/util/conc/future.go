package conc

// Future 异步任务的结果
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// Await 阻塞直到任务完成
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// Done 任务完成时关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Err 阻塞直到任务完成并返回错误
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// Ready 任务是否已完成
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
