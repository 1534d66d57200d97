package checksum

// Observer 观察 Transform 的生命周期，用于指标与进度上报
// 回调在写入方或结束方的 goroutine 中同步执行，不应阻塞
type Observer interface {
	OnChunk(n int)
	OnComplete(d Digest)
	OnError(err error)
}

type noopObserver struct{}

func (noopObserver) OnChunk(int)       {}
func (noopObserver) OnComplete(Digest) {}
func (noopObserver) OnError(error)     {}

// MultiObserver 依次通知多个 Observer
type MultiObserver []Observer

func (m MultiObserver) OnChunk(n int) {
	for _, o := range m {
		o.OnChunk(n)
	}
}

func (m MultiObserver) OnComplete(d Digest) {
	for _, o := range m {
		o.OnComplete(d)
	}
}

func (m MultiObserver) OnError(err error) {
	for _, o := range m {
		o.OnError(err)
	}
}
