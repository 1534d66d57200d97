// pkg/stream/stream.go
package stream

import (
	"context"
)

// Chunk 流水线各阶段之间传递的最小数据单元
// 交出之后双方都不得再修改其内容
type Chunk []byte

// Source 规范化后的拉取式数据源
// Next 阻塞直到返回下一个 Chunk；正常结束返回 io.EOF，其他错误均为终止状态
// 消费方不调用 Next 即为暂停，背压天然成立
type Source interface {
	Next(ctx context.Context) (Chunk, error)
}

// SourceFunc 函数式 Source
type SourceFunc func(ctx context.Context) (Chunk, error)

// Next 调用函数本身
func (f SourceFunc) Next(ctx context.Context) (Chunk, error) {
	return f(ctx)
}

// Handler 接收旧式推送源的事件
type Handler interface {
	// OnChunk 收到数据，p 在回调返回后可能被推送方复用
	OnChunk(p []byte)
	// OnEnd 数据结束
	OnEnd()
	// OnError 数据源出错
	OnError(err error)
}

// Emitter 旧式推送数据源
// Subscribe 之后由数据源自己的 goroutine 推送事件，不关心消费方是否就绪
type Emitter interface {
	Subscribe(h Handler)
}

// Stopper 可被提前停止的 Emitter
type Stopper interface {
	Stop()
}
