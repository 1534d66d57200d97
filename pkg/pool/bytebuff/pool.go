// pkg/pool/bytebuff/pool.go
// 基于 valyala/bytebufferpool 的块缓冲池，附带借还统计
package bytebuff

import (
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// ChunkPool 块缓冲池
// 统计借出与归还次数，Outstanding 用于确认缓冲区是否全部归还
type ChunkPool struct {
	pool *bytebufferpool.Pool

	gets uint64
	puts uint64
}

// defaultChunkPool 是默认的全局池
var defaultChunkPool = NewChunkPool()

// NewChunkPool 创建块缓冲池
func NewChunkPool() *ChunkPool {
	return &ChunkPool{
		pool: &bytebufferpool.Pool{},
	}
}

// DefaultChunkPool 返回全局池
func DefaultChunkPool() *ChunkPool {
	return defaultChunkPool
}

// Get 借出一个已清空的 ByteBuffer
func (p *ChunkPool) Get() *bytebufferpool.ByteBuffer {
	atomic.AddUint64(&p.gets, 1)
	return p.pool.Get()
}

// Put 归还 ByteBuffer，nil 忽略
func (p *ChunkPool) Put(buf *bytebufferpool.ByteBuffer) {
	if buf == nil {
		return
	}

	atomic.AddUint64(&p.puts, 1)
	p.pool.Put(buf)
}

// Stats 返回借出与归还次数
func (p *ChunkPool) Stats() (gets, puts uint64) {
	return atomic.LoadUint64(&p.gets), atomic.LoadUint64(&p.puts)
}

// Outstanding 返回尚未归还的缓冲区数量
func (p *ChunkPool) Outstanding() int64 {
	gets, puts := p.Stats()
	return int64(gets) - int64(puts)
}

// --- 全局便捷函数 ---

// Get 从默认池中借出
func Get() *bytebufferpool.ByteBuffer {
	return defaultChunkPool.Get()
}

// Put 归还到默认池
func Put(buf *bytebufferpool.ByteBuffer) {
	defaultChunkPool.Put(buf)
}

// Stats 返回默认池的统计信息
func Stats() (gets, puts uint64) {
	return defaultChunkPool.Stats()
}
