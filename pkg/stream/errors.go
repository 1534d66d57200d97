package stream

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidSourceKind 输入既不是字节、文本，也不是任何流
	ErrInvalidSourceKind = errors.New("stream: invalid source kind")

	// ErrBufferOverflow 旧式数据源适配器缓冲区超出上限
	ErrBufferOverflow = errors.New("stream: legacy buffer overflow")

	// ErrClosed 数据源已关闭
	ErrClosed = errors.New("stream: source closed")
)
