package metrics

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("metrics: invalid config")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("metrics: client closed")
)
