package logger

import "context"

// Logger 各包共用的结构化日志接口
// keysAndValues 为交替的键值对，也可以全部传 zap.Field。
// checksum、stream、pipeline 等库包只依赖该接口，未注入时使用 NewNoop。
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// *Context 方法额外记录 ctx 中的 stream_id 等字段
	DebugContext(ctx context.Context, msg string, keysAndValues ...interface{})
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})

	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	Sync() error
}
