package logger

import "context"

var _ Logger = noopLogger{}

// noop 共享的空日志，Named 与 WithFields 都返回它本身
var noop Logger = noopLogger{}

type noopLogger struct{}

// NewNoop 返回丢弃一切输出的 Logger，库代码未注入日志时使用
func NewNoop() Logger { return noop }

// IsNoop 判断 l 是否为空日志
func IsNoop(l Logger) bool {
	_, ok := l.(noopLogger)
	return ok
}

func (noopLogger) Debug(string, ...interface{})                         {}
func (noopLogger) Info(string, ...interface{})                          {}
func (noopLogger) Warn(string, ...interface{})                          {}
func (noopLogger) Error(string, ...interface{})                         {}
func (noopLogger) DebugContext(context.Context, string, ...interface{}) {}
func (noopLogger) InfoContext(context.Context, string, ...interface{})  {}
func (noopLogger) WarnContext(context.Context, string, ...interface{})  {}
func (noopLogger) ErrorContext(context.Context, string, ...interface{}) {}
func (l noopLogger) Named(string) Logger                                { return l }
func (l noopLogger) WithFields(...interface{}) Logger                   { return l }
func (noopLogger) Sync() error                                          { return nil }
