package logger

import (
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Redacted 被脱敏字段的替换值
const Redacted = "***REDACTED***"

// Hook 在日志写出前检查或改写字段
// OnWrite 返回 false 时丢弃该条日志。
// 只能看到调用处传入的字段，WithFields 绑定的字段已由下层编码。
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// hookedCore 在写出前依次执行 hooks
type hookedCore struct {
	zapcore.Core
	hooks []Hook
}

func newHookedCore(core zapcore.Core, hooks []Hook) zapcore.Core {
	if len(hooks) == 0 {
		return core
	}
	return &hookedCore{Core: core, hooks: hooks}
}

func (h *hookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *hookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *hookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookedCore{Core: h.Core.With(fields), hooks: h.hooks}
}

// fieldHook 按键名改写字段
func fieldHook(keys []string, rewrite func(zapcore.Field) zapcore.Field) Hook {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for i := range fields {
			if _, ok := set[fields[i].Key]; ok {
				fields[i] = rewrite(fields[i])
			}
		}
		return true
	})
}

// RedactHook 将指定键的值替换为 Redacted，任意类型的字段都会被替换
func RedactHook(keys ...string) Hook {
	return fieldHook(keys, func(f zapcore.Field) zapcore.Field {
		return zap.String(f.Key, Redacted)
	})
}

// BasenameHook 只保留指定键中路径的文件名，非字符串字段不变
func BasenameHook(keys ...string) Hook {
	return fieldHook(keys, func(f zapcore.Field) zapcore.Field {
		if f.Type != zapcore.StringType || f.String == "" {
			return f
		}
		return zap.String(f.Key, filepath.Base(f.String))
	})
}
