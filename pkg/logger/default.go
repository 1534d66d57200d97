package logger

import (
	"context"
	"os"
	"sync"

	"github.com/lk2023060901/crcstream/pkg/config"
)

// EnvPrefix 日志相关环境变量前缀
const EnvPrefix = "CRCSTREAM_LOG_"

var (
	defaultLogger   Logger
	defaultLoggerMu sync.RWMutex
)

// InitDefault 初始化默认 logger
func InitDefault(cfg *Config, opts ...Option) error {
	l, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	SetDefault(l)
	return nil
}

// ConfigFromEnv 读取 CRCSTREAM_LOG_* 环境变量并合并到默认配置
func ConfigFromEnv() (*Config, error) {
	envConfig := &Config{}

	if level := os.Getenv(EnvPrefix + "LEVEL"); level != "" {
		envConfig.Level = Level(level)
	}
	if format := os.Getenv(EnvPrefix + "FORMAT"); format != "" {
		envConfig.Format = Format(format)
	}
	if path := os.Getenv(EnvPrefix + "PATH"); path != "" {
		envConfig.EnableFile = true
		envConfig.OutputPath = path
	}
	if os.Getenv(EnvPrefix+"DEVELOPMENT") == "true" {
		envConfig.Development = true
	}

	merged, err := config.MergeConfig(DefaultConfig(), envConfig)
	if err != nil {
		return nil, err
	}
	// 布尔值 false 无法通过合并覆盖默认值
	if os.Getenv(EnvPrefix+"CONSOLE") == "false" {
		merged.EnableConsole = false
	}
	return merged, nil
}

// InitDefaultFromEnv 从环境变量初始化默认 logger
func InitDefaultFromEnv() error {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return err
	}
	return InitDefault(cfg)
}

// SetDefault 设置默认 logger，nil 恢复为空 logger
func SetDefault(l Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// Default 获取默认 logger
// 未初始化时返回空 logger，库代码不会意外向终端输出
func Default() Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	if defaultLogger == nil {
		return NewNoop()
	}
	return defaultLogger
}

// --- 便捷函数 (使用默认 logger) ---

func Debug(msg string, keysAndValues ...interface{}) {
	Default().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	Default().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	Default().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	Default().Error(msg, keysAndValues...)
}

func DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Default().DebugContext(ctx, msg, keysAndValues...)
}

func InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Default().InfoContext(ctx, msg, keysAndValues...)
}

func WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Default().WarnContext(ctx, msg, keysAndValues...)
}

func ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	Default().ErrorContext(ctx, msg, keysAndValues...)
}

func Named(name string) Logger {
	return Default().Named(name)
}

func WithFields(keysAndValues ...interface{}) Logger {
	return Default().WithFields(keysAndValues...)
}

func Sync() error {
	return Default().Sync()
}
