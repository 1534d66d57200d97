package app

import (
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/lk2023060901/crcstream/pkg/logger"
)

// Options 应用程序选项
type Options struct {
	ID     string
	Name   string
	Logger logger.Logger

	// 日志额外输出，主要用于测试
	LogWriter io.Writer

	// 版本信息输出位置
	Stdout io.Writer
}

// Option 定义配置函数
type Option func(*Options)

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{
		ID:     uuid.New().String(),
		Name:   AppName,
		Stdout: os.Stdout,
	}
}

// WithLogger 使用现成的日志器，不再根据配置创建
func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithLogWriter 日志同时写入 w
func WithLogWriter(w io.Writer) Option {
	return func(o *Options) { o.LogWriter = w }
}

// WithID 设置运行 ID
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

// WithName 设置应用名称
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStdout 设置版本信息的输出位置
func WithStdout(w io.Writer) Option {
	return func(o *Options) { o.Stdout = w }
}
