package pipeline

import (
	"github.com/lk2023060901/crcstream/pkg/checksum"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

type options struct {
	logger       logger.Logger
	streamOpts   []stream.Option
	checksumOpts []checksum.Option
}

// Option 流水线选项
type Option func(*options)

// WithLogger 设置日志，同时传给规范化与校验阶段
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStreamOptions 追加规范化选项
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, opts...)
	}
}

// WithChecksumOptions 追加 Transform 选项
func WithChecksumOptions(opts ...checksum.Option) Option {
	return func(o *options) {
		o.checksumOpts = append(o.checksumOpts, opts...)
	}
}

// WithObserver 为 Transform 设置观察者
func WithObserver(obs checksum.Observer) Option {
	return WithChecksumOptions(checksum.WithObserver(obs))
}

func newOptions(opts ...Option) *options {
	o := &options{logger: logger.NewNoop()}
	for _, opt := range opts {
		opt(o)
	}
	// 日志放在最前，调用方显式传入的阶段选项可以覆盖
	o.streamOpts = append([]stream.Option{stream.WithLogger(o.logger)}, o.streamOpts...)
	o.checksumOpts = append([]checksum.Option{checksum.WithLogger(o.logger)}, o.checksumOpts...)
	o.logger = o.logger.Named("pipeline")
	return o
}
