package stream

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/crcstream/pkg/config"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/pool/bytebuff"
)

type options struct {
	config *Config
	logger logger.Logger
	pool   *bytebuff.ChunkPool
	err    error // 选项应用失败的原因，由 Normalize 返回
}

var mergeConfig = config.MergeConfig[Config]

// Option 规范化选项
type Option func(*options)

// WithConfig 使用配置，未设置的字段取默认值
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		merged := *cfg
		c, err := mergeConfig(DefaultConfig(), &merged)
		if err != nil {
			o.err = errors.Wrap(err, "apply stream config")
			return
		}
		o.config = c
	}
}

// WithChunkSize 设置 io.Reader 的单次读取大小
func WithChunkSize(n int) Option {
	return func(o *options) { o.config.ChunkSize = n }
}

// WithMaxBufferedBytes 设置旧式数据源的缓冲字节上限
func WithMaxBufferedBytes(n int) Option {
	return func(o *options) { o.config.MaxBufferedBytes = n }
}

// WithMaxBufferedChunks 设置旧式数据源的缓冲块数上限
func WithMaxBufferedChunks(n int) Option {
	return func(o *options) { o.config.MaxBufferedChunks = n }
}

// WithOverflowPolicy 设置缓冲区满时的策略
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) { o.config.OverflowPolicy = p }
}

// WithBlockTimeout 设置 block 策略的最长等待时间
func WithBlockTimeout(d time.Duration) Option {
	return func(o *options) { o.config.BlockTimeout = d }
}

// WithRateLimit 限制每秒拉取的字节数
func WithRateLimit(bytesPerSecond int) Option {
	return func(o *options) { o.config.RateLimit = bytesPerSecond }
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPool 设置旧式数据源适配器使用的缓冲池
func WithPool(p *bytebuff.ChunkPool) Option {
	return func(o *options) {
		if p != nil {
			o.pool = p
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		config: DefaultConfig(),
		logger: logger.NewNoop(),
		pool:   bytebuff.DefaultChunkPool(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
