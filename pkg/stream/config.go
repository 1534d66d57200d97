package stream

import (
	"time"

	"github.com/lk2023060901/crcstream/pkg/config"
)

// OverflowPolicy 旧式数据源缓冲区满时的处理策略
type OverflowPolicy string

const (
	// OverflowBlock 阻塞推送方的回调直到消费方腾出空间（默认）
	OverflowBlock OverflowPolicy = "block"
	// OverflowFail 立即以 ErrBufferOverflow 终止
	OverflowFail OverflowPolicy = "fail"
)

// Config 规范化配置
type Config struct {
	// io.Reader 每次读取的最大字节数
	ChunkSize int `mapstructure:"chunk_size" validate:"gte=0"`

	// 旧式数据源适配器的缓冲上限（字节）
	MaxBufferedBytes int `mapstructure:"max_buffered_bytes" validate:"gt=0"`

	// 旧式数据源适配器的缓冲上限（块数）
	MaxBufferedChunks int `mapstructure:"max_buffered_chunks" validate:"gt=0"`

	// 缓冲区满时的策略: block 或 fail
	OverflowPolicy OverflowPolicy `mapstructure:"overflow_policy" validate:"omitempty,oneof=block fail"`

	// block 策略下的最长等待时间，负数表示无限等待
	BlockTimeout time.Duration `mapstructure:"block_timeout"`

	// 每秒最多拉取的字节数，0 表示不限
	RateLimit int `mapstructure:"rate_limit" validate:"gte=0"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:         64 * 1024,
		MaxBufferedBytes:  1 << 20, // 1MB
		MaxBufferedChunks: 1024,
		OverflowPolicy:    OverflowBlock,
		BlockTimeout:      30 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	return config.NewValidator().Validate(c)
}
