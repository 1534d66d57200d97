package batch

import (
	"runtime"

	"github.com/lk2023060901/crcstream/pkg/compress"
	"github.com/lk2023060901/crcstream/pkg/config"
)

// Config 批量校验配置
type Config struct {
	// 并发数，0 表示 CPU 核数
	Workers int `mapstructure:"workers" validate:"gte=0,lte=1024"`

	// 任意条目失败后取消其余条目
	FailFast bool `mapstructure:"fail_fast"`

	// 输入的压缩格式，auto 按扩展名推断
	Decompress compress.Type `mapstructure:"decompress" validate:"omitempty,oneof=auto none gzip zstd snappy lz4"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		Decompress: compress.TypeNone,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	return config.NewValidator().Validate(c)
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
