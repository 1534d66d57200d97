package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认配置值
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 设置配置文件类型（yaml、json、toml 等），文件无扩展名时使用
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithEnvPrefix 设置环境变量前缀，键中的 "." 映射为 "_"
// 例如前缀 CRCSTREAM 下 stream.chunk_size 对应 CRCSTREAM_STREAM_CHUNK_SIZE
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		if prefix != "" {
			m.v.SetEnvPrefix(prefix)
			m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			m.v.AutomaticEnv()
		}
	}
}

// WithViper 使用自定义的 Viper 实例
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		if v != nil {
			m.v = v
		}
	}
}
