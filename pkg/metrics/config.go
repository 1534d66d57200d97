package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config 指标配置
type Config struct {
	// 命名空间，所有指标名的前缀
	Namespace string `mapstructure:"namespace"`

	// 子系统（可选）
	Subsystem string `mapstructure:"subsystem"`

	// HTTP 服务器配置
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`

	// 是否注册 Go 运行时采集器
	EnableGoCollector bool `mapstructure:"enable_go_collector"`

	// 是否注册进程采集器
	EnableProcessCollector bool `mapstructure:"enable_process_collector"`
}

// HTTPServerConfig 指标 HTTP 服务器配置
type HTTPServerConfig struct {
	// 是否启用独立的 HTTP 服务器暴露指标
	Enabled bool `mapstructure:"enabled"`

	// 监听地址
	Addr string `mapstructure:"addr"`

	// 指标路径
	Path string `mapstructure:"path"`

	// 读写超时
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig 默认配置，不启动 HTTP 服务器
func DefaultConfig() *Config {
	return &Config{
		Namespace: "crcstream",
		HTTPServer: HTTPServerConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置并补齐 HTTP 默认值
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "namespace is required")
	}

	if c.HTTPServer.Enabled {
		if c.HTTPServer.Addr == "" {
			return errors.Wrap(ErrInvalidConfig, "http_server.addr is required when enabled")
		}
		if c.HTTPServer.Path == "" {
			c.HTTPServer.Path = "/metrics"
		}
		if c.HTTPServer.Timeout == 0 {
			c.HTTPServer.Timeout = 10 * time.Second
		}
	}

	return nil
}
