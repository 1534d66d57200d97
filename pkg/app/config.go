package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/lk2023060901/crcstream/pkg/batch"
	"github.com/lk2023060901/crcstream/pkg/config"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/metrics"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

// EnvPrefix 环境变量前缀，例如 CRCSTREAM_STREAM_CHUNK_SIZE
const EnvPrefix = "CRCSTREAM"

// ChecksumConfig Transform 配置
type ChecksumConfig struct {
	// 下游队列可容纳的块数
	HighWaterMark int `mapstructure:"high_water_mark" validate:"gte=1"`
}

// Config 应用配置
type Config struct {
	Log      logger.Config  `mapstructure:"log"`
	Stream   stream.Config  `mapstructure:"stream"`
	Checksum ChecksumConfig `mapstructure:"checksum"`
	Batch    batch.Config   `mapstructure:"batch"`
	Metrics  metrics.Config `mapstructure:"metrics"`

	// File 实际加载的配置文件，未读取文件时为空
	File string `mapstructure:"-"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:      *logger.DefaultConfig(),
		Stream:   *stream.DefaultConfig(),
		Checksum: ChecksumConfig{HighWaterMark: 1},
		Batch:    *batch.DefaultConfig(),
		Metrics:  *metrics.DefaultConfig(),
	}
}

// Validate 逐段验证配置
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	if err := c.Stream.Validate(); err != nil {
		return errors.Wrap(err, "stream")
	}
	if err := config.NewValidator().Validate(&c.Checksum); err != nil {
		return errors.Wrap(err, "checksum")
	}
	if err := c.Batch.Validate(); err != nil {
		return errors.Wrap(err, "batch")
	}
	if err := c.Metrics.Validate(); err != nil {
		return errors.Wrap(err, "metrics")
	}
	return nil
}

// defaults 展开为扁平键，环境变量只对已知键生效
func defaults(c *Config) map[string]any {
	return map[string]any{
		"log.level":                        string(c.Log.Level),
		"log.format":                       string(c.Log.Format),
		"log.enable_console":               c.Log.EnableConsole,
		"log.enable_file":                  c.Log.EnableFile,
		"log.output_path":                  c.Log.OutputPath,
		"log.time_format":                  c.Log.TimeFormat,
		"log.rotation.type":                string(c.Log.Rotation.Type),
		"log.rotation.max_size":            c.Log.Rotation.MaxSize,
		"log.rotation.max_backups":         c.Log.Rotation.MaxBackups,
		"log.rotation.max_age":             c.Log.Rotation.MaxAge,
		"log.rotation.compress":            c.Log.Rotation.Compress,
		"log.rotation.rotation_time":       c.Log.Rotation.RotationTime,
		"log.rotation.max_age_time":        c.Log.Rotation.MaxAgeTime,
		"log.rotation.rotation_pattern":    c.Log.Rotation.RotationPattern,
		"log.enable_stacktrace":            c.Log.EnableStacktrace,
		"log.stacktrace_level":             string(c.Log.StacktraceLevel),
		"log.enable_sampling":              c.Log.EnableSampling,
		"log.sampling_initial":             c.Log.SamplingInitial,
		"log.sampling_thereafter":          c.Log.SamplingThereafter,
		"log.development":                  c.Log.Development,
		"stream.chunk_size":                c.Stream.ChunkSize,
		"stream.max_buffered_bytes":        c.Stream.MaxBufferedBytes,
		"stream.max_buffered_chunks":       c.Stream.MaxBufferedChunks,
		"stream.overflow_policy":           string(c.Stream.OverflowPolicy),
		"stream.block_timeout":             c.Stream.BlockTimeout,
		"stream.rate_limit":                c.Stream.RateLimit,
		"checksum.high_water_mark":         c.Checksum.HighWaterMark,
		"batch.workers":                    c.Batch.Workers,
		"batch.fail_fast":                  c.Batch.FailFast,
		"batch.decompress":                 string(c.Batch.Decompress),
		"metrics.namespace":                c.Metrics.Namespace,
		"metrics.subsystem":                c.Metrics.Subsystem,
		"metrics.http_server.enabled":      c.Metrics.HTTPServer.Enabled,
		"metrics.http_server.addr":         c.Metrics.HTTPServer.Addr,
		"metrics.http_server.path":         c.Metrics.HTTPServer.Path,
		"metrics.http_server.timeout":      c.Metrics.HTTPServer.Timeout,
		"metrics.enable_go_collector":      c.Metrics.EnableGoCollector,
		"metrics.enable_process_collector": c.Metrics.EnableProcessCollector,
	}
}

// RegisterFlags 注册配置相关的命令行参数，参数名即配置键
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.StringP("config", "c", "", "path to config file (yaml, json or toml)")
	fs.String("log.level", string(d.Log.Level), "log level: debug, info, warn, error")
	fs.String("log.format", string(d.Log.Format), "log format: json or console")
	fs.Int("stream.chunk_size", d.Stream.ChunkSize, "bytes per read from files and stdin")
	fs.String("stream.overflow_policy", string(d.Stream.OverflowPolicy), "legacy source overflow policy: block or fail")
	fs.Int("stream.rate_limit", d.Stream.RateLimit, "max bytes read per second per input, 0 for unlimited")
	fs.Int("checksum.high_water_mark", d.Checksum.HighWaterMark, "chunks queued between checksum and output")
	fs.IntP("batch.workers", "j", d.Batch.Workers, "files checksummed concurrently")
	fs.Bool("batch.fail_fast", d.Batch.FailFast, "stop at the first failing file")
	fs.StringP("batch.decompress", "d", string(d.Batch.Decompress), "input compression: none, auto, gzip, zstd, snappy or lz4")
	fs.Bool("metrics.http_server.enabled", d.Metrics.HTTPServer.Enabled, "serve prometheus metrics")
	fs.String("metrics.http_server.addr", d.Metrics.HTTPServer.Addr, "metrics listen address")
}

// LoadConfig 加载应用配置
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值。
// fs 必须已经解析；配置文件依次取 --config、CRCSTREAM_CONFIG、可执行文件同目录的 crcsum.yaml，都没有时不读文件。
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	mgr := config.NewManager(
		config.WithDefaults(defaults(DefaultConfig())),
		config.WithEnvPrefix(EnvPrefix),
	)

	path := configPath(fs)
	if path != "" {
		if err := mgr.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = mgr.BindFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	if err := mgr.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.File = path

	if cfg.Log.EnableFile && cfg.Log.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.OutputPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
	}

	return cfg, nil
}

// DefaultConfigName 可执行文件同目录下自动加载的配置文件名
const DefaultConfigName = "crcsum.yaml"

func configPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			return f.Value.String()
		}
	}
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	if dir, err := GetExecDir(); err == nil {
		p := filepath.Join(dir, DefaultConfigName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}
