// Package app 组装 crcsum 命令的运行时：配置、日志、指标与批量校验
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lk2023060901/crcstream/pkg/batch"
	"github.com/lk2023060901/crcstream/pkg/checksum"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/metrics"
	"github.com/lk2023060901/crcstream/pkg/pipeline"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

// ErrAppClosed 应用已关闭
var ErrAppClosed = errors.New("application is closed")

var (
	// sensitiveLogKeys 日志中整体脱敏的字段
	sensitiveLogKeys = []string{"password", "token", "secret", "authorization"}

	// pathLogKeys 日志中只保留文件名的字段
	pathLogKeys = []string{"config_file", "log_file"}
)

// Closer 定义了资源清理接口
type Closer interface {
	Close() error
}

// App 一次命令运行的上下文
type App struct {
	opts    Options
	config  *Config
	logger  logger.Logger
	metrics *metrics.Client

	mu      sync.Mutex
	closers []Closer
	closed  atomic.Bool
}

// New 根据配置创建应用，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (*App, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{opts: o, config: cfg}

	if o.Logger != nil {
		a.logger = o.Logger.Named(o.Name)
	} else {
		logOpts := []logger.Option{
			logger.WithName(o.Name),
			logger.WithConsole(cfg.Log.EnableConsole),
			logger.WithGlobalFields("run_id", o.ID),
			logger.WithHooks(
				logger.RedactHook(sensitiveLogKeys...),
				logger.BasenameHook(pathLogKeys...),
			),
		}
		if o.LogWriter != nil {
			logOpts = append(logOpts, logger.WithWriter(o.LogWriter))
		}
		l, err := logger.New(&cfg.Log, logOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create logger")
		}
		a.logger = l
	}

	m, err := metrics.New(&cfg.Metrics, a.logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metrics client")
	}
	a.metrics = m
	a.AppendCloser(m)

	info := GetInfo()
	a.logger.Info("application starting",
		"name", info.AppName,
		"version", info.Version,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
		"metrics_addr", m.Addr(),
		"config_file", cfg.File,
		"log_file", cfg.Log.OutputPath,
	)

	return a, nil
}

// Logger 应用主日志对象
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Metrics 指标客户端
func (a *App) Metrics() *metrics.Client {
	return a.metrics
}

// Config 生效的配置
func (a *App) Config() *Config {
	return a.config
}

// PrintVersion 输出版本信息
func (a *App) PrintVersion() {
	fmt.Fprintln(a.opts.Stdout, GetInfo().String())
}

// SignalContext 收到 SIGINT 或 SIGTERM 时取消的 context
func (a *App) SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Checksum 按配置并发校验所有条目
func (a *App) Checksum(ctx context.Context, entries []batch.Entry) (batch.Results, error) {
	if a.closed.Load() {
		return nil, ErrAppClosed
	}

	return batch.Run(ctx, entries,
		batch.WithConfig(&a.config.Batch),
		batch.WithLogger(a.logger),
		batch.WithPipelineOptions(
			pipeline.WithStreamOptions(stream.WithConfig(&a.config.Stream)),
			pipeline.WithChecksumOptions(checksum.WithHighWaterMark(a.config.Checksum.HighWaterMark)),
			pipeline.WithObserver(a.metrics.Recorder()),
		),
	)
}

// AppendCloser 添加资源清理组件，Shutdown 时逆序关闭
func (a *App) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

// Shutdown 逆序关闭所有组件并同步日志，可重复调用
func (a *App) Shutdown() error {
	if !a.closed.CAS(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil {
			a.logger.Error("failed to close component", "error", cerr)
			err = errors.CombineErrors(err, cerr)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return err
}
