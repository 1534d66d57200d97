// Package batch 并发计算多个命名输入的 CRC-32
// 每个条目拥有独立的流水线与 Transform，互不共享累加器。
package batch

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/crcstream/pkg/checksum"
	"github.com/lk2023060901/crcstream/pkg/compress"
	"github.com/lk2023060901/crcstream/pkg/config"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/pipeline"
	"github.com/lk2023060901/crcstream/pkg/stream"
	"github.com/lk2023060901/crcstream/pkg/util/conc"
)

// Entry 一个待校验的输入
// Open 不为 nil 时在 worker 中调用以延迟打开输入，返回值实现 io.Closer 时用后关闭；
// 否则直接使用 Input。Dst 为 nil 时丢弃数据。
// Decompress 为空时取 Config.Decompress；解压后校验的是原始内容。
type Entry struct {
	Name       string
	Input      any
	Open       func() (any, error)
	Dst        io.Writer
	Decompress compress.Type
}

// FileEntry 延迟打开的文件条目
func FileEntry(path string) Entry {
	return Entry{
		Name: path,
		Open: func() (any, error) {
			return os.Open(path)
		},
	}
}

// Result 单个条目的结果，Err 不为 nil 时 Digest 无意义
type Result struct {
	Name   string
	Digest checksum.Digest
	Err    error
}

// Results 按输入顺序排列的结果
type Results []Result

// Err 合并所有失败条目的错误
func (rs Results) Err() error {
	var err error
	for _, r := range rs {
		if r.Err != nil {
			err = errors.CombineErrors(err, errors.Wrapf(r.Err, "%s", r.Name))
		}
	}
	return err
}

// Failed 失败条目数
func (rs Results) Failed() int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}

type options struct {
	config   *Config
	logger   logger.Logger
	pipeline []pipeline.Option
	err      error
}

var mergeConfig = config.MergeConfig[Config]

// Option 批量选项
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
			o.err = errors.Wrap(err, "apply batch config")
			return
		}
		c.FailFast = cfg.FailFast
		o.config = c
	}
}

// WithWorkers 设置并发数
func WithWorkers(n int) Option {
	return func(o *options) { o.config.Workers = n }
}

// WithFailFast 任意条目失败后取消其余条目
func WithFailFast(enabled bool) Option {
	return func(o *options) { o.config.FailFast = enabled }
}

// WithDecompress 设置条目默认的压缩格式
func WithDecompress(t compress.Type) Option {
	return func(o *options) { o.config.Decompress = t }
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPipelineOptions 每个条目的流水线选项
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, opts...)
	}
}

// Run 并发校验所有条目，结果顺序与 entries 一致
// 只有配置非法时返回错误，单个条目的失败记录在 Result.Err
func Run(ctx context.Context, entries []Entry, opts ...Option) (Results, error) {
	o := &options{config: DefaultConfig(), logger: logger.NewNoop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	log := o.logger.Named("batch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := conc.NewPool[checksum.Digest](o.config.workers())
	defer pool.Release()

	pipeOpts := append([]pipeline.Option{pipeline.WithLogger(o.logger)}, o.pipeline...)

	futures := make([]*conc.Future[checksum.Digest], len(entries))
	for i := range entries {
		e := entries[i]
		futures[i] = pool.Submit(func() (checksum.Digest, error) {
			d, err := runEntry(ctx, e, o.config.Decompress, pipeOpts)
			if err != nil && o.config.FailFast {
				cancel()
			}
			return d, err
		})
	}

	results := make(Results, len(entries))
	for i, f := range futures {
		d, err := f.Await()
		results[i] = Result{Name: entries[i].Name, Digest: d, Err: err}
		if err != nil {
			log.Warn("entry failed", "name", entries[i].Name, "error", err)
		}
	}

	log.Debug("batch finished", "entries", len(entries), "failed", results.Failed())
	return results, nil
}

func runEntry(ctx context.Context, e Entry, decompress compress.Type, opts []pipeline.Option) (checksum.Digest, error) {
	if err := ctx.Err(); err != nil {
		return checksum.Digest{}, err
	}

	input := e.Input
	if e.Open != nil {
		v, err := e.Open()
		if err != nil {
			return checksum.Digest{}, errors.Wrap(err, "open")
		}
		if c, ok := v.(io.Closer); ok {
			defer c.Close()
		}
		input = v
	}

	if e.Decompress != "" {
		decompress = e.Decompress
	}
	if typ := compress.Resolve(decompress, e.Name); typ != compress.TypeNone {
		rc, err := decode(ctx, input, typ)
		if err != nil {
			return checksum.Digest{}, err
		}
		defer rc.Close()
		input = rc
	}

	return pipeline.Run(ctx, input, e.Dst, opts...)
}

// decode 将任意输入包装为解压读取器
func decode(ctx context.Context, input any, typ compress.Type) (io.ReadCloser, error) {
	r, ok := input.(io.Reader)
	if !ok {
		src, err := stream.Normalize(input)
		if err != nil {
			return nil, err
		}
		sr := stream.NewReader(ctx, src)
		rc, err := compress.NewReader(typ, sr)
		if err != nil {
			_ = sr.Close()
			return nil, err
		}
		return &decodedReader{ReadCloser: rc, src: sr}, nil
	}
	return compress.NewReader(typ, r)
}

// decodedReader 关闭解码器时一并关闭底层数据源
type decodedReader struct {
	io.ReadCloser
	src io.Closer
}

func (d *decodedReader) Close() error {
	return errors.CombineErrors(d.ReadCloser.Close(), d.src.Close())
}
