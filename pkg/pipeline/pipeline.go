// Package pipeline 将任意输入经过校验流写入下游
//
// 数据流向：输入 → stream.Normalize → checksum.Transform → io.Writer。
// 上游泵与下游排空各占一个 goroutine，由 errgroup 管理；
// 任意一端失败都会让 Transform 进入错误终态并取消另一端。
package pipeline

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/crcstream/pkg/checksum"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

// ErrDownstream 下游写入失败
var ErrDownstream = errors.New("pipeline: downstream write failed")

// Run 规范化 input，计算 CRC-32 并把原始字节写入 dst
// dst 为 nil 时丢弃数据。失败时不返回摘要。
func Run(ctx context.Context, input any, dst io.Writer, opts ...Option) (checksum.Digest, error) {
	o := newOptions(opts...)

	src, err := stream.Normalize(input, o.streamOpts...)
	if err != nil {
		return checksum.Digest{}, err
	}
	defer closeSource(src)

	t := checksum.NewTransform(o.checksumOpts...)
	ctx = logger.ContextWithStreamID(ctx, t.ID())

	if dst == nil {
		dst = io.Discard
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return Pipe(gctx, src, t)
	})
	g.Go(func() error {
		return Drain(gctx, t, dst)
	})

	if err := g.Wait(); err != nil {
		o.logger.WarnContext(ctx, "checksum pipeline failed", "kind", stream.Classify(input).String(), "error", err)
		return checksum.Digest{}, err
	}

	d, err := t.Digest()
	if err != nil {
		return checksum.Digest{}, err
	}
	o.logger.DebugContext(ctx, "checksum pipeline finished", "crc32", d.CRC32, "size", d.Size)
	return d, nil
}

// Sum 计算 input 的摘要并丢弃数据
func Sum(ctx context.Context, input any, opts ...Option) (checksum.Digest, error) {
	return Run(ctx, input, nil, opts...)
}

// Pipe 从 src 拉取数据写入 t，遵守 t 的背压信号
// src 正常结束时调用 t.End；src 出错时调用 t.Error；取消或下游失败时调用 t.Abort
func Pipe(ctx context.Context, src stream.Source, t *checksum.Transform) error {
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			t.End()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				t.Abort(err)
			} else {
				t.Error(err)
			}
			return err
		}

		ready, err := t.Write(ctx, chunk)
		if err != nil {
			t.Abort(err)
			return err
		}
		if !ready {
			if err := t.Wait(ctx); err != nil {
				t.Abort(err)
				return err
			}
		}
	}
}

// Drain 把 t 的输出写入 dst，直到 t 结束
func Drain(ctx context.Context, t *checksum.Transform, dst io.Writer) error {
	for {
		chunk, err := t.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			t.Abort(err)
			return err
		}

		if _, err := dst.Write(chunk); err != nil {
			err = errors.Mark(errors.Wrap(err, "write downstream"), ErrDownstream)
			t.Abort(err)
			return err
		}
	}
}

func closeSource(src stream.Source) {
	if c, ok := src.(io.Closer); ok {
		_ = c.Close()
	}
}
