package stream

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

// bytesSource 单块数据源，第一次 Next 返回全部内容，之后返回 io.EOF
type bytesSource struct {
	data Chunk
	done bool
}

// FromBytes 创建字节数据源，不复制 b，调用方之后不得修改
func FromBytes(b []byte) Source {
	return &bytesSource{data: b}
}

// FromString 创建文本数据源，内容为 s 的 UTF-8 编码
func FromString(s string) Source {
	return &bytesSource{data: Chunk(s)}
}

func (s *bytesSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	if len(s.data) == 0 {
		return nil, io.EOF
	}
	return s.data, nil
}

// maxEmptyReads 连续读到 (0, nil) 的次数上限，超过后返回 io.ErrNoProgress
const maxEmptyReads = 100

// readerSource 将 io.Reader 包装为 Source，每次 Next 只读一次
type readerSource struct {
	r    io.Reader
	size int
	err  error
}

// FromReader 创建 io.Reader 数据源，size 为单次读取的最大字节数
func FromReader(r io.Reader, size int) Source {
	if size <= 0 {
		size = DefaultConfig().ChunkSize
	}
	return &readerSource{r: r, size: size}
}

func (s *readerSource) Next(ctx context.Context) (Chunk, error) {
	for empty := 0; ; empty++ {
		if s.err == nil && empty >= maxEmptyReads {
			s.err = io.ErrNoProgress
		}
		if s.err != nil {
			return nil, s.err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf := make([]byte, s.size)
		n, err := s.r.Read(buf)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			return Chunk(buf[:n]), nil
		}
	}
}

// Normalize 将任意输入转换为规范化的 Source
//   - []byte / Chunk: 单块数据源
//   - string: UTF-8 编码后的单块数据源
//   - Source: 原样返回
//   - Emitter: 包装为带背压的 LegacyAdapter
//   - io.Reader: 按 ChunkSize 拉取
//
// 配置了 RateLimit 时结果再经过 Throttle。无法识别的输入返回 ErrInvalidSourceKind
func Normalize(v any, opts ...Option) (Source, error) {
	o := newOptions(opts...)
	if o.err != nil {
		return nil, o.err
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	src, err := normalize(v, o)
	if err != nil {
		return nil, err
	}
	return Throttle(src, o.config.RateLimit), nil
}

func normalize(v any, o *options) (Source, error) {
	switch Classify(v) {
	case KindBytes:
		if c, ok := v.(Chunk); ok {
			return FromBytes(c), nil
		}
		return FromBytes(v.([]byte)), nil
	case KindText:
		return FromString(v.(string)), nil
	case KindSource:
		return v.(Source), nil
	case KindEmitter:
		return newLegacyAdapter(v.(Emitter), o), nil
	case KindReader:
		return FromReader(v.(io.Reader), o.config.ChunkSize), nil
	default:
		return nil, errors.Wrapf(ErrInvalidSourceKind, "unsupported input %T", v)
	}
}

// MustNormalize 规范化输入，失败时 panic
func MustNormalize(v any, opts ...Option) Source {
	src, err := Normalize(v, opts...)
	if err != nil {
		panic(err)
	}
	return src
}
