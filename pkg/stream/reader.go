package stream

import (
	"bytes"
	"context"
	"io"
)

// Reader 将 Source 适配为 io.ReadCloser，供标准库消费方使用
type Reader struct {
	ctx  context.Context
	src  Source
	cur  Chunk
	err  error
	done bool
}

// NewReader 创建 Reader，ctx 作用于每一次底层 Next
func NewReader(ctx context.Context, src Source) *Reader {
	return &Reader{ctx: ctx, src: src}
}

// Read 实现 io.Reader
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.cur) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err := r.src.Next(r.ctx)
		if err != nil {
			r.err = err
			continue
		}
		r.cur = chunk
	}

	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close 关闭底层 Source（如果支持）
func (r *Reader) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	r.cur = nil
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadAll 读取 Source 直到结束，正常结束返回 nil 错误
func ReadAll(ctx context.Context, src Source) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), err
		}
		buf.Write(chunk)
	}
}
