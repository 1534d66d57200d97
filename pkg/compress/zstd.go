package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec Zstd 实现
type zstdCodec struct{}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	// 每个输入只占一个解码 goroutine
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func (zstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func (zstdCodec) Name() string {
	return string(TypeZstd)
}
