package compress

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec LZ4 帧格式实现
type lz4Codec struct{}

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lz4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Codec) Name() string {
	return string(TypeLZ4)
}
