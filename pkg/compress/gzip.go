package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipCodec gzip 实现，支持多成员文件
type gzipCodec struct{}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCodec) Name() string {
	return string(TypeGzip)
}
