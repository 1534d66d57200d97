package compress

import (
	"io"

	"github.com/golang/snappy"
)

// snappyCodec Snappy 分帧格式实现
type snappyCodec struct{}

func (snappyCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

func (snappyCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (snappyCodec) Name() string {
	return string(TypeSnappy)
}
