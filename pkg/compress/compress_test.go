package compress

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, typ Type, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := MustNew(typ).NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func generateRandomBytes(n int) []byte {
	r := rand.New(rand.NewSource(42))
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("hello world")},
		{"large", bytes.Repeat([]byte("hello world "), 100000)},
		{"random", generateRandomBytes(100000)},
	}

	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd, TypeSnappy, TypeLZ4} {
		for _, tc := range testCases {
			t.Run(string(typ)+"/"+tc.name, func(t *testing.T) {
				encoded := encode(t, typ, tc.data)

				// 逐字节读取压缩流，验证解码器不依赖一次读完
				rc, err := NewReader(typ, iotest.OneByteReader(bytes.NewReader(encoded)))
				require.NoError(t, err)
				defer rc.Close()

				got, err := io.ReadAll(rc)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(tc.data, got))
			})
		}
	}
}

func TestCorruptInput(t *testing.T) {
	garbage := []byte("this is definitely not compressed")

	for _, typ := range []Type{TypeGzip, TypeZstd, TypeSnappy, TypeLZ4} {
		t.Run(string(typ), func(t *testing.T) {
			rc, err := NewReader(typ, bytes.NewReader(garbage))
			if err != nil {
				return
			}
			defer rc.Close()
			_, err = io.ReadAll(rc)
			assert.Error(t, err)
		})
	}
}

func TestUnsupported(t *testing.T) {
	_, err := New("brotli")
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = NewReader("brotli", bytes.NewReader(nil))
	assert.True(t, errors.Is(err, ErrUnsupported))

	assert.Panics(t, func() { MustNew("brotli") })
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []Type{TypeGzip, TypeLZ4, TypeNone, TypeSnappy, TypeZstd}, List())
	assert.True(t, IsRegistered(TypeZstd))
	assert.False(t, IsRegistered(TypeAuto))

	Register("custom", func() Codec { return noneCodec{} })
	assert.True(t, IsRegistered("custom"))
	Unregister("custom")
	assert.False(t, IsRegistered("custom"))

	for _, typ := range List() {
		assert.Equal(t, string(typ), MustNew(typ).Name())
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		want Type
	}{
		{"backup.tar.gz", TypeGzip},
		{"LOG.GZ", TypeGzip},
		{"data.zst", TypeZstd},
		{"data.zstd", TypeZstd},
		{"blob.sz", TypeSnappy},
		{"blob.snappy", TypeSnappy},
		{"frame.lz4", TypeLZ4},
		{"plain.txt", TypeNone},
		{"-", TypeNone},
		{"", TypeNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Detect(tt.name), tt.name)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, TypeNone, Resolve("", "a.gz"))
	assert.Equal(t, TypeNone, Resolve(TypeNone, "a.gz"))
	assert.Equal(t, TypeGzip, Resolve(TypeAuto, "a.gz"))
	assert.Equal(t, TypeNone, Resolve(TypeAuto, "a.txt"))
	assert.Equal(t, TypeZstd, Resolve(TypeZstd, "a.txt"))
}

func BenchmarkZstdDecode(b *testing.B) {
	var buf bytes.Buffer
	w, _ := MustNew(TypeZstd).NewWriter(&buf)
	_, _ = w.Write(bytes.Repeat([]byte("hello world "), 100000))
	_ = w.Close()
	encoded := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rc, _ := NewReader(TypeZstd, bytes.NewReader(encoded))
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()
	}
}
