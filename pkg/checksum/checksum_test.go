package checksum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// pattern 生成 i&255 序列
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i & 255)
	}
	return data
}

func TestSum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0},
		{"hello world", []byte("hello world"), 222957957},
		{"some string", []byte("some string"), 4182587481},
		{"pattern 20000", pattern(20000), 4024292205},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sum(tt.data))
			assert.True(t, Verify(tt.data, tt.want))
			assert.False(t, Verify(tt.data, tt.want+1))
		})
	}
}

func TestAccumulator_ChunkingInvariance(t *testing.T) {
	data := pattern(20000)
	want := Sum(data)

	splits := [][]int{
		{20000},
		{1, 19999},
		{3, 7, 11, 13, 19966},
		{10000, 0, 10000},
		{6000, 6000, 6000, 2000},
	}

	for _, sizes := range splits {
		var acc Accumulator
		off := 0
		for _, n := range sizes {
			acc.Update(data[off : off+n])
			off += n
		}
		assert.Equal(t, want, acc.Sum32(), "splits %v", sizes)
		assert.Equal(t, int64(len(data)), acc.Size())
	}

	// 逐字节
	var acc Accumulator
	for i := range data {
		acc.Update(data[i : i+1])
	}
	assert.Equal(t, want, acc.Sum32())
}

func TestAccumulator_Writer(t *testing.T) {
	var acc Accumulator
	n, err := acc.Write([]byte("hello "))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = acc.Write([]byte("world"))

	assert.Equal(t, Digest{CRC32: 222957957, Size: 11}, acc.Digest())

	acc.Reset()
	assert.Equal(t, Digest{}, acc.Digest())
}

func TestDigest_String(t *testing.T) {
	d := Digest{CRC32: 0xabc, Size: 42}
	assert.Equal(t, "00000abc/42", d.String())
}

func BenchmarkAccumulator(b *testing.B) {
	sizes := []struct {
		name string
		size int
	}{
		{"1KB", 1024},
		{"64KB", 64 * 1024},
		{"1MB", 1024 * 1024},
	}

	for _, s := range sizes {
		data := bytes.Repeat([]byte("x"), s.size)
		b.Run(s.name, func(b *testing.B) {
			b.SetBytes(int64(s.size))
			var acc Accumulator
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				acc.Update(data)
			}
		})
	}
}
