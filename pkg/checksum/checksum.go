// pkg/checksum/checksum.go
package checksum

import (
	"fmt"
	"hash/crc32"
)

// Digest 流正常结束时的最终快照，生成后不再变化
type Digest struct {
	CRC32 uint32
	Size  int64
}

// String 返回 8 位十六进制 CRC 与字节数
func (d Digest) String() string {
	return fmt.Sprintf("%08x/%d", d.CRC32, d.Size)
}

// Accumulator CRC-32 (IEEE 反射多项式) 累加器
// 使用标准库预计算的 256 项查找表逐字节更新，初值与终值异或全 1 由 crc32.Update 负责，
// 因此按任意方式切分输入得到的结果与一次性计算相同
// 非并发安全，只能由单一写入方使用
type Accumulator struct {
	crc  uint32
	size int64
}

// Update 将 p 折叠进累加器
func (a *Accumulator) Update(p []byte) {
	a.crc = crc32.Update(a.crc, crc32.IEEETable, p)
	a.size += int64(len(p))
}

// Write 实现 io.Writer，永不失败
func (a *Accumulator) Write(p []byte) (int, error) {
	a.Update(p)
	return len(p), nil
}

// Sum32 返回当前 CRC 值
func (a *Accumulator) Sum32() uint32 {
	return a.crc
}

// Size 返回已累计的字节数
func (a *Accumulator) Size() int64 {
	return a.size
}

// Digest 返回当前快照
func (a *Accumulator) Digest() Digest {
	return Digest{CRC32: a.crc, Size: a.size}
}

// Reset 清空累加器
func (a *Accumulator) Reset() {
	a.crc = 0
	a.size = 0
}

// Sum 计算 data 的 CRC-32
func Sum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Verify 验证 data 的 CRC-32
func Verify(data []byte, expected uint32) bool {
	return Sum(data) == expected
}
