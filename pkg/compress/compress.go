// Package compress 流式编解码器注册表
//
// 解码器包在输入的 io.Reader 外层，按需逐块解压，不缓冲完整内容。
package compress

import (
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrUnsupported 未注册的压缩格式
var ErrUnsupported = errors.New("compress: unsupported type")

// Codec 流式编解码器
type Codec interface {
	// NewReader 返回解压 r 的读取器，Close 不关闭 r
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter 返回压缩后写入 w 的写入器，Close 刷新剩余数据但不关闭 w
	NewWriter(w io.Writer) (io.WriteCloser, error)

	// Name 返回压缩算法名称
	Name() string
}

// Factory 编解码器工厂函数类型
type Factory func() Codec

// Type 压缩格式
type Type string

const (
	// TypeAuto 按文件扩展名推断
	TypeAuto Type = "auto"
	// TypeNone 不解压
	TypeNone Type = "none"
	// TypeGzip gzip 格式
	TypeGzip Type = "gzip"
	// TypeZstd Zstd 帧格式
	TypeZstd Type = "zstd"
	// TypeSnappy Snappy 分帧格式
	TypeSnappy Type = "snappy"
	// TypeLZ4 LZ4 帧格式
	TypeLZ4 Type = "lz4"
)

var (
	mu        sync.RWMutex
	factories = make(map[Type]Factory)

	extensions = map[string]Type{
		".gz":     TypeGzip,
		".gzip":   TypeGzip,
		".zst":    TypeZstd,
		".zstd":   TypeZstd,
		".sz":     TypeSnappy,
		".snappy": TypeSnappy,
		".lz4":    TypeLZ4,
	}
)

func init() {
	Register(TypeNone, func() Codec { return noneCodec{} })
	Register(TypeGzip, func() Codec { return gzipCodec{} })
	Register(TypeZstd, func() Codec { return zstdCodec{} })
	Register(TypeSnappy, func() Codec { return snappyCodec{} })
	Register(TypeLZ4, func() Codec { return lz4Codec{} })
}

// Register 注册编解码器工厂
func Register(t Type, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[t] = factory
}

// Unregister 注销编解码器工厂
func Unregister(t Type) {
	mu.Lock()
	defer mu.Unlock()
	delete(factories, t)
}

// New 创建编解码器
func New(t Type) (Codec, error) {
	mu.RLock()
	factory, ok := factories[t]
	mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "%q", t)
	}
	return factory(), nil
}

// MustNew 创建编解码器，失败时 panic
func MustNew(t Type) Codec {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

// List 返回所有已注册的格式，按名称排序
func List() []Type {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsRegistered 检查格式是否已注册
func IsRegistered(t Type) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := factories[t]
	return ok
}

// Detect 按文件扩展名推断格式，无法识别时为 TypeNone
func Detect(name string) Type {
	if t, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return TypeNone
}

// Resolve 解析 TypeAuto 与空值
func Resolve(t Type, name string) Type {
	switch t {
	case "", TypeNone:
		return TypeNone
	case TypeAuto:
		return Detect(name)
	default:
		return t
	}
}

// NewReader 用格式 t 解压 r
func NewReader(t Type, r io.Reader) (io.ReadCloser, error) {
	c, err := New(t)
	if err != nil {
		return nil, err
	}
	rc, err := c.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "compress: open %s reader", t)
	}
	return rc, nil
}
