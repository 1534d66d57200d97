package stream

import "io"

// Kind 输入的分类标签
type Kind int

const (
	KindUnknown Kind = iota
	KindBytes
	KindText
	KindSource
	KindEmitter
	KindReader
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindBytes:   "bytes",
	KindText:    "text",
	KindSource:  "source",
	KindEmitter: "emitter",
	KindReader:  "reader",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Classify 对输入做一次性分类
// 同时满足多个接口时优先级为 Source > Emitter > io.Reader
func Classify(v any) Kind {
	switch v.(type) {
	case nil:
		return KindUnknown
	case []byte, Chunk:
		return KindBytes
	case string:
		return KindText
	case Source:
		return KindSource
	case Emitter:
		return KindEmitter
	case io.Reader:
		return KindReader
	default:
		return KindUnknown
	}
}

// IsStream 判断 v 是否具有任意一种流的形状
func IsStream(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case Source, Emitter, io.Reader, io.Writer:
		return true
	default:
		return false
	}
}
