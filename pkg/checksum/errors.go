package checksum

import "github.com/cockroachdb/errors"

var (
	// ErrUpstream 上游报告失败，原始错误通过 errors.Is 仍可识别
	ErrUpstream = errors.New("checksum: upstream error")

	// ErrAborted 外部中止（取消、下游失败）
	ErrAborted = errors.New("checksum: aborted")

	// ErrNotFinalized 流尚未正常结束，摘要不可用
	ErrNotFinalized = errors.New("checksum: digest not finalized")

	// ErrProtocolViolation 调用方违反了 Transform 的使用约定，属于编程错误
	ErrProtocolViolation = errors.New("checksum: protocol violation")
)

// protocolViolation 构造协议违例错误，调用方应直接 panic
func protocolViolation(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrProtocolViolation)
}
