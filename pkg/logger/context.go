package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// DefaultContextExtractor 不提取任何字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	return nil
}

type streamIDKey struct{}

// ContextWithStreamID 在 context 中记录流 ID
func ContextWithStreamID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, streamIDKey{}, id)
}

// StreamIDFromContext 取出流 ID
func StreamIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(streamIDKey{}).(string)
	return id, ok && id != ""
}

// StreamIDExtractor 将 context 中的流 ID 输出为 stream_id 字段
func StreamIDExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	if id, ok := StreamIDFromContext(ctx); ok {
		return []zap.Field{zap.String("stream_id", id)}
	}
	return nil
}
