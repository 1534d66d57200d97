package stream

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttledSource 按字节速率限制上游的拉取
type throttledSource struct {
	src     Source
	limiter *rate.Limiter
}

// Throttle 将 src 的读取速率限制为每秒 bytesPerSecond 字节，突发容量为一秒的配额
// bytesPerSecond <= 0 时原样返回 src
func Throttle(src Source, bytesPerSecond int) Source {
	if bytesPerSecond <= 0 {
		return src
	}
	return &throttledSource{
		src:     src,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond),
	}
}

func (s *throttledSource) Next(ctx context.Context) (Chunk, error) {
	chunk, err := s.src.Next(ctx)
	if err != nil {
		return nil, err
	}

	// WaitN 的 n 不能超过 burst
	for n := len(chunk); n > 0; {
		k := min(n, s.limiter.Burst())
		if err := s.limiter.WaitN(ctx, k); err != nil {
			return nil, err
		}
		n -= k
	}
	return chunk, nil
}

// Close 关闭被包装的数据源
func (s *throttledSource) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
