package checksum

import "github.com/lk2023060901/crcstream/pkg/logger"

// Option Transform 选项
type Option func(*Transform)

// WithHighWaterMark 设置下游队列可容纳的块数，至少为 1
func WithHighWaterMark(n int) Option {
	return func(t *Transform) {
		if n > 0 {
			t.highWaterMark = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(t *Transform) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithObserver 设置观察者
func WithObserver(o Observer) Option {
	return func(t *Transform) {
		if o != nil {
			t.observer = o
		}
	}
}

// WithID 指定 Transform ID，默认随机 UUID
func WithID(id string) Option {
	return func(t *Transform) {
		if id != "" {
			t.id = id
		}
	}
}
