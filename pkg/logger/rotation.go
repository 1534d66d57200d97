package logger

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultRotationTime    = 24 * time.Hour
	defaultRotationMaxAge  = 7 * 24 * time.Hour
	defaultRotationPattern = ".%Y%m%d%H"
)

// NewRotationWriter 创建日志文件 writer
// Type 为空时按大小轮换；时间参数为空取默认值，无法解析时返回 ErrInvalidRotation。
func NewRotationWriter(cfg *RotationConfig, outputPath string) (io.WriteCloser, error) {
	switch cfg.Type {
	case RotationBySize, "":
		return &lumberjack.Logger{
			Filename:   outputPath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}, nil
	case RotationByTime:
		return newTimeRotationWriter(cfg, outputPath)
	default:
		return nil, errors.Wrapf(ErrInvalidRotation, "type %q", cfg.Type)
	}
}

func newTimeRotationWriter(cfg *RotationConfig, outputPath string) (io.WriteCloser, error) {
	every, err := parseRotationDuration("rotation_time", cfg.RotationTime, defaultRotationTime)
	if err != nil {
		return nil, err
	}
	keep, err := parseRotationDuration("max_age_time", cfg.MaxAgeTime, defaultRotationMaxAge)
	if err != nil {
		return nil, err
	}

	pattern := cfg.RotationPattern
	if pattern == "" {
		pattern = defaultRotationPattern
	}

	w, err := rotatelogs.New(
		outputPath+pattern,
		rotatelogs.WithLinkName(outputPath),
		rotatelogs.WithRotationTime(every),
		rotatelogs.WithMaxAge(keep),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "rotate %s", outputPath)
	}
	return w, nil
}

func parseRotationDuration(key, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(ErrInvalidRotation, "%s %q", key, s)
	}
	return d, nil
}
