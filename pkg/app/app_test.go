package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/crcstream/pkg/batch"
	"github.com/lk2023060901/crcstream/pkg/logger"
	"github.com/lk2023060901/crcstream/pkg/stream"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(newFlags(t))
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Stream, cfg.Stream)
	assert.Equal(t, d.Checksum, cfg.Checksum)
	assert.Equal(t, d.Batch.Workers, cfg.Batch.Workers)
	assert.Equal(t, logger.WarnLevel, cfg.Log.Level)
	assert.True(t, cfg.Log.EnableConsole)
	assert.False(t, cfg.Metrics.HTTPServer.Enabled)
}

func TestLoadConfig_Priority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crcsum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: info
stream:
  chunk_size: 4096
  overflow_policy: fail
  block_timeout: 5s
batch:
  workers: 3
checksum:
  high_water_mark: 8
`), 0o644))

	// 环境变量覆盖配置文件，命令行覆盖环境变量
	t.Setenv("CRCSTREAM_STREAM_CHUNK_SIZE", "2048")
	t.Setenv("CRCSTREAM_BATCH_WORKERS", "5")

	cfg, err := LoadConfig(newFlags(t, "-c", path, "-j", "7"))
	require.NoError(t, err)

	assert.Equal(t, logger.InfoLevel, cfg.Log.Level)
	assert.Equal(t, 2048, cfg.Stream.ChunkSize)
	assert.Equal(t, stream.OverflowFail, cfg.Stream.OverflowPolicy)
	assert.Equal(t, "5s", cfg.Stream.BlockTimeout.String())
	assert.Equal(t, 7, cfg.Batch.Workers)
	assert.Equal(t, 8, cfg.Checksum.HighWaterMark)
}

func TestLoadConfig_EnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  fail_fast: true\n"), 0o644))
	t.Setenv("CRCSTREAM_CONFIG", path)

	cfg, err := LoadConfig(newFlags(t))
	require.NoError(t, err)
	assert.True(t, cfg.Batch.FailFast)
	assert.Equal(t, path, cfg.File)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
		require.Error(t, err)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := LoadConfig(newFlags(t, "--stream.overflow_policy", "drop"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stream")
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Setenv("CRCSTREAM_LOG_LEVEL", "loud")
		_, err := LoadConfig(newFlags(t))
		require.Error(t, err)
	})

	t.Run("zero high water mark", func(t *testing.T) {
		_, err := LoadConfig(newFlags(t, "--checksum.high_water_mark", "0"))
		require.Error(t, err)
	})
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Log.Level = logger.InfoLevel
	cfg.Log.Format = logger.JSONFormat
	cfg.Log.EnableConsole = false
	cfg.Batch.Workers = 2

	var logs bytes.Buffer
	a, err := New(cfg, WithLogWriter(&logs), WithID("run-1"))
	require.NoError(t, err)
	return a, &logs
}

func TestApp_Checksum(t *testing.T) {
	a, logs := newTestApp(t)
	defer a.Shutdown()

	results, err := a.Checksum(context.Background(), []batch.Entry{
		{Name: "a", Input: "hello world"},
		{Name: "b", Input: strings.NewReader("some string")},
	})
	require.NoError(t, err)
	require.NoError(t, results.Err())

	assert.Equal(t, uint32(222957957), results[0].Digest.CRC32)
	assert.Equal(t, uint32(4182587481), results[1].Digest.CRC32)

	// 指标经由 Recorder 记录
	count, err := testutil.GatherAndCount(a.Metrics().Registry(), "crcstream_streams_completed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, logs.String(), "application starting")
	assert.Contains(t, logs.String(), `"run_id":"run-1"`)
}

func TestApp_LogsOnlyFileNames(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Log.Level = logger.InfoLevel
	cfg.Log.Format = logger.JSONFormat
	cfg.Log.EnableConsole = false
	cfg.File = filepath.Join(dir, "private", "crcsum.yaml")

	var logs bytes.Buffer
	a, err := New(cfg, WithLogWriter(&logs))
	require.NoError(t, err)
	defer a.Shutdown()

	a.Logger().Info("token check", "token", "abc123")

	assert.Contains(t, logs.String(), `"config_file":"crcsum.yaml"`)
	assert.NotContains(t, logs.String(), dir)
	assert.Contains(t, logs.String(), `"token":"`+logger.Redacted+`"`)
	assert.NotContains(t, logs.String(), "abc123")
}

func TestApp_Shutdown(t *testing.T) {
	a, logs := newTestApp(t)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
	assert.True(t, a.Metrics().IsClosed())
	assert.Contains(t, logs.String(), "application exited")

	_, err := a.Checksum(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAppClosed)
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Checksum.HighWaterMark = 0
	_, err := New(cfg)
	require.Error(t, err)
}

func TestApp_WithLogger(t *testing.T) {
	a, err := New(nil, WithLogger(logger.NewNoop()))
	require.NoError(t, err)
	defer a.Shutdown()
	assert.NotNil(t, a.Logger())
	assert.Equal(t, DefaultConfig().Stream, a.Config().Stream)
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	a, err := New(nil, WithLogger(logger.NewNoop()), WithStdout(&out))
	require.NoError(t, err)
	defer a.Shutdown()

	a.PrintVersion()
	assert.True(t, strings.HasPrefix(out.String(), AppName+" "))
	assert.Contains(t, GetInfo().String(), GetInfo().Platform)
}
