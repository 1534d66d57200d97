package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStreamConfig struct {
	ChunkSize      int           `mapstructure:"chunk_size"`
	OverflowPolicy string        `mapstructure:"overflow_policy"`
	BlockTimeout   time.Duration `mapstructure:"block_timeout"`
}

type testAppConfig struct {
	Stream testStreamConfig `mapstructure:"stream"`
	Batch  struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"batch"`
}

// writeConfigFile 写入临时配置文件
func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManagerLoadFile(t *testing.T) {
	path := writeConfigFile(t, "crcsum.yaml", `
stream:
  chunk_size: 4096
  overflow_policy: fail
  block_timeout: 5s
batch:
  workers: 8
`)

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(path))

	var cfg testAppConfig
	require.NoError(t, mgr.Unmarshal(&cfg))
	assert.Equal(t, 4096, cfg.Stream.ChunkSize)
	assert.Equal(t, "fail", cfg.Stream.OverflowPolicy)
	assert.Equal(t, 5*time.Second, cfg.Stream.BlockTimeout)
	assert.Equal(t, 8, cfg.Batch.Workers)

	var sc testStreamConfig
	require.NoError(t, mgr.UnmarshalKey("stream", &sc))
	assert.Equal(t, cfg.Stream, sc)

	assert.Equal(t, 8, mgr.GetInt("batch.workers"))
	assert.Equal(t, "fail", mgr.GetString("stream.overflow_policy"))
	assert.True(t, mgr.IsSet("stream.chunk_size"))
	assert.False(t, mgr.IsSet("stream.unknown"))
	assert.Contains(t, mgr.AllSettings(), "stream")
}

func TestManagerLoadFileMissing(t *testing.T) {
	err := NewManager().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigFileNotFound))
}

func TestManagerLoadFileInvalid(t *testing.T) {
	path := writeConfigFile(t, "bad.yaml", "stream: [unclosed")
	err := NewManager().LoadFile(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfigFileNotFound))
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("CRCTEST_STREAM_CHUNK_SIZE", "128")
	t.Setenv("CRCTEST_BATCH_WORKERS", "3")

	mgr := NewManager(
		WithEnvPrefix("CRCTEST"),
		WithDefaults(map[string]any{
			"stream.chunk_size": 65536,
			"batch.workers":     1,
		}),
	)

	var cfg testAppConfig
	require.NoError(t, mgr.Unmarshal(&cfg))
	assert.Equal(t, 128, cfg.Stream.ChunkSize)
	assert.Equal(t, 3, cfg.Batch.Workers)
}

func TestManagerFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 1, "")
	fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse([]string{"--workers=6", "--verbose"}))

	mgr := NewManager(WithDefaults(map[string]any{"batch.workers": 2}))
	require.NoError(t, mgr.BindFlag("batch.workers", fs.Lookup("workers")))
	require.NoError(t, mgr.BindFlags(fs))

	assert.Equal(t, 6, mgr.GetInt("batch.workers"))
	assert.True(t, mgr.GetBool("verbose"))

	assert.Error(t, mgr.BindFlag("batch.workers", fs.Lookup("nope")))
}

func TestManagerSet(t *testing.T) {
	mgr := NewManager(WithConfigType("yaml"))
	mgr.Set("stream.overflow_policy", "block")
	assert.Equal(t, "block", mgr.Get("stream.overflow_policy"))
}
