package config

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Manager 配置管理器接口
// 优先级从高到低：命令行参数、环境变量、配置文件、默认值
type Manager interface {
	// LoadFile 加载配置文件，文件不存在时返回 ErrConfigFileNotFound
	LoadFile(path string) error
	// BindFlags 将命令行参数绑定到同名配置键
	BindFlags(fs *pflag.FlagSet) error
	// BindFlag 将单个命令行参数绑定到指定配置键
	BindFlag(key string, flag *pflag.Flag) error
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置，如 "stream" 或 "batch.workers"
	UnmarshalKey(key string, v any) error
	// Get 获取配置值
	Get(key string) any
	// GetString 获取字符串配置
	GetString(key string) string
	// GetInt 获取整数配置
	GetInt(key string) int
	// GetBool 获取布尔配置
	GetBool(key string) bool
	// Set 覆盖配置值
	Set(key string, value any)
	// IsSet 检查配置项是否存在
	IsSet(key string) bool
	// AllSettings 获取所有配置
	AllSettings() map[string]any
}

type manager struct {
	v  *viper.Viper
	mu sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{
		v: viper.New(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// LoadFile 加载配置文件（支持 YAML、JSON、TOML 等）
func (m *manager) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrConfigFileNotFound, "%s", path)
		}
		return errors.Wrapf(err, "failed to stat config file %s", path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	return nil
}

// BindFlags 绑定整个 FlagSet
func (m *manager) BindFlags(fs *pflag.FlagSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "failed to bind flags")
	}
	return nil
}

// BindFlag 绑定单个参数
func (m *manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Newf("flag for key %s is nil", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.BindPFlag(key, flag); err != nil {
		return errors.Wrapf(err, "failed to bind flag %s", flag.Name)
	}
	return nil
}

// Unmarshal 解析整个配置到结构体
func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

// UnmarshalKey 解析指定路径的配置
func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v); err != nil {
		return errors.Wrapf(err, "failed to unmarshal key %s", key)
	}
	return nil
}

func (m *manager) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key)
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) GetInt(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetInt(key)
}

func (m *manager) GetBool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetBool(key)
}

func (m *manager) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) AllSettings() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.AllSettings()
}
