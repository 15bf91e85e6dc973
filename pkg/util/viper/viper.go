package viper

import (
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"
)

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config。
func New() *Config {
	return &Config{
		v: spfviper.New(),
	}
}

// BindEnv 开启环境变量覆盖：key 中的 "." 替换为 "_"，prefix 非空时再加上前缀。
// 例如 prefix 为空时，persistence.serializer 对应 PERSISTENCE_SERIALIZER。
//
// 环境变量只对 Get 系列和设置过默认值的 key 生效，需要 Unmarshal 整体配置才能看到覆盖结果。
func (c *Config) BindEnv(prefix string) {
	if prefix != "" {
		c.v.SetEnvPrefix(prefix)
	}
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()
}

// SetDefault 设置 key 的默认值。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// IsSet 判断 key 是否来自配置文件、环境变量或默认值。
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// Set 以最高优先级覆盖 key，一般用于命令行参数。
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	}

	return c.v.ReadInConfig()
}

// ConfigFile 返回已加载的配置文件路径，未加载时为空。
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

// Unmarshal 将完整配置反序列化到 dst。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}

// AllSettings 返回合并后的全部配置。
func (c *Config) AllSettings() map[string]any {
	return c.v.AllSettings()
}
