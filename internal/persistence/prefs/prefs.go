// Package prefs 提供存放少量整数偏好值（例如最近使用的存档槽位）的键值存储。
package prefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Store 是偏好值的键值存储，所有实现都可并发使用。
type Store interface {
	// GetInt 返回 key 对应的值，不存在时返回 def。
	GetInt(ctx context.Context, key string, def int) (int, error)
	SetInt(ctx context.Context, key string, value int) error
	// Delete 删除 key，不存在不是错误。
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverBuntDB = "buntdb"
	DriverSQLite = "sqlite"

	// MemoryPath 让文件型驱动只在内存中保存数据。
	MemoryPath = ":memory:"
)

// Config 偏好存储配置。
type Config struct {
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`
	// Path 为数据库文件路径，留空等价于 :memory:。
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// Drivers 返回支持的驱动名。
func Drivers() []string {
	return []string{DriverMemory, DriverBuntDB, DriverSQLite}
}

// Open 按 cfg.Driver 打开偏好存储。
func Open(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = MemoryPath
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver != DriverMemory && path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, merr.WrapErrIoFailed(filepath.Dir(path), err)
		}
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverBuntDB:
		return OpenBuntDB(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, merr.WrapErrParameterInvalid(strings.Join(Drivers(), "|"), cfg.Driver, "unknown preferences driver")
	}
}
