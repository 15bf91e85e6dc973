package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hengadev/errsx"
	"github.com/samber/lo"

	"github.com/lk2023060901/persistence-go/internal/persistence/compressor"
	"github.com/lk2023060901/persistence-go/internal/persistence/crypto"
	"github.com/lk2023060901/persistence-go/internal/persistence/prefs"
	"github.com/lk2023060901/persistence-go/internal/persistence/serializer"
)

const (
	DefaultCryptographerKey = "H2h2xZe83AX90788QNqJXRiWX88xWI2b"
	DefaultSlotName         = "SaveSlot"
	DefaultLastSlotKey      = "LastSlot"

	preferencesFile = "preferences.db"
)

// Config 存档设置，可直接从配置文件的 persistence 段反序列化得到。
type Config struct {
	Serializer       string `mapstructure:"serializer" json:"serializer" yaml:"serializer"`
	Compressor       string `mapstructure:"compressor" json:"compressor" yaml:"compressor"`
	Cryptographer    string `mapstructure:"cryptographer" json:"cryptographer" yaml:"cryptographer"`
	CryptographerKey string `mapstructure:"cryptographer_key" json:"cryptographer_key" yaml:"cryptographer_key"`
	// SlotName 为槽位存档名前缀，槽位 i 的存档名为 <SlotName>-<两位序号>。
	SlotName string `mapstructure:"slot_name" json:"slot_name" yaml:"slot_name"`
	// LastSlotKey 为偏好存储中记录最近槽位的 key。
	LastSlotKey string `mapstructure:"last_slot_key" json:"last_slot_key" yaml:"last_slot_key"`
	// SaveRawFile 开发模式下是否同时写入可读的调试副本。
	SaveRawFile bool   `mapstructure:"save_raw_file" json:"save_raw_file" yaml:"save_raw_file"`
	DataPath    string `mapstructure:"data_path" json:"data_path" yaml:"data_path"`
	// Development 对应开发构建，只有开发构建才会读写调试副本。
	Development bool         `mapstructure:"development" json:"development" yaml:"development"`
	Preferences prefs.Config `mapstructure:"preferences" json:"preferences" yaml:"preferences"`
	// PoolSize 异步操作协程池大小，0 表示使用 CPU 核数。
	PoolSize int `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`
	// PoolPreAlloc 是否预先分配 worker 队列。
	PoolPreAlloc bool `mapstructure:"pool_pre_alloc" json:"pool_pre_alloc" yaml:"pool_pre_alloc"`
	// PoolExpiry 空闲 worker 的回收间隔，0 表示使用 ants 的默认值。
	PoolExpiry time.Duration `mapstructure:"pool_expiry" json:"pool_expiry" yaml:"pool_expiry"`
}

// DefaultDataPath 返回用户配置目录下的 persistence 目录。
func DefaultDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "persistence")
}

// DefaultConfig 返回默认设置。
func DefaultConfig() Config {
	dataPath := DefaultDataPath()
	return Config{
		Serializer:       serializer.JSON.String(),
		Compressor:       compressor.None.String(),
		Cryptographer:    crypto.None.String(),
		CryptographerKey: DefaultCryptographerKey,
		SlotName:         DefaultSlotName,
		LastSlotKey:      DefaultLastSlotKey,
		SaveRawFile:      true,
		DataPath:         dataPath,
		Preferences: prefs.Config{
			Driver: prefs.DriverBuntDB,
			Path:   filepath.Join(dataPath, preferencesFile),
		},
	}
}

// Validate 校验全部字段，每个出错的字段对应一条错误。
func (c Config) Validate() error {
	var errs errsx.Map

	if _, err := serializer.ParseType(c.Serializer); err != nil {
		errs.Set("serializer", err)
	}
	if _, err := compressor.ParseType(c.Compressor); err != nil {
		errs.Set("compressor", err)
	}
	ct, err := crypto.ParseType(c.Cryptographer)
	if err != nil {
		errs.Set("cryptographer", err)
	} else if ct == crypto.AES && !lo.Contains([]int{16, 24, 32}, len(c.CryptographerKey)) {
		errs.Set("cryptographer_key", "key must be 16, 24 or 32 bytes")
	}
	if strings.TrimSpace(c.SlotName) == "" {
		errs.Set("slot_name", "must not be empty")
	}
	if strings.TrimSpace(c.LastSlotKey) == "" {
		errs.Set("last_slot_key", "must not be empty")
	}
	if strings.TrimSpace(c.DataPath) == "" {
		errs.Set("data_path", "must not be empty")
	}
	if !lo.Contains(prefs.Drivers(), strings.ToLower(strings.TrimSpace(c.Preferences.Driver))) {
		errs.Set("preferences.driver", "unknown driver "+c.Preferences.Driver)
	}
	if c.PoolSize < 0 {
		errs.Set("pool_size", "must not be negative")
	}
	if c.PoolExpiry < 0 {
		errs.Set("pool_expiry", "must not be negative")
	}

	if errs.IsEmpty() {
		return nil
	}
	return errs.AsError()
}

// types 解析三种策略类型，调用前需先通过 Validate。
func (c Config) types() (serializer.Type, compressor.Type, crypto.Type, error) {
	st, err := serializer.ParseType(c.Serializer)
	if err != nil {
		return 0, 0, 0, err
	}
	zt, err := compressor.ParseType(c.Compressor)
	if err != nil {
		return 0, 0, 0, err
	}
	ct, err := crypto.ParseType(c.Cryptographer)
	if err != nil {
		return 0, 0, 0, err
	}
	return st, zt, ct, nil
}
