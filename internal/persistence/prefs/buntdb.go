package prefs

import (
	"context"
	"errors"
	"strconv"

	"github.com/tidwall/buntdb"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

const buntKeyPrefix = "pref:"

// BuntStore 基于 tidwall/buntdb 的偏好存储，值以十进制字符串保存在 pref:<key> 下。
type BuntStore struct {
	db *buntdb.DB
}

var _ Store = (*BuntStore)(nil)

// OpenBuntDB 打开 path 处的 buntdb 文件，path 为 :memory: 时只保存在内存中。
func OpenBuntDB(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, merr.WrapErrPreferences(path, err)
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) GetInt(ctx context.Context, key string, def int) (int, error) {
	if err := ctx.Err(); err != nil {
		return def, err
	}
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(buntKeyPrefix + key)
		raw = v
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, merr.WrapErrPreferences(key, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, merr.WrapErrPreferences(key, err)
	}
	return v, nil
}

func (s *BuntStore) SetInt(ctx context.Context, key string, value int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(buntKeyPrefix+key, strconv.Itoa(value), nil)
		return err
	})
	return merr.WrapErrPreferences(key, err)
}

func (s *BuntStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(buntKeyPrefix + key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
	return merr.WrapErrPreferences(key, err)
}

func (s *BuntStore) Close() error {
	return s.db.Close()
}
