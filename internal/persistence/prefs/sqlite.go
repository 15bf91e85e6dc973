package prefs

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

const (
	createPreferencesTable = `CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
)`
	selectPreference = `SELECT value FROM preferences WHERE key = ?`
	upsertPreference = `INSERT INTO preferences (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	deletePreference = `DELETE FROM preferences WHERE key = ?`
)

// SQLiteStore 基于 mattn/go-sqlite3 的偏好存储。
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite 打开 path 处的 sqlite 数据库并确保 preferences 表存在。
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, merr.WrapErrPreferences(path, err)
	}
	// :memory: 数据库按连接隔离，只保留一个连接。
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createPreferencesTable); err != nil {
		_ = db.Close()
		return nil, merr.WrapErrPreferences(path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetInt(ctx context.Context, key string, def int) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, selectPreference, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, merr.WrapErrPreferences(key, err)
	}
	return v, nil
}

func (s *SQLiteStore) SetInt(ctx context.Context, key string, value int) error {
	_, err := s.db.ExecContext(ctx, upsertPreference, key, value)
	return merr.WrapErrPreferences(key, err)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deletePreference, key)
	return merr.WrapErrPreferences(key, err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
