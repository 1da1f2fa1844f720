// Package sqlite 把条目保存在单表 SQLite 数据库中（纯 Go 驱动 glebarez/go-sqlite）。
// 覆盖写使用 INSERT OR REPLACE 单语句完成。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Storage 是 SQLite 存储实现。
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Open 打开 filename 指向的数据库并建表。filename 为空时使用共享内存库。
func Open(filename string) (*Storage, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 单连接避免写锁竞争（SQLITE_BUSY）。
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

func (s *Storage) Exists(ctx context.Context, k key.Key) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE key = ?", k.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Value(ctx context.Context, k key.Key) (content.Content, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM entries WHERE key = ?", k.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return content.FromBytes(data), nil
}

func (s *Storage) Save(ctx context.Context, k key.Key, c content.Content) error {
	if k.IsRoot() {
		return storage.ErrEmptyKey
	}
	data, err := content.ReadAll(ctx, c)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, value, updated_at) VALUES (?, ?, ?)",
		k.String(), data, s.now().Unix())
	return err
}

func (s *Storage) Delete(ctx context.Context, k key.Key) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", k.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix key.Key) ([]key.Key, error) {
	query := "SELECT key FROM entries ORDER BY key"
	var args []any
	if !prefix.IsRoot() {
		query = `SELECT key FROM entries WHERE key = ? OR key LIKE ? ESCAPE '\' ORDER BY key`
		args = append(args, prefix.String(), escapeLike(prefix.String())+key.Delimiter+"%")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []key.Key
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		keys = append(keys, key.From(raw))
	}
	return keys, rows.Err()
}

// Close 关闭数据库连接。
func (s *Storage) Close() error {
	return s.db.Close()
}

func escapeLike(raw string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(raw)
}
