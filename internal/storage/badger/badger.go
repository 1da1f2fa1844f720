// Package badger 基于 BadgerDB 的嵌入式存储实现。每个 Key 对应一条记录，
// 写入在单个事务中完成，天然满足原子覆盖写。
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

// Config 描述 Badger 存储的打开方式。
type Config struct {
	// Path 为数据目录；InMemory 为 true 时忽略。
	Path string
	// InMemory 不落盘，仅用于测试或临时实例。
	InMemory bool
	// Logger 接收 Badger 内部日志，为空时静默。
	Logger *logrus.Logger
}

// Storage 是 Badger 存储实现。
type Storage struct {
	db *badgerdb.DB
}

// Open 打开（必要时创建）Badger 数据库。
func Open(cfg Config) (*Storage, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path required")
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger.WithField("component", "badger"))
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Exists(ctx context.Context, k key.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(k.String()))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) || errors.Is(err, badgerdb.ErrEmptyKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Value(ctx context.Context, k key.Key) (content.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k.IsRoot() {
		return nil, storage.ErrNotFound
	}
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(k.String()))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
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
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(k.String()), data)
	})
}

func (s *Storage) Delete(ctx context.Context, k key.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if k.IsRoot() {
		return storage.ErrEmptyKey
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		raw := []byte(k.String())
		if _, err := txn.Get(raw); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return txn.Delete(raw)
	})
}

func (s *Storage) List(ctx context.Context, prefix key.Key) ([]key.Key, error) {
	var keys []key.Key
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		if !prefix.IsRoot() {
			opts.Prefix = []byte(prefix.String())
		}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := key.From(string(it.Item().Key()))
			if k.HasPrefix(prefix) {
				keys = append(keys, k)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close 关闭底层数据库。
func (s *Storage) Close() error {
	return s.db.Close()
}
