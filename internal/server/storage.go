package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/config"
	"github.com/any-hub/any-cache/internal/storage"
	"github.com/any-hub/any-cache/internal/storage/badger"
	"github.com/any-hub/any-cache/internal/storage/fs"
	"github.com/any-hub/any-cache/internal/storage/memory"
	"github.com/any-hub/any-cache/internal/storage/redis"
	"github.com/any-hub/any-cache/internal/storage/s3"
	"github.com/any-hub/any-cache/internal/storage/sqlite"
)

// sqliteFileName 是 sqlite 后端在 Storage.Path 目录下使用的数据库文件。
const sqliteFileName = "any-cache.db"

// NewStorage 按 [Storage] 配置打开对应的后端。返回值可能实现 io.Closer，
// 调用方应在退出前通过 storage.Close 释放。
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFS, "":
		return fs.New(cfg.Path)
	case config.StorageBadger:
		return badger.Open(badger.Config{Path: cfg.Path, Logger: logger})
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		return sqlite.Open(filepath.Join(cfg.Path, sqliteFileName))
	case config.StorageS3:
		return s3.NewFromConfig(ctx, s3.Config{
			Bucket:         cfg.Bucket,
			Region:         cfg.Region,
			Endpoint:       cfg.Endpoint,
			Prefix:         cfg.Prefix,
			ForcePathStyle: cfg.ForcePathStyle,
		})
	case config.StorageRedis:
		return redis.Dial(ctx, redis.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
