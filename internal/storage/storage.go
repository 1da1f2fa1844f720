// Package storage 定义缓存编排层依赖的持久化键值存储契约，具体实现位于子包：
// memory（进程内）、fs（磁盘，临时文件 + rename）、badger、sqlite、s3、redis。
// 所有实现都必须保证 Save 为覆盖写且原子：要么整体可见，要么完全不发生。
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
)

// ErrNotFound 表示 Key 下没有存储值。
var ErrNotFound = errors.New("storage entry not found")

// ErrEmptyKey 表示试图对 key.Root 读写值。
var ErrEmptyKey = errors.New("storage key is empty")

// Storage 是按 Key 存取 Content 的持久化存储。
type Storage interface {
	// Exists 报告 k 下是否有值。
	Exists(ctx context.Context, k key.Key) (bool, error)

	// Value 返回 k 下的值，每次调用都返回新的 Content。不存在时返回 ErrNotFound。
	Value(ctx context.Context, k key.Key) (content.Content, error)

	// Save 读完 c 并覆盖写入 k。
	Save(ctx context.Context, k key.Key, c content.Content) error

	// Delete 删除 k 下的值，不存在时返回 ErrNotFound。
	Delete(ctx context.Context, k key.Key) error

	// List 按字典序返回 prefix 之下的全部 Key。
	List(ctx context.Context, prefix key.Key) ([]key.Key, error)
}

// Close 在 s 持有外部资源时释放它们，其它实现直接返回 nil。
func Close(s Storage) error {
	if closer, ok := s.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
