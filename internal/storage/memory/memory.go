// Package memory 提供进程内的 storage.Storage 实现，主要用于测试与无状态部署。
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

// Storage 把值保存在 map 中；写入先读完内容，再在锁内整体替换。
type Storage struct {
	mu     sync.RWMutex
	values map[key.Key][]byte
}

// New 返回空的内存存储。
func New() *Storage {
	return &Storage{values: make(map[key.Key][]byte)}
}

func (s *Storage) Exists(ctx context.Context, k key.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[k]
	return ok, nil
}

func (s *Storage) Value(ctx context.Context, k key.Key) (content.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.values[k]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
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
	s.mu.Lock()
	s.values[k] = bytes.Clone(data)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Delete(ctx context.Context, k key.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[k]; !ok {
		return storage.ErrNotFound
	}
	delete(s.values, k)
	return nil
}

func (s *Storage) List(ctx context.Context, prefix key.Key) ([]key.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]key.Key, 0, len(s.values))
	for k := range s.values {
		if k.HasPrefix(prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}
