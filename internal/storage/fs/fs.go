// Package fs 把 Key 映射为 <basePath>/<key>/.body 文件的磁盘存储。内容统一落在保留叶子
// .body 下，因此 a 与 a/b 可以同时持有值。写入通过临时文件 + rename 保证原子性，
// 失败时清理临时文件；同一 Key 的并发写入经 entryLock 串行化。
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

const (
	tempPattern = ".cache-*"
	bodyLeaf    = ".body"
)

// New 以 basePath 为根目录构建磁盘存储，整站复用一份实例。
func New(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &Storage{
		basePath: abs,
		locks:    make(map[key.Key]*entryLock),
	}, nil
}

// Storage 是磁盘存储实现。
type Storage struct {
	basePath string

	mu    sync.Mutex
	locks map[key.Key]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Storage) Exists(ctx context.Context, k key.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	filePath, err := s.entryPath(k)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *Storage) Value(ctx context.Context, k key.Key) (content.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := s.entryPath(k)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, storage.ErrNotFound
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return content.FromReader(f, info.Size()), nil
}

func (s *Storage) Save(ctx context.Context, k key.Key, c content.Content) error {
	filePath, err := s.entryPath(k)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(k)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), tempPattern)
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = content.Copy(ctx, tempFile, c)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, k key.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := s.entryPath(k)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(k)
	defer unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return err
	}
	// 目录下仍有子 Key 时 Remove 会失败，忽略即可。
	_ = os.Remove(filepath.Dir(filePath))
	return nil
}

func (s *Storage) List(ctx context.Context, prefix key.Key) ([]key.Key, error) {
	root := s.basePath
	if !prefix.IsRoot() {
		root = filepath.Join(s.basePath, filepath.FromSlash(prefix.String()))
	}

	var keys []key.Key
	err := filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || d.Name() != bodyLeaf {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, filepath.Dir(p))
		if err != nil {
			return err
		}
		keys = append(keys, key.From(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

func (s *Storage) lockEntry(k key.Key) func() {
	s.mu.Lock()
	lock := s.locks[k]
	if lock == nil {
		lock = &entryLock{}
		s.locks[k] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, k)
		}
		s.mu.Unlock()
	}
}

// entryPath 把 Key 映射到 basePath 下的 <key>/.body，拒绝 Root、越界路径与保留名。
func (s *Storage) entryPath(k key.Key) (string, error) {
	if k.IsRoot() {
		return "", storage.ErrEmptyKey
	}
	for _, part := range k.Parts() {
		if part == "." || part == ".." || part == bodyLeaf || strings.HasPrefix(part, ".cache-") {
			return "", errors.New("invalid storage path")
		}
	}
	filePath := filepath.Join(s.basePath, filepath.FromSlash(k.String()), bodyLeaf)
	if !strings.HasPrefix(filePath, s.basePath+string(filepath.Separator)) {
		return "", errors.New("invalid storage path")
	}
	return filePath, nil
}

var _ storage.Storage = (*Storage)(nil)
