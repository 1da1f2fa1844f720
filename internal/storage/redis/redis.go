// Package redis 把条目保存为 Redis 字符串值，键名为 Prefix + Key。
// SET 为单命令覆盖写，天然原子。
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/storage"
)

// Client 是本包用到的 go-redis 命令子集，*goredis.Client 满足该接口。
type Client interface {
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
}

// Config 描述 Redis 连接。
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

const scanBatch = 256

// Storage 是 Redis 存储实现。
type Storage struct {
	client Client
	prefix string
	closer func() error
}

// New 使用已有客户端构建存储。
func New(client Client, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

// Dial 连接 Redis 并通过 PING 校验可用性。
func Dial(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := New(client, cfg.Prefix)
	s.closer = client.Close
	return s, nil
}

func (s *Storage) redisKey(k key.Key) string {
	return s.prefix + k.String()
}

func (s *Storage) Exists(ctx context.Context, k key.Key) (bool, error) {
	if k.IsRoot() {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.redisKey(k)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) Value(ctx context.Context, k key.Key) (content.Content, error) {
	if k.IsRoot() {
		return nil, storage.ErrNotFound
	}
	data, err := s.client.Get(ctx, s.redisKey(k)).Bytes()
	if errors.Is(err, goredis.Nil) {
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
	return s.client.Set(ctx, s.redisKey(k), data, 0).Err()
}

func (s *Storage) Delete(ctx context.Context, k key.Key) error {
	if k.IsRoot() {
		return storage.ErrEmptyKey
	}
	n, err := s.client.Del(ctx, s.redisKey(k)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix key.Key) ([]key.Key, error) {
	match := escapeGlob(s.prefix)
	if !prefix.IsRoot() {
		match += escapeGlob(prefix.String())
	}
	match += "*"

	seen := make(map[key.Key]struct{})
	var cursor uint64
	for {
		names, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			k := key.From(strings.TrimPrefix(name, s.prefix))
			if k.HasPrefix(prefix) {
				seen[k] = struct{}{}
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	keys := make([]key.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// Close 关闭由 Dial 创建的连接。
func (s *Storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func escapeGlob(raw string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(raw)
}
