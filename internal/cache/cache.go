package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/content"
	"github.com/any-hub/any-cache/internal/future"
	"github.com/any-hub/any-cache/internal/key"
	"github.com/any-hub/any-cache/internal/logging"
	"github.com/any-hub/any-cache/internal/storage"
)

// Cache 从 remote 加载 k 对应的内容，并在 control 允许时回退到本地存储。
type Cache interface {
	Load(ctx context.Context, k key.Key, remote content.AsyncContent, control Control) *future.Future[content.Content]
}

// Outcome 描述一次 Load 的结果类别。
type Outcome string

const (
	OutcomeFresh  Outcome = "fresh"
	OutcomeStale  Outcome = "stale"
	OutcomeFailed Outcome = "failed"
)

// Observer 接收每次 Load 的结果，用于指标统计。
type Observer interface {
	ObserveLoad(outcome Outcome, elapsed time.Duration)
}

var errNilContent = errors.New("remote returned nil content")

// FromRemote 是 Cache 的标准实现，除 Storage 引用外不持有跨调用状态。
type FromRemote struct {
	storage  storage.Storage
	logger   logrus.FieldLogger
	observer Observer
	now      func() time.Time
}

// Option 调整 FromRemote 的可选依赖。
type Option func(*FromRemote)

// WithLogger 指定结构化日志输出。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *FromRemote) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver 注册结果观察者。
func WithObserver(observer Observer) Option {
	return func(c *FromRemote) {
		c.observer = observer
	}
}

// NewFromRemote 基于 s 构建缓存，实例可在多个请求间共享。
func NewFromRemote(s storage.Storage, opts ...Option) *FromRemote {
	c := &FromRemote{
		storage: s,
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 只调用一次 remote。成功时先写入存储再读回返回；失败时进入回退判断。
// 返回的 Future 完成之前，写入已经完成。
func (c *FromRemote) Load(ctx context.Context, k key.Key, remote content.AsyncContent, control Control) *future.Future[content.Content] {
	started := c.now()
	return future.Handle(remote(ctx), func(fetched content.Content, err error) (content.Content, error) {
		if err == nil && fetched == nil {
			err = errNilContent
		}
		if err != nil {
			return c.fallback(ctx, k, err, control, started)
		}
		return c.refresh(ctx, k, fetched, started)
	})
}

func (c *FromRemote) refresh(ctx context.Context, k key.Key, fetched content.Content, started time.Time) (content.Content, error) {
	if err := c.storage.Save(ctx, k, fetched); err != nil {
		err = fmt.Errorf("save %s: %w", k, err)
		c.finish(k, OutcomeFailed, started, err)
		return nil, err
	}
	saved, err := c.storage.Value(ctx, k)
	if err != nil {
		err = fmt.Errorf("read back %s: %w", k, err)
		c.finish(k, OutcomeFailed, started, err)
		return nil, err
	}
	c.finish(k, OutcomeFresh, started, nil)
	return saved, nil
}

// fallback 永远不会用存储层的错误替换远端错误，存储错误只记录日志。
func (c *FromRemote) fallback(ctx context.Context, k key.Key, cause error, control Control, started time.Time) (content.Content, error) {
	failure := &RemoteError{Key: k, Err: cause}

	exists, err := c.storage.Exists(ctx, k)
	if err != nil {
		c.logger.WithError(err).WithField("key", k.String()).Warn("cache_exists_failed")
		c.finish(k, OutcomeFailed, started, failure)
		return nil, failure
	}
	if !exists || control == nil || !control.Validate(k, true, cause) {
		c.finish(k, OutcomeFailed, started, failure)
		return nil, failure
	}

	stored, err := c.storage.Value(ctx, k)
	if err != nil {
		c.logger.WithError(err).WithField("key", k.String()).Warn("cache_read_failed")
		c.finish(k, OutcomeFailed, started, failure)
		return nil, failure
	}
	c.logger.WithError(cause).WithField("key", k.String()).Warn("remote_failed_serving_stored")
	c.finish(k, OutcomeStale, started, nil)
	return stored, nil
}

func (c *FromRemote) finish(k key.Key, outcome Outcome, started time.Time, err error) {
	elapsed := c.now().Sub(started)
	if c.observer != nil {
		c.observer.ObserveLoad(outcome, elapsed)
	}
	fields := logging.LoadFields(k.String(), string(outcome), elapsed)
	if err != nil {
		fields["error"] = err.Error()
		c.logger.WithFields(fields).Error("cache_load_failed")
		return
	}
	c.logger.WithFields(fields).Info("cache_load_complete")
}

var _ Cache = (*FromRemote)(nil)
