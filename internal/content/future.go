package content

import (
	"context"
	"errors"
	"io"

	"github.com/any-hub/any-cache/internal/future"
)

var errNilContent = errors.New("future resolved to nil content")

// OfFuture 把尚未完成的 Future 暴露为 Content。完成前 Size 报告 UnknownSize，
// Open 挂起直至完成；完成后全部委托给内部 Content；Future 失败时二者都返回同一错误。
// Future 本身保证计算只执行一次，这里不再额外加锁。
func OfFuture(f *future.Future[Content]) Content {
	return &futureContent{f: f}
}

type futureContent struct {
	f *future.Future[Content]
}

func (c *futureContent) Size() (int64, error) {
	select {
	case <-c.f.Done():
	default:
		return UnknownSize, nil
	}
	inner, err := c.f.Await(context.Background())
	if err != nil {
		return UnknownSize, err
	}
	if inner == nil {
		return UnknownSize, errNilContent
	}
	return inner.Size()
}

func (c *futureContent) Open(ctx context.Context) (io.ReadCloser, error) {
	inner, err := c.f.Await(ctx)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, errNilContent
	}
	return inner.Open(ctx)
}
