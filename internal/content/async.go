package content

import (
	"context"

	"github.com/any-hub/any-cache/internal/future"
)

// AsyncContent 每次调用都可能独立触发一次新的获取，不做任何缓存。
// 需要对已持有的 Future 做单次求值时使用 OfFuture。
type AsyncContent func(ctx context.Context) *future.Future[Content]

// EmptyAsync 立即返回空内容。
func EmptyAsync(context.Context) *future.Future[Content] {
	return future.Completed(Empty())
}

// Failed 返回一个总是以 reason 失败的 AsyncContent，调用时不做任何实际工作，
// 用于表示已知不可用的远端。
func Failed(reason error) AsyncContent {
	return func(context.Context) *future.Future[Content] {
		return future.Failed[Content](reason)
	}
}

// Bytes 每次调用都返回 data 的一份新 Content。
func Bytes(data []byte) AsyncContent {
	return func(context.Context) *future.Future[Content] {
		return future.Completed(FromBytes(data))
	}
}
