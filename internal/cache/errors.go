package cache

import (
	"fmt"

	"github.com/any-hub/any-cache/internal/key"
)

// RemoteError 表示远端不可用且没有可接受的存储值。无论是存储中不存在，还是 Control 拒绝，
// 调用方看到的都是同一个错误；Err 保留远端的原始错误。
type RemoteError struct {
	Key key.Key
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote unavailable for %s: %v", e.Key, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
