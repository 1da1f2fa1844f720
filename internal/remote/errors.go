package remote

import (
	"errors"
	"fmt"
)

// ErrUnavailable 匹配所有"远端暂时不可用"的失败：网络错误、超时与 5xx。
var ErrUnavailable = errors.New("remote unavailable")

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Code)
}

// Is 让 5xx 与 429 可以通过 errors.Is(err, ErrUnavailable) 识别。
func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable && (e.Code >= 500 || e.Code == 429)
}

// transportError 包装请求阶段的失败（连接、TLS、超时），Unwrap 保留原始错误链。
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func (e *transportError) Is(target error) bool {
	return target == ErrUnavailable
}
