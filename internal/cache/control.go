package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/any-hub/any-cache/internal/key"
)

// Control 决定远端失败时已存储的值是否仍可返回。实现必须是无状态的纯函数。
type Control interface {
	Validate(k key.Key, stored bool, cause error) bool
}

// ControlFunc 将普通函数适配为 Control。
type ControlFunc func(k key.Key, stored bool, cause error) bool

// Validate makes ControlFunc satisfy Control.
func (f ControlFunc) Validate(k key.Key, stored bool, cause error) bool {
	return f(k, stored, cause)
}

type standard string

const (
	// Always 接受任何已存储的值，不论远端因何失败。
	Always standard = "always"
	// NoCache 从不接受已存储的值，远端失败总是向上传递。
	NoCache standard = "no-cache"
)

func (s standard) Validate(_ key.Key, stored bool, _ error) bool {
	return s == Always && stored
}

func (s standard) String() string {
	return string(s)
}

// OnErrors 仅当远端错误匹配 targets 之一（errors.Is）时接受已存储的值。
func OnErrors(targets ...error) Control {
	return ControlFunc(func(_ key.Key, stored bool, cause error) bool {
		if !stored {
			return false
		}
		for _, target := range targets {
			if errors.Is(cause, target) {
				return true
			}
		}
		return false
	})
}

// ParseStandard 解析配置中的 "always" / "no-cache"。
func ParseStandard(raw string) (Control, error) {
	switch standard(strings.ToLower(strings.TrimSpace(raw))) {
	case Always:
		return Always, nil
	case NoCache:
		return NoCache, nil
	default:
		return nil, fmt.Errorf("unknown cache control: %s", raw)
	}
}
