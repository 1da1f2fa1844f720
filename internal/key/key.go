// Package key 定义存储条目的层级标识。Key 不可变、可比较，可直接作为 map 键，
// 各存储后端自行决定如何把 String() 映射到文件路径、对象名或数据库主键。
package key

import "strings"

// Delimiter 分隔层级中的各个部分。
const Delimiter = "/"

// Key 唯一标识一个存储条目。零值即 Root。
type Key struct {
	path string
}

// Root 表示空 Key，是所有 Key 的公共前缀。
var Root = Key{}

// From 拼接 parts 构建 Key，空段及首尾分隔符会被忽略，例如
// From("maven", "/org/junit/") 与 From("maven/org/junit") 相等。
func From(parts ...string) Key {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, seg := range strings.Split(part, Delimiter) {
			if seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	return Key{path: strings.Join(segments, Delimiter)}
}

// String 返回以 Delimiter 连接的完整路径。
func (k Key) String() string {
	return k.path
}

// Parts 返回各层级片段，Root 返回 nil。
func (k Key) Parts() []string {
	if k.path == "" {
		return nil
	}
	return strings.Split(k.path, Delimiter)
}

// Parent 返回上一级 Key；Root 没有上一级，ok 为 false。
func (k Key) Parent() (Key, bool) {
	if k.path == "" {
		return Root, false
	}
	idx := strings.LastIndex(k.path, Delimiter)
	if idx < 0 {
		return Root, true
	}
	return Key{path: k.path[:idx]}, true
}

// IsRoot 报告 k 是否为 Root。
func (k Key) IsRoot() bool {
	return k.path == ""
}

// HasPrefix 判断 prefix 是否为 k 自身或其祖先。按层级比较，"a/bc" 不以 "a/b" 为前缀。
func (k Key) HasPrefix(prefix Key) bool {
	if prefix.path == "" {
		return true
	}
	if k.path == prefix.path {
		return true
	}
	return strings.HasPrefix(k.path, prefix.path+Delimiter)
}
