package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// UnknownSize 表示内容未声明总字节数。
const UnknownSize int64 = -1

// ErrStreamReused 表示同一 Content 被第二次打开读取，属于调用方的编程错误。
var ErrStreamReused = errors.New("content stream already consumed")

// SizeMismatchError 表示声明的大小与实际产出的字节数不一致。
type SizeMismatchError struct {
	Declared int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("content size mismatch: declared %d bytes, produced %d", e.Declared, e.Actual)
}

// Content 是一段惰性的字节内容。
type Content interface {
	// Size 返回声明的总字节数，未知时为 UnknownSize。
	Size() (int64, error)

	// Open 交出唯一一次的读取流，再次调用返回 ErrStreamReused。调用方负责 Close。
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FromBytes 复制 data 并包装成大小已知的 Content。
func FromBytes(data []byte) Content {
	return &stream{
		size: int64(len(data)),
		src:  bytes.NewReader(bytes.Clone(data)),
	}
}

// Empty 返回零字节、大小为 0 的 Content。
func Empty() Content {
	return &stream{size: 0, src: bytes.NewReader(nil)}
}

// FromReader 一次性包装外部提供的读取流；size < 0 表示大小未知。
// 若 r 实现了 io.Closer，关闭返回的读取流时会一并关闭 r。
func FromReader(r io.Reader, size int64) Content {
	if size < 0 {
		size = UnknownSize
	}
	return &stream{size: size, src: r}
}

type stream struct {
	size int64

	mu   sync.Mutex
	src  io.Reader
	used bool
}

func (s *stream) Size() (int64, error) {
	return s.size, nil
}

func (s *stream) Open(context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return nil, ErrStreamReused
	}
	s.used = true
	src := s.src
	s.src = nil
	return newSizedReader(src, s.size), nil
}

// sizedReader 统计实际读出的字节数，并在越过声明大小或提前 EOF 时报告 SizeMismatchError。
type sizedReader struct {
	r        io.Reader
	declared int64
	read     int64
}

func newSizedReader(r io.Reader, declared int64) *sizedReader {
	return &sizedReader{r: r, declared: declared}
}

func (s *sizedReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.read += int64(n)
	if s.declared == UnknownSize {
		return n, err
	}
	if s.read > s.declared {
		return n, &SizeMismatchError{Declared: s.declared, Actual: s.read}
	}
	if errors.Is(err, io.EOF) && s.read != s.declared {
		return n, &SizeMismatchError{Declared: s.declared, Actual: s.read}
	}
	return n, err
}

func (s *sizedReader) Close() error {
	if closer, ok := s.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
