package content

import (
	"bytes"
	"context"
	"errors"
	"io"
)

const (
	defaultChunkSize = 32 * 1024
	// maxPreGrow 限制按声明长度预分配的上限，声明值可能来自不可信的上游。
	maxPreGrow = 1 << 20
)

// ReadAll 打开 c 并读出全部字节。
func ReadAll(ctx context.Context, c Content) ([]byte, error) {
	var buf bytes.Buffer
	if size, err := c.Size(); err == nil && size > 0 {
		buf.Grow(int(min(size, maxPreGrow)))
	}
	if _, err := Copy(ctx, &buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Copy 将 c 的全部字节写入 dst，每读一块检查一次 ctx。
func Copy(ctx context.Context, dst io.Writer, c Content) (int64, error) {
	var copied int64
	err := Chunks(ctx, c, defaultChunkSize, func(chunk []byte) error {
		w, err := dst.Write(chunk)
		copied += int64(w)
		if err != nil {
			return err
		}
		if w < len(chunk) {
			return io.ErrShortWrite
		}
		return nil
	})
	return copied, err
}

// Chunks 以不超过 size 字节的块依次把 c 的内容交给 fn。fn 返回错误时停止读取。
// chunk 在 fn 返回后会被复用，需要保留时由 fn 自行复制。
func Chunks(ctx context.Context, c Content, size int, fn func(chunk []byte) error) error {
	if size <= 0 {
		size = defaultChunkSize
	}
	rc, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := rc.Read(buf)
		if n > 0 {
			if fnErr := fn(buf[:n]); fnErr != nil {
				return fnErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
