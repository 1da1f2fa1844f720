package content

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/any-hub/any-cache/internal/future"
)

func TestOfFutureGetsCompletedContent(t *testing.T) {
	var count int32
	release := make(chan struct{})
	data := []byte("xxx")
	c := OfFuture(future.Go(func() (Content, error) {
		<-release
		atomic.AddInt32(&count, 1)
		return FromBytes(data), nil
	}))

	size, err := c.Size()
	if err != nil || size != UnknownSize {
		t.Fatalf("pending future must report unknown size, got %d, %v", size, err)
	}

	close(release)
	got, err := ReadAll(context.Background(), c)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(got) != "xxx" {
		t.Fatalf("must get the exact data, got %q", got)
	}
	size, err = c.Size()
	if err != nil || size != int64(len(data)) {
		t.Fatalf("must have the size of data, got %d, %v", size, err)
	}
	if n := atomic.LoadInt32(&count); n != 1 {
		t.Fatalf("must be loaded only once, got %d", n)
	}
}

func TestOfFutureDelegatesUnknownSize(t *testing.T) {
	f := future.Completed(FromReader(errReader{}, -1))
	c := OfFuture(f)
	if size, err := c.Size(); err != nil || size != UnknownSize {
		t.Fatalf("resolved unknown size should stay unknown, got %d, %v", size, err)
	}
}

func TestOfFutureFailurePropagates(t *testing.T) {
	cause := errors.New("remote gone")
	c := OfFuture(future.Failed[Content](cause))
	if _, err := c.Size(); !errors.Is(err, cause) {
		t.Fatalf("size should fail with cause, got %v", err)
	}
	if _, err := c.Open(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("open should fail with cause, got %v", err)
	}
}

func TestOfFutureOpenHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := OfFuture(future.Go(func() (Content, error) {
		<-release
		return Empty(), nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestOfFutureInnerReuseGuard(t *testing.T) {
	c := OfFuture(future.Completed(FromBytes([]byte("a"))))
	if _, err := ReadAll(context.Background(), c); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if _, err := c.Open(context.Background()); !errors.Is(err, ErrStreamReused) {
		t.Fatalf("second open should surface ErrStreamReused, got %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("unused") }
