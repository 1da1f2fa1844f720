// Package future 提供最小的异步任务/续体抽象：Go 启动一次计算，Then/Handle 在其完成后
// 串接下一步，Await 在调用方 goroutine 上等待结果。每个 Future 的计算只执行一次，
// 结果对所有观察者可见；取消不在此建模，ctx 只约束等待方。
package future

import (
	"context"
	"fmt"
)

// Future 表示一个只会完成一次的异步结果。
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go 在新 goroutine 中执行 fn，并返回其结果的 Future。fn 恰好执行一次；
// 若 fn panic，Future 以错误完成，panic 不会越过 goroutine 边界。
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.val, f.err = zero, fmt.Errorf("future: panic: %v", r)
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// Completed 返回已成功完成的 Future。
func Completed[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v}
	close(f.done)
	return f
}

// Failed 返回已携带 err 失败的 Future，不做任何额外工作。
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done 在 Future 完成后关闭。
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await 等待结果；ctx 结束时返回 ctx.Err()，但不会影响计算本身。
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then 在 f 成功后执行 fn；f 失败时错误原样传递，fn 不会被调用。
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		v, err := f.wait()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// Handle 在 f 完成后以 (值, 错误) 调用 fn，无论成功与否。
func Handle[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	return Go(func() (U, error) {
		return fn(f.wait())
	})
}
