// Package content 定义跨存储后端统一使用的字节内容抽象。Content 是惰性的单次读取流，
// 可选地提前声明总字节数；AsyncContent 是产出 Content 的异步工厂；OfFuture 把尚未完成的
// Future 暴露为 Content，在完成之前不触碰内部内容。
//
// 读取采用拉模式：调用方通过 io.Reader 的缓冲区大小决定每次拿到多少字节，
// 生产方不会超量推送，大对象的内存占用因此有界。
package content
