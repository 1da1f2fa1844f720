// Package cache 编排“先回源、成功落盘、失败回退本地存储”的读取流程。
// FromRemote 每次 Load 只尝试一次远端：成功时写入 Storage 后再返回，
// 失败时由 Control 判断已存储的值能否替代；被拒绝或不存在时原样返回远端错误。
// 同一 Key 的并发 Load 互不感知，不做合并与加锁。
package cache
