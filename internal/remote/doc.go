// Package remote turns an upstream HTTP origin into content.AsyncContent
// producers. Each invocation issues exactly one GET; non-2xx answers surface as
// *StatusError and connection failures match ErrUnavailable.
package remote
