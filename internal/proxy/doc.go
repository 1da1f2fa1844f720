// Package proxy serves cached remote content over HTTP. Every GET/HEAD is a
// single cache.Load: the upstream is tried first, the fetched bytes are saved,
// and the route's control decides whether a stored copy may answer when the
// upstream fails.
package proxy
