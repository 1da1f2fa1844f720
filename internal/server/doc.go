// Package server hosts the Fiber HTTP service, the request middleware chain,
// and the remote registry that maps a Host header to a configured remote.
// It also owns the storage factory so the binary can open whichever backend
// the [Storage] table selects. Keep exports narrow and accept explicit
// dependencies; the proxy package plugs in through ProxyHandler.
package server
